// Package sse implements the "data: <json>" incremental-completion framing used by
// OpenAI-compatible streaming APIs, in both directions.
//
// The literal [DONE] payload terminates a stream. It is an in-band signal: a reader
// that hits transport EOF without seeing it reports ErrTruncated instead of io.EOF.
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DoneSentinel is the payload that ends a stream.
const DoneSentinel = "[DONE]"

// ErrTruncated is returned when the transport closes before DoneSentinel arrives.
var ErrTruncated = errors.New("sse: stream closed before [DONE]")

var dataPrefix = []byte("data:")

// Decoder reads data payloads from a framed stream.
// Lines may be split arbitrarily across reads; only a '\n' completes a line.
type Decoder struct {
	r     io.Reader
	buf   []byte
	chunk []byte
	eof   bool
	done  bool
}

// NewDecoder creates a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, chunk: make([]byte, 4096)}
}

// Next returns the next data payload. It returns io.EOF once DoneSentinel has been
// read, and never reads from the transport again after that.
func (d *Decoder) Next() ([]byte, error) {
	for {
		if d.done {
			return nil, io.EOF
		}

		if i := bytes.IndexByte(d.buf, '\n'); i >= 0 {
			line := d.buf[:i]
			d.buf = d.buf[i+1:]
			if payload, ok := d.parseLine(line); ok {
				return payload, nil
			}
			continue
		}

		if d.eof {
			// A final line without a trailing newline still counts.
			if len(d.buf) > 0 {
				line := d.buf
				d.buf = nil
				if payload, ok := d.parseLine(line); ok {
					return payload, nil
				}
				continue
			}
			return nil, ErrTruncated
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.buf = append(d.buf, d.chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.eof = true
				continue
			}
			return nil, err
		}
	}
}

// parseLine handles one complete line. ok is false for lines that carry no payload
// (blank separators, comments, other fields) and for the sentinel.
func (d *Decoder) parseLine(line []byte) ([]byte, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 || line[0] == ':' {
		return nil, false
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}

	payload := bytes.TrimPrefix(line[len(dataPrefix):], []byte(" "))
	if string(payload) == DoneSentinel {
		d.done = true
		return nil, false
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true
}

// Done reports whether the sentinel has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// SetHeaders prepares a response for streaming.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer emits framed payloads and flushes after each one when the destination supports it.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Data writes one raw payload frame.
func (w *Writer) Data(payload []byte) error {
	if _, err := w.w.Write(dataPrefix); err != nil {
		return err
	}
	if _, err := w.w.Write([]byte(" ")); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	if _, err := w.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	w.flush()
	return nil
}

// JSON marshals v and writes it as one frame.
func (w *Writer) JSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.Data(b)
}

// Done writes the terminating sentinel.
func (w *Writer) Done() error {
	return w.Data([]byte(DoneSentinel))
}

func (w *Writer) flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}
