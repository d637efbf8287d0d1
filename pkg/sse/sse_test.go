package sse

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, d *Decoder) ([]string, error) {
	t.Helper()
	var out []string
	for {
		p, err := d.Next()
		if err != nil {
			return out, err
		}
		out = append(out, string(p))
	}
}

func TestDecoder_PartialLinesAcrossReads(t *testing.T) {
	stream := "data: {\"a\":1}\n\ndata: {\"b\":2}\r\n\r\n: keep-alive\n\ndata: [DONE]\n\n"
	// OneByteReader forces every line to be split across many reads.
	d := NewDecoder(iotest.OneByteReader(strings.NewReader(stream)))

	got, err := collect(t, d)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
	assert.True(t, d.Done())
}

func TestDecoder_SentinelWinsOverTrailingBytes(t *testing.T) {
	stream := "data: one\n\ndata: [DONE]\n\ndata: ignored\n\n"
	d := NewDecoder(strings.NewReader(stream))

	got, err := collect(t, d)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"one"}, got)
}

func TestDecoder_TruncatedStream(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: one\n\ndata: tw"))

	got, err := collect(t, d)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, []string{"one", "tw"}, got)
	assert.False(t, d.Done())
}

func TestDecoder_SentinelWithoutNewline(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: x\n\ndata: [DONE]"))

	got, err := collect(t, d)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"x"}, got)
}

func TestDecoder_IgnoresNonDataFields(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: delta\nid: 7\ndata:nospace\n\ndata: [DONE]\n"))

	got, err := collect(t, d)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"nospace"}, got)
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.JSON(map[string]string{"content": "Bonjour"}))
	require.NoError(t, w.Data([]byte(`{"content":"!"}`)))
	require.NoError(t, w.Done())

	assert.Equal(t,
		"data: {\"content\":\"Bonjour\"}\n\ndata: {\"content\":\"!\"}\n\ndata: [DONE]\n\n",
		buf.String())

	got, err := collect(t, NewDecoder(&buf))
	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, got, 2)
}
