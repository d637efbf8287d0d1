package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/integration-hub/student-hub/internal/application/command"
	"github.com/integration-hub/student-hub/internal/domain/coach"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/infrastructure/metrics"
	"github.com/integration-hub/student-hub/pkg/logger"
	"github.com/integration-hub/student-hub/pkg/sse"
)

// ══════════════════════════════════════════════════════════════════════════════
// COACH STREAM
// ══════════════════════════════════════════════════════════════════════════════

type coachRequest struct {
	Messages  []coach.Message `json:"messages"`
	Persona   string          `json:"persona"`
	CheckOnly bool            `json:"check_only"`
}

type coachStatusResponse struct {
	Locked    bool   `json:"locked"`
	Reason    string `json:"reason,omitempty"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Unlimited bool   `json:"unlimited"`
	LockMode  string `json:"lock_mode"`
}

// handleCoachMessages handles POST /api/v1/coach/messages
// The answer is relayed as text/event-stream unless check_only is set.
func (s *Server) handleCoachMessages(w http.ResponseWriter, r *http.Request) {
	p, ok := s.caller(w, r)
	if !ok {
		return
	}
	if s.deps.CoachConversation == nil {
		notConfigured(w, r)
		return
	}
	if s.deps.Features != nil && !s.deps.Features.CoachEnabled(p.UserID) {
		featureDisabled(w, r)
		return
	}

	var req coachRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	persona, err := coach.ParsePersona(req.Persona)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := s.deps.CoachConversation.Handle(r.Context(), command.CoachConversationCommand{
		UserID:    p.UserID,
		Persona:   persona,
		Messages:  req.Messages,
		CheckOnly: req.CheckOnly,
	})
	if err != nil {
		if writeGateError(w, err, quota.FeatureCoachMessage) {
			return
		}
		if shared.IsExternalService(err) {
			metrics.CoachStream(metrics.StreamUpstreamErr)
		}
		writeDomainError(w, r, err)
		return
	}

	setQuotaHeader(w, result.Status.Quota)

	if result.Stream == nil {
		st := result.Status
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(coachStatusResponse{
			Locked:    st.Locked,
			Reason:    string(st.Reason),
			Remaining: st.Quota.WireRemaining(),
			Limit:     st.Quota.Limit,
			Unlimited: st.Quota.Unlimited(),
			LockMode:  string(st.LockMode),
		})
		return
	}

	s.relay(w, r, result.Stream)
}

// relay copies upstream chunks to the client as SSE frames and always ends
// with the [DONE] sentinel unless the client went away.
func (s *Server) relay(w http.ResponseWriter, r *http.Request, stream coach.Stream) {
	defer stream.Close()

	log := logger.FromContext(r.Context())

	sse.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	out := sse.NewWriter(w)

	for {
		chunk, err := stream.Next()
		switch {
		case err == nil:
			if werr := out.Data(chunk); werr != nil {
				log.Debug("coach client disconnected", logger.Err(werr))
				metrics.CoachStream(metrics.StreamInterrupted)
				return
			}
			continue

		case errors.Is(err, io.EOF):
			_ = out.Done()
			metrics.CoachStream(metrics.StreamCompleted)
			return

		case r.Context().Err() != nil:
			log.Debug("coach client disconnected", logger.Err(err))
			metrics.CoachStream(metrics.StreamInterrupted)
			return

		default:
			if !errors.Is(err, sse.ErrTruncated) {
				log.Warn("coach stream read failed", logger.Err(err))
			}
			_ = out.JSON(map[string]string{"error": "stream_interrupted"})
			_ = out.Done()
			metrics.CoachStream(metrics.StreamInterrupted)
			return
		}
	}
}
