package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jcmexdev/foodie-storefront/internal/assistant"
)

const (
	msgMessagesRequired = "Messages array is required"
	msgGenerateFailed   = "Failed to generate response"
	msgBodyTooLarge     = "Request body too large"
)

// Chat relays the conversation to the assistant. Input problems are answered
// in plain text; upstream trouble still yields a 200 with the fallback reply.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.countChat("rejected")
			writeText(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		slog.WarnContext(r.Context(), "chat body is not json", "error", err)
		h.countChat("error")
		writeText(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}
	// Any JSON value other than an object simply has no messages field.
	var req ChatRequest
	if bytes.HasPrefix(body, []byte("{")) {
		if err := json.Unmarshal(body, &req); err != nil {
			h.countChat("error")
			writeText(w, http.StatusInternalServerError, msgGenerateFailed)
			return
		}
	}

	raw := bytes.TrimSpace(req.Messages)
	if len(raw) == 0 || raw[0] != '[' {
		h.countChat("rejected")
		writeText(w, http.StatusBadRequest, msgMessagesRequired)
		return
	}
	var msgs []assistant.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		slog.WarnContext(r.Context(), "chat messages malformed", "error", err)
		h.countChat("error")
		writeText(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	reply, err := h.relay.Reply(r.Context(), msgs)
	if errors.Is(err, assistant.ErrNoMessages) {
		h.countChat("rejected")
		writeText(w, http.StatusBadRequest, msgMessagesRequired)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "chat relay error", "error", err)
		h.countChat("error")
		writeText(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}

	if reply.Content == assistant.FallbackReply {
		h.countChat("fallback")
	} else {
		h.countChat("replied")
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) countChat(outcome string) {
	if h.metrics != nil {
		h.metrics.ChatReplies.WithLabelValues(outcome).Inc()
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
