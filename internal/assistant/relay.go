package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultTimeout = 60 * time.Second
	FallbackReply  = "Sorry, I couldn't process your request."
)

var ErrNoMessages = errors.New("messages array is required")

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Relay bridges chat history to a Generator. It holds no state between calls.
type Relay struct {
	gen     Generator
	timeout time.Duration
}

func NewRelay(gen Generator, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Relay{gen: gen, timeout: timeout}
}

// Reply answers the latest user turn. Only an empty history is an error;
// upstream failures are logged and turned into FallbackReply.
func (r *Relay) Reply(ctx context.Context, msgs []Message) (Message, error) {
	if len(msgs) == 0 {
		return Message{}, ErrNoMessages
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	text, err := r.gen.Generate(ctx, prompt(msgs))
	if err != nil {
		slog.ErrorContext(ctx, "assistant upstream failed",
			"error", err,
			"timed_out", errors.Is(err, context.DeadlineExceeded),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Message{Role: RoleAssistant, Content: FallbackReply}, nil
	}
	slog.DebugContext(ctx, "assistant reply generated", "elapsed_ms", time.Since(start).Milliseconds(), "chars", len(text))
	return Message{Role: RoleAssistant, Content: text}, nil
}
