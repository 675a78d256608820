package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

const (
	Greeting = "Hi! I'm FoodieBot 🤖 How can I help you with your food delivery today? I can recommend restaurants, explain menu items, or assist with your order!"

	ConnectionErrorReply = "Sorry, I'm having trouble connecting right now. Please try again in a moment!"
)

var (
	ErrEmptyInput       = errors.New("message is empty")
	ErrBusy             = errors.New("a reply is still streaming")
	ErrRelayUnavailable = errors.New("relay unavailable")
)

// Conversation is the client side of the relay: it keeps the visible
// history and grows the assistant turn as the response body streams in.
type Conversation struct {
	url  string
	http *http.Client

	mu       sync.Mutex
	messages []Message
	busy     bool
}

// NewConversation returns a conversation seeded with the greeting. A nil hc
// uses http.DefaultClient.
func NewConversation(relayURL string, hc *http.Client) *Conversation {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Conversation{
		url:      relayURL,
		http:     hc,
		messages: []Message{{Role: RoleAssistant, Content: Greeting}},
	}
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Send appends text as a user turn, posts the whole history to the relay and
// streams the answer into a new assistant turn. onChunk, when non-nil, sees
// the assistant content after every chunk. On relay failure the apology
// reply is appended and an error wrapping ErrRelayUnavailable is returned.
func (c *Conversation) Send(ctx context.Context, text string, onChunk func(content string)) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.busy = true
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text})
	history := append([]Message(nil), c.messages...)
	c.messages = append(c.messages, Message{Role: RoleAssistant})
	idx := len(c.messages) - 1
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	content, err := c.stream(ctx, history, func(partial string) {
		c.setContent(idx, partial)
		if onChunk != nil {
			onChunk(partial)
		}
	})
	if err != nil {
		slog.WarnContext(ctx, "chat relay failed", "error", err)
		content = ConnectionErrorReply
		err = fmt.Errorf("%w: %w", ErrRelayUnavailable, err)
	} else {
		content = unwrapEnvelope(content)
	}
	c.setContent(idx, content)
	return Message{Role: RoleAssistant, Content: content}, err
}

func (c *Conversation) stream(ctx context.Context, history []Message, grow func(string)) (string, error) {
	body, err := json.Marshal(map[string][]Message{"messages": history})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("relay returned %d", resp.StatusCode)
	}

	var sb strings.Builder
	for chunk, err := range Chunks(resp.Body) {
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		sb.WriteString(chunk)
		grow(sb.String())
	}
	return sb.String(), nil
}

// unwrapEnvelope returns the content of a {"role","content"} body, or raw
// unchanged when it is plain text.
func unwrapEnvelope(raw string) string {
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m.Content == "" {
		return raw
	}
	return m.Content
}

func (c *Conversation) setContent(idx int, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[idx].Content = content
}
