package assistant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/foodie-storefront/internal/assistant"
)

func TestConversation_StartsWithGreeting(t *testing.T) {
	c := assistant.NewConversation("http://unused", nil)
	assert.Equal(t, []assistant.Message{{Role: assistant.RoleAssistant, Content: assistant.Greeting}}, c.Messages())
}

func TestConversation_SendDecodesEnvelope(t *testing.T) {
	var posted struct {
		Messages []assistant.Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&posted)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"role":"assistant","content":"Try Pizza Palace 🍕"}`))
	}))
	defer srv.Close()

	c := assistant.NewConversation(srv.URL, srv.Client())
	var partials []string
	msg, err := c.Send(context.Background(), "  pizza?  ", func(s string) { partials = append(partials, s) })
	require.NoError(t, err)
	assert.Equal(t, "Try Pizza Palace 🍕", msg.Content)
	assert.NotEmpty(t, partials)

	require.Len(t, posted.Messages, 2)
	assert.Equal(t, assistant.Message{Role: assistant.RoleUser, Content: "pizza?"}, posted.Messages[1])

	history := c.Messages()
	require.Len(t, history, 3)
	assert.Equal(t, msg, history[2])
}

func TestConversation_PlainTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("streamed words"))
	}))
	defer srv.Close()

	msg, err := assistant.NewConversation(srv.URL, srv.Client()).Send(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "streamed words", msg.Content)
}

func TestConversation_RelayErrorAppendsApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Failed to generate response", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := assistant.NewConversation(srv.URL, srv.Client())
	msg, err := c.Send(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, assistant.ErrRelayUnavailable)
	assert.Equal(t, assistant.ConnectionErrorReply, msg.Content)

	history := c.Messages()
	assert.Equal(t, assistant.ConnectionErrorReply, history[len(history)-1].Content)

	// the conversation is usable again afterwards
	_, err = c.Send(context.Background(), "again", nil)
	assert.ErrorIs(t, err, assistant.ErrRelayUnavailable)
}

func TestConversation_RejectsBlankAndConcurrentSends(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		_, _ = w.Write([]byte(`{"role":"assistant","content":"done"}`))
	}))
	defer srv.Close()

	c := assistant.NewConversation(srv.URL, srv.Client())
	_, err := c.Send(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, assistant.ErrEmptyInput)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first", nil)
		done <- err
	}()
	<-started

	_, err = c.Send(context.Background(), "second", nil)
	assert.ErrorIs(t, err, assistant.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, c.Messages(), 3)
}
