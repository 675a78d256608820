// Package assistant relays chat turns to a hosted text-generation model and
// models the chat widget that consumes the relay.
package assistant

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// prompt picks the text sent upstream: the most recent user turn, or the
// last message when the history holds no user turn at all.
func prompt(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return msgs[len(msgs)-1].Content
}
