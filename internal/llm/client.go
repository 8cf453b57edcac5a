package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("language model returned no content")

// Roles accepted in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a minimal chat message.  Role must be RoleUser or
// RoleAssistant; the system instruction travels separately in Request.
type Message struct {
	Role    string
	Content string
}

// Request is a single completion call.  With OneShot set only Prompt is
// sent; otherwise History is replayed and Prompt, when non-empty, is
// appended as the latest user turn.
type Request struct {
	System  string
	Prompt  string
	History []Message
	OneShot bool
}

// Turns returns the user/assistant turns the provider should receive.
func (r Request) Turns() []Message {
	if r.OneShot {
		return []Message{{Role: RoleUser, Content: r.Prompt}}
	}
	turns := make([]Message, 0, len(r.History)+1)
	turns = append(turns, r.History...)
	if r.Prompt != "" {
		turns = append(turns, Message{Role: RoleUser, Content: r.Prompt})
	}
	return turns
}

// Client is the text-completion capability used for escalation.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
