// Package llm turns a chat-completion backend into a source of validated,
// typed values. Backends only return raw text; Complete owns parsing,
// schema enforcement and the bounded retry on malformed output.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var (
	// ErrInvalidResponse marks output that could not be parsed or validated.
	// It is the only class of failure Complete retries.
	ErrInvalidResponse = errors.New("invalid completion response")
	// ErrRetriesExhausted is returned once every attempt produced invalid output.
	ErrRetriesExhausted = errors.New("completion retries exhausted")
	// ErrBadRequest is a malformed Request; it is never retried.
	ErrBadRequest = errors.New("bad completion request")
)

// MessageRole is the chat role of a prompt message.
type MessageRole string

const (
	RoleSystem MessageRole = "system"
	RoleUser   MessageRole = "user"
)

// Message is one chat message sent to the backend.
type Message struct {
	Role    MessageRole
	Content string
}

// Request is a single structured completion call. Messages is always the
// pair [system, user]; history is flattened into the user prompt upstream.
type Request struct {
	Operation   string
	Messages    []Message
	Schema      *jsonschema.Definition
	MaxTokens   int
	Temperature float32
}

// NewRequest builds a request from a rendered system and user prompt.
func NewRequest(operation, system, user string, schema *jsonschema.Definition) Request {
	return Request{
		Operation: operation,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Schema: schema,
	}
}

func (r Request) System() string { return r.content(RoleSystem) }
func (r Request) User() string   { return r.content(RoleUser) }

func (r Request) content(role MessageRole) string {
	for _, m := range r.Messages {
		if m.Role == role {
			return m.Content
		}
	}
	return ""
}

func (r Request) check() error {
	if r.Operation == "" {
		return fmt.Errorf("%w: operation is required", ErrBadRequest)
	}
	if len(r.Messages) != 2 || r.Messages[0].Role != RoleSystem || r.Messages[1].Role != RoleUser {
		return fmt.Errorf("%w: %s must send exactly a system and a user message", ErrBadRequest, r.Operation)
	}
	return nil
}

// Provider is a text-generation backend. Complete returns the raw response
// text; an error means the call itself failed and must not be retried.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
