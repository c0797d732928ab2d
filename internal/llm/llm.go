// Package llm is the language-model boundary. The orchestrator talks to a
// Model; OpenAI implements it over the Chat Completions function-calling API.
package llm

import (
	"context"
	"errors"

	"github.com/primaai/agent-gateway/pkg/models"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// ErrNoReply is returned when the model answers without any choice.
var ErrNoReply = errors.New("no response from model")

// FunctionCall is an invocation as the model emitted it. Arguments is the raw
// JSON text and has not been parsed or validated.
type FunctionCall struct {
	Name      string
	Arguments string
}

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role         string
	Content      string
	Name         string
	FunctionCall *FunctionCall
}

// Request is a single completion request. When Functions is empty the model
// is offered nothing and function-call mode stays unset.
type Request struct {
	Messages  []Message
	Functions []models.FunctionDefinition
}

// Reply is the first choice of a completion.
type Reply struct {
	Content      string
	FunctionCall *FunctionCall
}

// Model produces one reply per request.
type Model interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
}
