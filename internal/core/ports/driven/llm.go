// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"
	"time"
)

// ModelRequest is one model invocation.
type ModelRequest struct {
	// System is the instruction block.
	System string

	// Context is the assembled sources block.
	Context string

	// User is the escaped operator question.
	User string

	// Model overrides the client's default model when non-empty.
	Model string

	Temperature     float64
	MaxOutputTokens int

	// Timeout bounds the call. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// UserMessage joins the context and user blocks into the single user turn.
func (r ModelRequest) UserMessage() string {
	if r.Context == "" {
		return r.User
	}
	return r.Context + "\n\n" + r.User
}

// ModelResponse is the result of a successful call.
type ModelResponse struct {
	Text      string
	Model     string
	TokensIn  int
	TokensOut int
}

// ModelClient invokes a language model.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-5)
//   - Anthropic (Claude)
//   - Google Gemini
//   - Ollama (local models)
//
// Call must return a *domain.ModelError, or an error wrapping one, so the
// caller can tell transient failures from permanent ones.
type ModelClient interface {
	// Call runs one completion.
	Call(ctx context.Context, req ModelRequest) (*ModelResponse, error)

	// ModelName returns the default model.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
