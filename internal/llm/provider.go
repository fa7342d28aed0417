package llm

import (
	"context"
	"errors"
)

// ErrNoChoices is returned when the completion service answers without
// any candidate reply.
var ErrNoChoices = errors.New("completion returned no choices")

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the first choice.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
