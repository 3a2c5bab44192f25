// Package llm talks to OpenAI-compatible chat completion providers and turns
// their free-form answers into plan types.
package llm

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoChoices is returned when a provider answers without any choice.
	ErrNoChoices = errors.New("no completion choices returned")
	// ErrNoJSON is returned when a response holds no JSON object or array.
	ErrNoJSON = errors.New("no JSON found in response")
	// ErrMaxRetriesExceeded is returned once rate-limit retries are used up.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Options tune a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
	// Timeout bounds the whole call including retries. Zero uses the
	// client's default.
	Timeout time.Duration
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Completer returns the text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}
