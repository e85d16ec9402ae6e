package llmclient

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("empty response from model")

// LLMClient is the uniform contract every backend adapter satisfies.
// Adapters are constructed per call from a caller-supplied credential;
// they must never log or persist that credential.
type LLMClient interface {
	Name() string
	Provider() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Result, error)
	ValidateKey(ctx context.Context) (bool, error)
	CountTokens(text string) int
	Close() error
}

// GenerateOptions carries per-call overrides. Zero values fall back to
// provider defaults.
type GenerateOptions struct {
	Model        string
	MaxTokens    int
	Temperature  *float64
	SystemPrompt string
}

// Result is the normalized outcome of one backend call.
type Result struct {
	Content    string
	TokensUsed int
	Provider   string
	Model      string
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// UpstreamError tags a backend failure with the provider it came from.
// The retry middleware wraps the final error in one of these once all
// attempts are exhausted.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string { return "provider " + e.Provider + ": " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }
