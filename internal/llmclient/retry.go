package llmclient

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Middleware wraps an LLMClient with a cross-cutting concern.
type Middleware func(next LLMClient) LLMClient

// Retry retries Generate up to maxAttempts total attempts with exponential
// backoff starting at baseDelay (factor 2) plus random jitter of up to one
// baseDelay. ValidateKey and CountTokens pass through unretried.
// Once attempts are exhausted the last error is wrapped in *UpstreamError.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return func(next LLMClient) LLMClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next LLMClient
	max  int
	base time.Duration
}

func (r *retrying) Name() string     { return r.next.Name() }
func (r *retrying) Provider() string { return r.next.Provider() }
func (r *retrying) Close() error     { return r.next.Close() }
func (r *retrying) CountTokens(text string) int {
	return r.next.CountTokens(text)
}
func (r *retrying) ValidateKey(ctx context.Context) (bool, error) {
	return r.next.ValidateKey(ctx)
}

func (r *retrying) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Result, error) {
	var last error
	for i := 0; i < r.max; i++ {
		if i > 0 {
			delay := r.base*time.Duration(1<<(i-1)) + time.Duration(rand.Int63n(int64(r.base)+1))
			select {
			case <-ctx.Done():
				return nil, &UpstreamError{Provider: r.next.Provider(), Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
		res, err := r.next.Generate(ctx, prompt, opts)
		if err == nil {
			return res, nil
		}
		// A permanent error will not resolve with retries.
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, &UpstreamError{Provider: r.next.Provider(), Err: err}
		}
		last = err
		select {
		case <-ctx.Done():
			return nil, &UpstreamError{Provider: r.next.Provider(), Err: ctx.Err()}
		default:
		}
	}
	return nil, &UpstreamError{Provider: r.next.Provider(), Err: last}
}
