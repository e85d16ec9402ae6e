package llmclient

import (
	"context"
	"log"
)

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default(). Credentials are never part of the logged data.
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next LLMClient) LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next LLMClient
	log  *log.Logger
}

func (l *logging) Name() string     { return l.next.Name() }
func (l *logging) Provider() string { return l.next.Provider() }
func (l *logging) Close() error     { return l.next.Close() }
func (l *logging) CountTokens(text string) int {
	return l.next.CountTokens(text)
}
func (l *logging) ValidateKey(ctx context.Context) (bool, error) {
	return l.next.ValidateKey(ctx)
}

func (l *logging) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Result, error) {
	l.log.Printf("LLM request (%s): %d bytes", l.next.Name(), len(prompt)+len(opts.SystemPrompt))
	res, err := l.next.Generate(ctx, prompt, opts)
	if err != nil {
		l.log.Printf("LLM request (%s) failed: %v", l.next.Name(), err)
		return nil, err
	}
	l.log.Printf("LLM response (%s): %d tokens", l.next.Name(), res.TokensUsed)
	return res, nil
}
