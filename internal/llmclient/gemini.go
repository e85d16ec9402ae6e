package llmclient

import (
	"context"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// Cross-cutting concerns (retries, logging) are applied via Middleware.
type GeminiClient struct {
	cli *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli}, nil
}

func (g *GeminiClient) Name() string     { return "gemini" }
func (g *GeminiClient) Provider() string { return "gemini" }
func (g *GeminiClient) Close() error     { return nil }
func (g *GeminiClient) CountTokens(text string) int {
	return CountTokens(text)
}

// Generate asks for application/json output and normalizes the response.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Result, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: opts.SystemPrompt}}}
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		cfg.Temperature = &t
	}
	resp, err := g.cli.Models.GenerateContent(ctx, opts.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	content := resp.Candidates[0].Content.Parts[0].Text
	if content == "" {
		return nil, ErrEmptyResponse
	}
	used := 0
	if resp.UsageMetadata != nil {
		used = int(resp.UsageMetadata.TotalTokenCount)
	}
	if used == 0 {
		used = CountTokens(prompt) + CountTokens(content)
	}
	return &Result{Content: content, TokensUsed: used, Provider: "gemini", Model: opts.Model}, nil
}

// ValidateKey issues a single cheap CountTokens call; no retries.
func (g *GeminiClient) ValidateKey(ctx context.Context) (bool, error) {
	_, err := g.cli.Models.CountTokens(ctx, "gemini-2.5-flash",
		[]*genai.Content{{Parts: []*genai.Part{{Text: "ping"}}}}, nil)
	if err != nil {
		return false, nil
	}
	return true, nil
}
