// Package engine orchestrates AI mind-map generation: it assembles a
// prompt, invokes a provider adapter, validates the untrusted JSON result
// and merges it into the node tree.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mindforge/internal/artifact"
	"mindforge/internal/llmclient"
	"mindforge/internal/prompt"
	"mindforge/internal/provider"
	"mindforge/internal/storage"
)

var (
	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("invalid request")
	// ErrConfiguration marks a provider requested without a credential.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks an unresolvable map or node.
	ErrNotFound = errors.New("not found")
)

// CredentialSource supplies a decrypted API key per (user, provider). The
// engine treats keys as opaque, hands them only to the matching adapter and
// never logs or stores them.
type CredentialSource interface {
	APIKey(ctx context.Context, userID, providerName string) (string, error)
}

// Clock supplies the current time; injected so the summary freshness
// window stays deterministic under test.
type Clock func() time.Time

// AdapterFactory builds a provider adapter bound to a credential. The
// default delegates to the provider registry; tests swap in fakes.
type AdapterFactory func(ctx context.Context, providerName, credential string) (llmclient.LLMClient, error)

// Engine is stateless per call; every collaborator is injected.
type Engine struct {
	store           storage.Store
	creds           CredentialSource
	providers       *provider.Registry
	prompts         *prompt.Engine
	artifacts       artifact.Store
	clock           Clock
	adapters        AdapterFactory
	defaultProvider string
}

type Option func(*Engine)

func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithArtifacts(store artifact.Store) Option {
	return func(e *Engine) { e.artifacts = store }
}

func WithAdapterFactory(f AdapterFactory) Option {
	return func(e *Engine) { e.adapters = f }
}

// WithDefaultProvider sets the provider used when neither the request nor
// the map names one.
func WithDefaultProvider(name string) Option {
	return func(e *Engine) { e.defaultProvider = name }
}

func New(store storage.Store, creds CredentialSource, providers *provider.Registry, prompts *prompt.Engine, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		creds:     creds,
		providers: providers,
		prompts:   prompts,
		clock:     time.Now,
	}
	e.adapters = func(ctx context.Context, providerName, credential string) (llmclient.LLMClient, error) {
		return providers.NewAdapter(ctx, providerName, credential)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// resolveProvider picks the provider for a request and checks the feature
// against its capability set.
func (e *Engine) resolveProvider(preferred string, feature provider.Feature) (string, error) {
	if preferred == "" {
		preferred = e.defaultProvider
	}
	name, err := e.providers.DefaultProvider(preferred)
	if err != nil {
		return "", err
	}
	if v := e.providers.ValidateRequest(name, feature); !v.Valid {
		return "", fmt.Errorf("%w: %s", ErrValidation, v.Error)
	}
	return name, nil
}

// credential returns the request credential or falls back to the
// credential collaborator.
func (e *Engine) credential(ctx context.Context, supplied, userID, providerName string) (string, error) {
	if supplied != "" {
		return supplied, nil
	}
	if e.creds == nil {
		return "", fmt.Errorf("%w: no credential configured for provider %s", ErrConfiguration, providerName)
	}
	key, err := e.creds.APIKey(ctx, userID, providerName)
	if err != nil || key == "" {
		return "", fmt.Errorf("%w: no credential configured for provider %s", ErrConfiguration, providerName)
	}
	return key, nil
}

// callProvider builds the adapter, runs one generation and archives the
// exchange. The adapter owns retries; no extra retry happens here.
func (e *Engine) callProvider(ctx context.Context, providerName, credential string, p prompt.Prompt, mc provider.ModelConfig, runID, stage string) (*llmclient.Result, error) {
	adapter, err := e.adapters(ctx, providerName, credential)
	if err != nil {
		return nil, err
	}
	defer func() { _ = adapter.Close() }()

	temp := mc.Temperature
	res, err := adapter.Generate(ctx, p.User, llmclient.GenerateOptions{
		Model:        mc.Model,
		MaxTokens:    mc.MaxTokens,
		Temperature:  &temp,
		SystemPrompt: p.System,
	})
	if err != nil {
		return nil, err
	}
	e.archive(ctx, runID, stage+"/prompt.txt", []byte(p.System+"\n\n"+p.User))
	e.archive(ctx, runID, stage+"/response.json", []byte(res.Content))
	return res, nil
}

func (e *Engine) archive(ctx context.Context, runID, path string, content []byte) {
	if e.artifacts == nil {
		return
	}
	if err := e.artifacts.Put(ctx, runID, path, content); err != nil {
		log.Printf("artifact archive %s/%s failed: %v", runID, path, err)
	}
}
