package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"mindforge/internal/llmclient"
)

const (
	statusCacheTTL  = 5 * time.Minute
	statusCacheSize = 64

	retryAttempts = 4
	retryBase     = time.Second
)

var ErrNoProvidersAvailable = errors.New("no providers available")

// UnknownProviderError reports a provider name absent from the registry.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string { return "Unknown provider: " + e.Name }

// Clock supplies the current time; injected so status caching stays
// deterministic under test.
type Clock func() time.Time

// Status is the cached availability of one provider.
type Status struct {
	Available bool      `json:"available"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Registry holds static provider configuration plus a short-lived
// availability cache. Reads are safe for concurrent use; the expirable LRU
// refreshes entries without blocking readers on a stale value.
type Registry struct {
	configs map[string]Config
	order   []string
	status  *expirable.LRU[string, Status]
	clock   Clock
}

// NewRegistry creates a registry over the built-in provider set.
func NewRegistry(clock Clock) *Registry {
	return NewRegistryWith(clock, defaultConfigs())
}

// NewRegistryWith creates a registry over an explicit provider set;
// declaration order is preserved for DefaultProvider fallback.
func NewRegistryWith(clock Clock, configs []Config) *Registry {
	if clock == nil {
		clock = time.Now
	}
	r := &Registry{
		configs: make(map[string]Config, len(configs)),
		status:  expirable.NewLRU[string, Status](statusCacheSize, nil, statusCacheTTL),
		clock:   clock,
	}
	for _, cfg := range configs {
		if _, dup := r.configs[cfg.Name]; dup {
			continue
		}
		r.configs[cfg.Name] = cfg
		r.order = append(r.order, cfg.Name)
	}
	return r
}

// Get returns the configuration for name.
func (r *Registry) Get(name string) (Config, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return Config{}, &UnknownProviderError{Name: name}
	}
	return cfg, nil
}

// Names returns the configured provider names in declaration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ModelConfig resolves the model, token ceiling and temperature for one
// feature. Features without a dedicated model slot fall back to the
// reasoning slot.
func (r *Registry) ModelConfig(name string, feature Feature) (ModelConfig, error) {
	cfg, err := r.Get(name)
	if err != nil {
		return ModelConfig{}, err
	}
	model, ok := cfg.Models[feature]
	if !ok {
		model = cfg.Models[FeatureReasoning]
	}
	maxTokens, ok := cfg.MaxTokens[feature]
	if !ok {
		maxTokens = cfg.MaxTokens[FeatureReasoning]
	}
	return ModelConfig{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: cfg.DefaultTemperature,
	}, nil
}

// ValidationResult is the outcome of ValidateRequest; callers report Error
// verbatim, so its wording is part of the contract.
type ValidationResult struct {
	Valid bool
	Error string
}

// ValidateRequest checks whether name exists and supports feature.
func (r *Registry) ValidateRequest(name string, feature Feature) ValidationResult {
	cfg, ok := r.configs[name]
	if !ok {
		return ValidationResult{Valid: false, Error: (&UnknownProviderError{Name: name}).Error()}
	}
	if !cfg.SupportedFeatures[feature] {
		return ValidationResult{
			Valid: false,
			Error: fmt.Sprintf("provider %s does not support feature %q", name, feature),
		}
	}
	return ValidationResult{Valid: true}
}

// ProviderStatus returns the availability of name, cached for five minutes.
// Configured providers are treated as available without a live probe.
func (r *Registry) ProviderStatus(name string) Status {
	if st, ok := r.status.Get(name); ok {
		return st
	}
	st := Status{CheckedAt: r.clock()}
	if _, ok := r.configs[name]; ok {
		st.Available = true
	} else {
		st.Error = (&UnknownProviderError{Name: name}).Error()
	}
	r.status.Add(name, st)
	return st
}

// DefaultProvider returns preferred when it is available, otherwise the
// first available provider in declaration order.
func (r *Registry) DefaultProvider(preferred string) (string, error) {
	if preferred != "" && r.ProviderStatus(preferred).Available {
		return preferred, nil
	}
	for _, name := range r.order {
		if r.ProviderStatus(name).Available {
			return name, nil
		}
	}
	return "", ErrNoProvidersAvailable
}

// NewAdapter constructs a retry-wrapped adapter for name bound to the
// caller's credential. Clients are per-call because credentials are
// per-user; there is no shared global client instance.
func (r *Registry) NewAdapter(ctx context.Context, name, credential string) (llmclient.LLMClient, error) {
	if _, ok := r.configs[name]; !ok {
		return nil, &UnknownProviderError{Name: name}
	}
	var cli llmclient.LLMClient
	switch name {
	case "openai":
		cli = llmclient.NewOpenAIClient(credential)
	case "anthropic":
		cli = llmclient.NewAnthropicClient(credential)
	case "gemini":
		g, err := llmclient.NewGeminiClient(ctx, credential)
		if err != nil {
			return nil, err
		}
		cli = g
	default:
		return nil, &UnknownProviderError{Name: name}
	}
	// Logging sits inside the retry wrapper so every attempt is visible.
	cli = llmclient.WithLogging(nil)(cli)
	return llmclient.Retry(retryAttempts, retryBase)(cli), nil
}
