package provider

// Feature names a generation capability a provider may support.
type Feature string

const (
	FeatureReasoning Feature = "reasoning"
	FeatureSummary   Feature = "summary"
	FeatureExpansion Feature = "expansion"
	FeatureCitations Feature = "citations"
)

// Config is the static per-provider configuration.
type Config struct {
	Name               string
	Models             map[Feature]string
	MaxTokens          map[Feature]int
	DefaultTemperature float64
	SupportedFeatures  map[Feature]bool
}

// ModelConfig is the resolved call configuration for one feature.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// defaultConfigs lists the built-in providers in fixed declaration order;
// DefaultProvider iterates them in this order.
func defaultConfigs() []Config {
	return []Config{
		{
			Name: "openai",
			Models: map[Feature]string{
				FeatureReasoning: "gpt-4o",
				FeatureSummary:   "gpt-4o-mini",
				FeatureExpansion: "gpt-4o-mini",
			},
			MaxTokens: map[Feature]int{
				FeatureReasoning: 8000,
				FeatureSummary:   2000,
				FeatureExpansion: 4000,
			},
			DefaultTemperature: 0.7,
			SupportedFeatures: map[Feature]bool{
				FeatureReasoning: true,
				FeatureSummary:   true,
				FeatureExpansion: true,
			},
		},
		{
			Name: "anthropic",
			Models: map[Feature]string{
				FeatureReasoning: "claude-3-5-sonnet-20241022",
				FeatureSummary:   "claude-3-5-haiku-20241022",
				FeatureExpansion: "claude-3-5-haiku-20241022",
			},
			MaxTokens: map[Feature]int{
				FeatureReasoning: 8000,
				FeatureSummary:   2000,
				FeatureExpansion: 4000,
			},
			DefaultTemperature: 0.7,
			SupportedFeatures: map[Feature]bool{
				FeatureReasoning: true,
				FeatureSummary:   true,
				FeatureExpansion: true,
				FeatureCitations: true,
			},
		},
		{
			Name: "gemini",
			Models: map[Feature]string{
				FeatureReasoning: "gemini-2.5-pro",
				FeatureSummary:   "gemini-2.5-flash",
				FeatureExpansion: "gemini-2.5-flash",
			},
			MaxTokens: map[Feature]int{
				FeatureReasoning: 12000,
				FeatureSummary:   3000,
				FeatureExpansion: 6000,
			},
			DefaultTemperature: 0.7,
			SupportedFeatures: map[Feature]bool{
				FeatureReasoning: true,
				FeatureSummary:   true,
				FeatureExpansion: true,
				FeatureCitations: true,
			},
		},
	}
}
