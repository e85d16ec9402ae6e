package provider

// pricePer1K is the static price table in USD per 1000 tokens, keyed by
// provider then feature. It tracks list prices, not metered billing.
var pricePer1K = map[string]map[Feature]float64{
	"openai": {
		FeatureReasoning: 0.01,
		FeatureSummary:   0.0006,
		FeatureExpansion: 0.0006,
	},
	"anthropic": {
		FeatureReasoning: 0.009,
		FeatureSummary:   0.0024,
		FeatureExpansion: 0.0024,
	},
	"gemini": {
		FeatureReasoning: 0.0075,
		FeatureSummary:   0.0009,
		FeatureExpansion: 0.0009,
	},
}

// EstimateCost returns the estimated USD cost for tokens of usage.
// Unknown providers or features estimate 0; cost display never blocks a
// request.
func EstimateCost(name string, feature Feature, tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	features, ok := pricePer1K[name]
	if !ok {
		return 0
	}
	price, ok := features[feature]
	if !ok {
		return 0
	}
	return price * float64(tokens) / 1000
}
