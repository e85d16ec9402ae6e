package prompt

import (
	"mindforge/internal/llmclient"
)

// EstimateVariableTokens sums the token estimate across all variables.
func EstimateVariableTokens(vars map[string]string) int {
	total := 0
	for _, v := range vars {
		total += llmclient.CountTokens(v)
	}
	return total
}

// OptimizeForTokenLimit proportionally truncates every variable except
// "prompt" until the estimated total fits maxTokens, appending an ellipsis
// marker to anything cut. When the input already fits, it is returned
// unchanged. When it does not, the returned set always estimates strictly
// below the input.
func OptimizeForTokenLimit(vars map[string]string, maxTokens int) map[string]string {
	total := EstimateVariableTokens(vars)
	if maxTokens <= 0 || total <= maxTokens {
		return vars
	}

	promptTokens := llmclient.CountTokens(vars["prompt"])
	otherTokens := total - promptTokens
	budget := maxTokens - promptTokens
	if budget < 0 {
		budget = 0
	}
	ratio := 0.0
	if otherTokens > 0 {
		ratio = float64(budget) / float64(otherTokens)
	}
	if ratio >= 1 {
		ratio = 0.9
	}

	out := make(map[string]string, len(vars))
	for k, v := range vars {
		if k == "prompt" {
			out[k] = v
			continue
		}
		out[k] = truncateToRatio(v, ratio)
	}
	// The ellipsis markers can eat the savings on very short variables;
	// drop non-prompt variables outright until the estimate shrinks.
	if EstimateVariableTokens(out) >= total {
		for k := range out {
			if k == "prompt" {
				continue
			}
			out[k] = ""
			if EstimateVariableTokens(out) < total {
				break
			}
		}
	}
	return out
}

func truncateToRatio(s string, ratio float64) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	keep := int(float64(len(runes)) * ratio)
	if keep >= len(runes) {
		keep = len(runes) - 1
	}
	if keep < 0 {
		keep = 0
	}
	if keep == len(runes) {
		return s
	}
	return string(runes[:keep]) + "..."
}
