// Package credentials resolves decrypted provider API keys. The real
// deployment fronts a per-user key vault; the env source below is the
// local-run fallback.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvSource resolves API keys from environment variables, one per
// provider (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY). The user
// id is ignored; env keys are process-wide.
type EnvSource struct{}

func NewEnvSource() *EnvSource { return &EnvSource{} }

func (s *EnvSource) APIKey(_ context.Context, _ string, providerName string) (string, error) {
	key := strings.TrimSpace(os.Getenv(strings.ToUpper(providerName) + "_API_KEY"))
	if key == "" {
		return "", fmt.Errorf("no %s API key in environment", providerName)
	}
	return key, nil
}
