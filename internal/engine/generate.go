package engine

import (
	"context"
	"fmt"
	"strings"

	"mindforge/internal/mindmap"
	"mindforge/internal/prompt"
	"mindforge/internal/provider"
)

// Generate builds a whole new mind map from a user prompt and persists it
// atomically. The returned map carries assigned ids, levels and orders.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (*mindmap.MindMap, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	complexity := req.Complexity
	if complexity == "" {
		complexity = mindmap.ComplexityModerate
	}
	if !complexity.Valid() {
		return nil, fmt.Errorf("%w: unknown complexity %q", ErrValidation, req.Complexity)
	}

	providerName, err := e.resolveProvider(req.Provider, provider.FeatureReasoning)
	if err != nil {
		return nil, err
	}
	credential, err := e.credential(ctx, req.Credential, req.UserID, providerName)
	if err != nil {
		return nil, err
	}
	mc, err := e.providers.ModelConfig(providerName, provider.FeatureReasoning)
	if err != nil {
		return nil, err
	}

	vars := prompt.OptimizeForTokenLimit(map[string]string{
		"prompt": req.Prompt,
		"focus":  req.Focus,
	}, mc.MaxTokens)
	p, err := e.prompts.Generate(prompt.TemplateMindmapReasoning, vars, complexity)
	if err != nil {
		return nil, err
	}

	gen := mindmap.NewUIDGenerator()
	mapID := mindmap.NewMapID(req.Prompt)

	res, err := e.callProvider(ctx, providerName, credential, p, mc, mapID, "generate")
	if err != nil {
		return nil, err
	}

	parsed, err := mindmap.ParseGenerated([]byte(res.Content))
	if err != nil {
		return nil, err
	}

	mindmap.AssignStructure(parsed.Roots, "", 0, 0, gen)
	now := e.clock()
	m := &mindmap.MindMap{
		ID:          mapID,
		Title:       parsed.Title,
		Description: parsed.Description,
		Prompt:      req.Prompt,
		Provider:    providerName,
		Complexity:  complexity,
		Metadata: mindmap.Metadata{
			TotalNodes: mindmap.CountNodes(parsed.Roots),
			MaxDepth:   mindmap.MaxDepth(parsed.Roots),
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		Nodes: parsed.Roots,
	}
	if err := e.store.CreateMindMap(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
