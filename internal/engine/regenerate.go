package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mindforge/internal/mindmap"
	"mindforge/internal/prompt"
	"mindforge/internal/provider"
	"mindforge/internal/storage"
)

// RegenerateNode rewrites a node's title and content in place. The node
// keeps its id so share links and citations that reference it stay valid.
// When the model returns replacement children the existing subtree is
// swapped out in the same atomic write.
func (e *Engine) RegenerateNode(ctx context.Context, mapID string, req RegenerationRequest) (*RegenerationResult, error) {
	if strings.TrimSpace(req.NodeID) == "" {
		return nil, fmt.Errorf("%w: nodeId is required", ErrValidation)
	}

	m, err := e.store.GetMindMap(ctx, mapID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: mind map %s", ErrNotFound, mapID)
	}
	if err != nil {
		return nil, err
	}
	node := mindmap.FindNode(m.Nodes, req.NodeID)
	if node == nil {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, req.NodeID)
	}

	complexity := req.Complexity
	if complexity == "" {
		complexity = m.Complexity
	}
	if !complexity.Valid() {
		return nil, fmt.Errorf("%w: unknown complexity %q", ErrValidation, req.Complexity)
	}
	preferred := req.Provider
	if preferred == "" {
		preferred = m.Provider
	}
	providerName, err := e.resolveProvider(preferred, provider.FeatureReasoning)
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

	guidance := req.Prompt
	if strings.TrimSpace(guidance) == "" {
		guidance = node.Title
	}
	vars := prompt.OptimizeForTokenLimit(map[string]string{
		"prompt":      guidance,
		"nodeTitle":   node.Title,
		"nodeContent": node.Content,
	}, mc.MaxTokens)
	p, err := e.prompts.Generate(prompt.TemplateNodeRegeneration, vars, complexity)
	if err != nil {
		return nil, err
	}

	res, err := e.callProvider(ctx, providerName, credential, p, mc, mapID, "regenerate-"+node.ID)
	if err != nil {
		return nil, err
	}
	regen, err := mindmap.ParseRegeneration([]byte(res.Content))
	if err != nil {
		return nil, err
	}

	replaceChildren := regen.Children != nil
	if replaceChildren {
		gen := mindmap.NewUIDGenerator(mindmap.CollectIDs(m.Nodes)...)
		mindmap.AssignStructure(regen.Children, node.ID, node.Level, 0, gen)
	}
	if err := e.store.UpdateNode(ctx, mapID, m.Version, node.ID, regen.Title, regen.Content, regen.Children, replaceChildren); err != nil {
		return nil, err
	}

	if regen.Title != "" {
		node.Title = regen.Title
	}
	if regen.Content != "" {
		node.Content = regen.Content
	}
	if replaceChildren {
		node.Children = regen.Children
	}
	return &RegenerationResult{
		Node:       node,
		TokensUsed: res.TokensUsed,
		Provider:   providerName,
	}, nil
}
