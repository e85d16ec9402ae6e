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

// ExpandNode generates new children under an existing node. Expansion is
// strictly additive: existing children are never removed or reordered, and
// new orders continue after them.
func (e *Engine) ExpandNode(ctx context.Context, mapID string, req ExpansionRequest) (*ExpansionResult, error) {
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
	providerName, err := e.resolveProvider(preferred, provider.FeatureExpansion)
	if err != nil {
		return nil, err
	}
	credential, err := e.credential(ctx, req.Credential, req.UserID, providerName)
	if err != nil {
		return nil, err
	}
	mc, err := e.providers.ModelConfig(providerName, provider.FeatureExpansion)
	if err != nil {
		return nil, err
	}

	guidance := req.Prompt
	if strings.TrimSpace(guidance) == "" {
		guidance = node.Title
	}
	vars := map[string]string{
		"prompt":           guidance,
		"nodeTitle":        node.Title,
		"nodeContent":      node.Content,
		"parentContext":    parentContext(m, node),
		"existingChildren": childTitles(node),
	}
	if req.Depth > 0 {
		vars["depthInstructions"] = fmt.Sprintf("Nest new sub-nodes at most %d levels below this node.", req.Depth)
	}
	if v, err := e.prompts.ValidateVariables(prompt.TemplateNodeExpansion, vars); err != nil {
		return nil, err
	} else if !v.Valid {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(v.Errors, "; "))
	}
	vars = prompt.OptimizeForTokenLimit(vars, mc.MaxTokens)
	p, err := e.prompts.Generate(prompt.TemplateNodeExpansion, vars, complexity)
	if err != nil {
		return nil, err
	}

	res, err := e.callProvider(ctx, providerName, credential, p, mc, mapID, "expand-"+node.ID)
	if err != nil {
		return nil, err
	}
	newNodes, err := mindmap.ParseExpansion([]byte(res.Content))
	if err != nil {
		return nil, err
	}

	gen := mindmap.NewUIDGenerator(mindmap.CollectIDs(m.Nodes)...)
	mindmap.AssignStructure(newNodes, node.ID, node.Level, len(node.Children), gen)

	if err := e.store.InsertNodes(ctx, mapID, m.Version, newNodes); err != nil {
		return nil, err
	}
	return &ExpansionResult{
		NewNodes:   newNodes,
		TokensUsed: res.TokensUsed,
		Provider:   providerName,
	}, nil
}

// parentContext renders the chain of titles from the root down to the
// node's parent.
func parentContext(m *mindmap.MindMap, node *mindmap.MapNode) string {
	var chain []string
	id := node.ParentID
	for id != "" {
		parent := mindmap.FindNode(m.Nodes, id)
		if parent == nil {
			break
		}
		chain = append([]string{parent.Title}, chain...)
		id = parent.ParentID
	}
	chain = append([]string{m.Title}, chain...)
	return strings.Join(chain, " > ")
}

func childTitles(node *mindmap.MapNode) string {
	if len(node.Children) == 0 {
		return "(none)"
	}
	titles := make([]string, 0, len(node.Children))
	for _, c := range node.Children {
		titles = append(titles, c.Title)
	}
	return strings.Join(titles, ", ")
}
