package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindforge/internal/mindmap"
	"mindforge/internal/prompt"
	"mindforge/internal/provider"
	"mindforge/internal/storage"
)

// summaryFreshFor is how long a stored summary is served without a new
// provider call, measured against the map's updatedAt.
const summaryFreshFor = time.Hour

// Summarize returns a short prose summary of a map. A stored summary on a
// map untouched within the last hour is returned as cached with no
// provider call.
func (e *Engine) Summarize(ctx context.Context, req SummarizationRequest) (*SummaryResult, error) {
	if strings.TrimSpace(req.MindMapID) == "" {
		return nil, fmt.Errorf("%w: mindMapId is required", ErrValidation)
	}

	m, err := e.store.GetMindMap(ctx, req.MindMapID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: mind map %s", ErrNotFound, req.MindMapID)
	}
	if err != nil {
		return nil, err
	}

	if m.Summary != "" && e.clock().Sub(m.Metadata.UpdatedAt) < summaryFreshFor {
		return &SummaryResult{Summary: m.Summary, Cached: true}, nil
	}

	preferred := req.Provider
	if preferred == "" {
		preferred = m.Provider
	}
	providerName, err := e.resolveProvider(preferred, provider.FeatureSummary)
	if err != nil {
		return nil, err
	}
	credential, err := e.credential(ctx, req.Credential, req.UserID, providerName)
	if err != nil {
		return nil, err
	}
	mc, err := e.providers.ModelConfig(providerName, provider.FeatureSummary)
	if err != nil {
		return nil, err
	}

	intent := m.Prompt
	if strings.TrimSpace(intent) == "" {
		intent = m.Title
	}
	vars := map[string]string{
		"prompt":       intent,
		"mapTitle":     m.Title,
		"mapStructure": structureWithSources(m),
	}
	if v, err := e.prompts.ValidateVariables(prompt.TemplateMapSummarization, vars); err != nil {
		return nil, err
	} else if !v.Valid {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(v.Errors, "; "))
	}
	vars = prompt.OptimizeForTokenLimit(vars, mc.MaxTokens)
	p, err := e.prompts.Generate(prompt.TemplateMapSummarization, vars, mindmap.ComplexityModerate)
	if err != nil {
		return nil, err
	}

	res, err := e.callProvider(ctx, providerName, credential, p, mc, m.ID, "summarize")
	if err != nil {
		return nil, err
	}
	summary, err := mindmap.ParseSummary([]byte(res.Content))
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateSummary(ctx, m.ID, summary, e.clock()); err != nil {
		return nil, err
	}
	return &SummaryResult{
		Summary:    summary,
		TokensUsed: res.TokensUsed,
		Provider:   providerName,
		Cached:     false,
	}, nil
}

// structureWithSources renders the outline plus the map's citations,
// deduplicated across nodes, so the summary can mention its sources.
func structureWithSources(m *mindmap.MindMap) string {
	var b strings.Builder
	b.WriteString(mindmap.Outline(m))
	sources := mindmap.DedupCitations(m.Nodes)
	if len(sources) == 0 {
		return b.String()
	}
	b.WriteString("\n\nSources:\n")
	for _, c := range sources {
		b.WriteString("- " + c.Title)
		if c.URL != "" {
			b.WriteString(" (" + c.URL + ")")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
