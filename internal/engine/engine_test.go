package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mindforge/internal/llmclient"
	"mindforge/internal/mindmap"
	"mindforge/internal/prompt"
	"mindforge/internal/provider"
	"mindforge/internal/storage"
)

const generatedMapJSON = `{
  "title": "Coffee Brewing",
  "description": "Methods and variables",
  "complexity": "moderate",
  "rootNodes": [
    {"title": "Methods", "content": "brew methods", "children": [
      {"title": "Pour over", "content": "manual drip"},
      {"title": "Immersion", "content": "french press"}
    ]},
    {"title": "Variables", "content": "grind and temp", "citations": [
      {"title": "SCA brewing handbook", "url": "https://example.com/sca"}
    ]}
  ]
}`

// fakeAdapter serves scripted responses and counts every Generate call.
type fakeAdapter struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeAdapter) Name() string     { return "fake" }
func (f *fakeAdapter) Provider() string { return "openai" }

func (f *fakeAdapter) Generate(_ context.Context, prompt string, _ llmclient.GenerateOptions) (*llmclient.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, llmclient.ErrEmptyResponse
	}
	content := f.responses[0]
	f.responses = f.responses[1:]
	return &llmclient.Result{Content: content, TokensUsed: 42, Provider: "openai", Model: "gpt-4o"}, nil
}

func (f *fakeAdapter) ValidateKey(context.Context) (bool, error) { return true, nil }
func (f *fakeAdapter) CountTokens(text string) int               { return llmclient.CountTokens(text) }
func (f *fakeAdapter) Close() error                              { return nil }

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAdapter) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, adapter *fakeAdapter, clk *fakeClock) (*Engine, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	registry := provider.NewRegistry(clk.Now)
	eng := New(store, nil, registry, prompt.NewEngine(),
		WithClock(clk.Now),
		WithAdapterFactory(func(context.Context, string, string) (llmclient.LLMClient, error) {
			return adapter, nil
		}),
	)
	return eng, store
}

func generateFixture(t *testing.T, eng *Engine) *mindmap.MindMap {
	t.Helper()
	m, err := eng.Generate(context.Background(), GenerateRequest{
		Prompt:     "how to brew coffee",
		Credential: "test-key",
	})
	require.NoError(t, err)
	return m
}

func TestGenerate_BuildsStructuredMap(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{generatedMapJSON}}
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	eng, store := newTestEngine(t, adapter, clk)

	m := generateFixture(t, eng)

	require.Equal(t, "Coffee Brewing", m.Title)
	require.Equal(t, mindmap.ComplexityModerate, m.Complexity)
	require.Equal(t, "openai", m.Provider)
	require.Equal(t, 4, m.Metadata.TotalNodes)
	require.Equal(t, 1, m.Metadata.MaxDepth)
	require.Equal(t, clk.Now(), m.Metadata.CreatedAt)

	for i, root := range m.Nodes {
		require.NotEmpty(t, root.ID)
		require.Empty(t, root.ParentID)
		require.Equal(t, 0, root.Level)
		require.Equal(t, i, root.Order)
		for j, child := range root.Children {
			require.Equal(t, root.ID, child.ParentID)
			require.Equal(t, 1, child.Level)
			require.Equal(t, j, child.Order)
		}
	}

	stored, err := store.GetMindMap(context.Background(), m.ID)
	require.NoError(t, err)
	require.Equal(t, 4, mindmap.CountNodes(stored.Nodes))
	require.Equal(t, 1, adapter.callCount())
}

func TestGenerate_SamePromptYieldsDistinctMaps(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{generatedMapJSON, generatedMapJSON}}
	eng, store := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	first := generateFixture(t, eng)
	second := generateFixture(t, eng)
	require.NotEqual(t, first.ID, second.ID, "same prompt produced the same map id")

	// Neither generation may clobber the other.
	for _, id := range []string{first.ID, second.ID} {
		if _, err := store.GetMindMap(context.Background(), id); err != nil {
			t.Fatalf("map %s not retrievable: %v", id, err)
		}
	}
}

func TestGenerate_RejectsEmptyPrompt(t *testing.T) {
	adapter := &fakeAdapter{}
	eng, _ := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	_, err := eng.Generate(context.Background(), GenerateRequest{Prompt: "   ", Credential: "k"})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, 0, adapter.callCount())
}

func TestGenerate_NoCredentialConfigured(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{generatedMapJSON}}
	eng, _ := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	_, err := eng.Generate(context.Background(), GenerateRequest{Prompt: "topic"})
	require.ErrorIs(t, err, ErrConfiguration)
	require.Equal(t, 0, adapter.callCount())
}

func TestGenerate_AdapterFailurePropagates(t *testing.T) {
	upstream := &llmclient.UpstreamError{Provider: "openai", Err: errors.New("rate limited")}
	adapter := &fakeAdapter{err: upstream}
	eng, _ := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	_, err := eng.Generate(context.Background(), GenerateRequest{Prompt: "topic", Credential: "k"})
	var ue *llmclient.UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "openai", ue.Provider)
}

func TestExpandNode_IsAdditive(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		`[{"title":"Cold brew","content":"steeped overnight"},{"title":"Aeropress","content":"pressure brew"}]`,
	}}
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	eng, store := newTestEngine(t, adapter, clk)

	m := generateFixture(t, eng)
	target := m.Nodes[0] // "Methods", two existing children
	before := mindmap.CollectIDs(m.Nodes)

	res, err := eng.ExpandNode(context.Background(), m.ID, ExpansionRequest{
		NodeID:     target.ID,
		Credential: "test-key",
	})
	require.NoError(t, err)
	require.Len(t, res.NewNodes, 2)
	require.Equal(t, "openai", res.Provider)

	after, err := store.GetMindMap(context.Background(), m.ID)
	require.NoError(t, err)
	for _, id := range before {
		require.NotNil(t, mindmap.FindNode(after.Nodes, id), "pre-existing node %s disappeared", id)
	}

	parent := mindmap.FindNode(after.Nodes, target.ID)
	require.Len(t, parent.Children, 4)
	for i, child := range parent.Children {
		require.Equal(t, i, child.Order)
		require.Equal(t, parent.Level+1, child.Level)
		require.Equal(t, parent.ID, child.ParentID)
	}
	require.Equal(t, "Cold brew", parent.Children[2].Title)
}

func TestExpandNode_DepthShapesPrompt(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		`[{"title":"Cold brew","content":"steeped overnight"}]`,
	}}
	eng, _ := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	m := generateFixture(t, eng)
	_, err := eng.ExpandNode(context.Background(), m.ID, ExpansionRequest{
		NodeID:     m.Nodes[0].ID,
		Depth:      2,
		Credential: "test-key",
	})
	require.NoError(t, err)
	require.Contains(t, adapter.lastPrompt(), "at most 2 levels")
}

func TestExpandNode_ParseFailureWritesNothing(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		"I could not produce JSON, sorry.",
	}}
	eng, store := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	m := generateFixture(t, eng)
	_, err := eng.ExpandNode(context.Background(), m.ID, ExpansionRequest{
		NodeID:     m.Nodes[0].ID,
		Credential: "test-key",
	})
	var pErr *mindmap.ParseError
	require.ErrorAs(t, err, &pErr)

	after, _ := store.GetMindMap(context.Background(), m.ID)
	require.Equal(t, 4, mindmap.CountNodes(after.Nodes))
	require.Equal(t, m.Version, after.Version)
}

func TestExpandNode_UnknownNode(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{generatedMapJSON}}
	eng, _ := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	m := generateFixture(t, eng)
	_, err := eng.ExpandNode(context.Background(), m.ID, ExpansionRequest{
		NodeID:     "ghost",
		Credential: "test-key",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegenerateNode_KeepsID(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		`{"title":"Brew methods, revisited","content":"an improved overview"}`,
	}}
	eng, store := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	m := generateFixture(t, eng)
	target := m.Nodes[0]
	childIDs := mindmap.CollectIDs(target.Children)

	res, err := eng.RegenerateNode(context.Background(), m.ID, RegenerationRequest{
		NodeID:     target.ID,
		Credential: "test-key",
	})
	require.NoError(t, err)
	require.Equal(t, target.ID, res.Node.ID)
	require.Equal(t, "Brew methods, revisited", res.Node.Title)

	after, _ := store.GetMindMap(context.Background(), m.ID)
	n := mindmap.FindNode(after.Nodes, target.ID)
	require.Equal(t, "an improved overview", n.Content)
	// No children in the response: the existing subtree stays.
	require.ElementsMatch(t, childIDs, mindmap.CollectIDs(n.Children))
}

func TestRegenerateNode_ReplacesChildrenWhenReturned(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		`{"title":"Methods","content":"rewritten","children":[{"title":"Espresso","content":"pressure"}]}`,
	}}
	eng, store := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	m := generateFixture(t, eng)
	target := m.Nodes[0]

	res, err := eng.RegenerateNode(context.Background(), m.ID, RegenerationRequest{
		NodeID:     target.ID,
		Credential: "test-key",
	})
	require.NoError(t, err)
	require.Equal(t, target.ID, res.Node.ID)

	after, _ := store.GetMindMap(context.Background(), m.ID)
	n := mindmap.FindNode(after.Nodes, target.ID)
	require.Len(t, n.Children, 1)
	require.Equal(t, "Espresso", n.Children[0].Title)
	require.Equal(t, n.Level+1, n.Children[0].Level)
	require.Equal(t, 0, n.Children[0].Order)
}

func TestSummarize_SecondCallIsCached(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		`{"summary":"A map of brewing methods and the variables that shape them."}`,
	}}
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	eng, _ := newTestEngine(t, adapter, clk)

	m := generateFixture(t, eng)
	callsAfterGenerate := adapter.callCount()

	first, err := eng.Summarize(context.Background(), SummarizationRequest{
		MindMapID:  m.ID,
		Credential: "test-key",
	})
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, callsAfterGenerate+1, adapter.callCount())

	clk.Advance(10 * time.Minute)
	second, err := eng.Summarize(context.Background(), SummarizationRequest{
		MindMapID:  m.ID,
		Credential: "test-key",
	})
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Summary, second.Summary)
	require.Equal(t, callsAfterGenerate+1, adapter.callCount(), "cached summary must not hit the provider")
}

func TestSummarize_PromptListsDeduplicatedSources(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		`{"summary":"A sourced overview."}`,
	}}
	eng, _ := newTestEngine(t, adapter, &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)})

	m := generateFixture(t, eng)
	_, err := eng.Summarize(context.Background(), SummarizationRequest{MindMapID: m.ID, Credential: "test-key"})
	require.NoError(t, err)

	p := adapter.lastPrompt()
	require.Contains(t, p, "Sources:")
	require.Equal(t, 1, strings.Count(p, "SCA brewing handbook"))
}

func TestSummarize_RefreshesAfterAnHour(t *testing.T) {
	adapter := &fakeAdapter{responses: []string{
		generatedMapJSON,
		`{"summary":"First pass."}`,
		`{"summary":"Second pass."}`,
	}}
	clk := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	eng, _ := newTestEngine(t, adapter, clk)

	m := generateFixture(t, eng)

	first, err := eng.Summarize(context.Background(), SummarizationRequest{MindMapID: m.ID, Credential: "test-key"})
	require.NoError(t, err)
	require.Equal(t, "First pass.", first.Summary)

	clk.Advance(2 * time.Hour)
	second, err := eng.Summarize(context.Background(), SummarizationRequest{MindMapID: m.ID, Credential: "test-key"})
	require.NoError(t, err)
	require.False(t, second.Cached)
	require.Equal(t, "Second pass.", second.Summary)
}

func TestSummarize_UnknownMap(t *testing.T) {
	adapter := &fakeAdapter{}
	eng, _ := newTestEngine(t, adapter, &fakeClock{now: time.Now()})

	_, err := eng.Summarize(context.Background(), SummarizationRequest{MindMapID: "nope", Credential: "k"})
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, adapter.callCount())
}
