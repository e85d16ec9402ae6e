package engine

import "mindforge/internal/mindmap"

// GenerateRequest asks for a whole new map from a user prompt.
// Credential is an opaque decrypted API key supplied by the caller; when
// empty the engine asks its credential collaborator. It is never persisted.
type GenerateRequest struct {
	Prompt     string             `json:"prompt"`
	Complexity mindmap.Complexity `json:"complexity"`
	Focus      string             `json:"focus,omitempty"`
	Provider   string             `json:"provider,omitempty"`
	UserID     string             `json:"userId,omitempty"`
	Credential string             `json:"-"`
}

// ExpansionRequest asks for new children under an existing node.
type ExpansionRequest struct {
	NodeID     string             `json:"nodeId"`
	Prompt     string             `json:"prompt,omitempty"`
	Depth      int                `json:"depth,omitempty"`
	Complexity mindmap.Complexity `json:"complexity,omitempty"`
	Provider   string             `json:"provider,omitempty"`
	UserID     string             `json:"userId,omitempty"`
	Credential string             `json:"-"`
}

// RegenerationRequest asks for an in-place rewrite of an existing node.
type RegenerationRequest struct {
	NodeID     string             `json:"nodeId"`
	Prompt     string             `json:"prompt,omitempty"`
	Complexity mindmap.Complexity `json:"complexity,omitempty"`
	Provider   string             `json:"provider,omitempty"`
	UserID     string             `json:"userId,omitempty"`
	Credential string             `json:"-"`
}

// SummarizationRequest asks for a short prose summary of a whole map.
type SummarizationRequest struct {
	MindMapID  string `json:"mindMapId"`
	Provider   string `json:"provider,omitempty"`
	UserID     string `json:"userId,omitempty"`
	Credential string `json:"-"`
}

// ExpansionResult reports the nodes added under the target.
type ExpansionResult struct {
	NewNodes   []*mindmap.MapNode `json:"newNodes"`
	TokensUsed int                `json:"tokensUsed"`
	Provider   string             `json:"provider"`
}

// RegenerationResult reports the rewritten node (same id as before).
type RegenerationResult struct {
	Node       *mindmap.MapNode `json:"node"`
	TokensUsed int              `json:"tokensUsed"`
	Provider   string           `json:"provider"`
}

// SummaryResult reports a map summary. Cached is true when the stored
// summary was still fresh and no provider call was made.
type SummaryResult struct {
	Summary    string `json:"summary"`
	TokensUsed int    `json:"tokensUsed,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Cached     bool   `json:"cached"`
}
