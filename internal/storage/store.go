package storage

import (
	"context"
	"errors"
	"time"

	"mindforge/internal/mindmap"
)

var (
	ErrNotFound        = errors.New("mind map not found")
	ErrVersionConflict = errors.New("mind map version conflict")
)

// Store is the persistence collaborator. The engine is handed tree
// snapshots and returns tree deltas; it never issues raw queries itself.
//
// Tree-mutating writes are version-guarded: callers pass the version they
// read, and the write either applies atomically (bumping the version) or
// fails with ErrVersionConflict. This closes the race where two concurrent
// expansions of sibling nodes would otherwise write colliding orders.
type Store interface {
	// GetMindMap returns the map with its full node tree.
	GetMindMap(ctx context.Context, id string) (*mindmap.MindMap, error)

	// CreateMindMap persists a new map and its whole tree atomically.
	CreateMindMap(ctx context.Context, m *mindmap.MindMap) error

	// InsertNodes adds new nodes (flat, ParentID set) to an existing map.
	InsertNodes(ctx context.Context, mapID string, version int64, nodes []*mindmap.MapNode) error

	// UpdateNode rewrites a node's title and content in place. When
	// replaceChildren is true the node's existing subtree is replaced by
	// children in the same write.
	UpdateNode(ctx context.Context, mapID string, version int64, nodeID, title, content string, children []*mindmap.MapNode, replaceChildren bool) error

	// UpdateSummary persists a new summary and bumps updatedAt.
	UpdateSummary(ctx context.Context, mapID, summary string, at time.Time) error
}
