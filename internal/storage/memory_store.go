package storage

import (
	"context"
	"sync"
	"time"

	"mindforge/internal/mindmap"
)

// MemoryStore is a mutex-guarded in-memory Store used by tests and local
// runs. It applies the same version guard as the postgres store.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*mindmap.MindMap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*mindmap.MindMap)}
}

func (s *MemoryStore) GetMindMap(_ context.Context, id string) (*mindmap.MindMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return mindmap.CloneMap(m), nil
}

func (s *MemoryStore) CreateMindMap(_ context.Context, m *mindmap.MindMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[m.ID] = mindmap.CloneMap(m)
	return nil
}

func (s *MemoryStore) InsertNodes(_ context.Context, mapID string, version int64, nodes []*mindmap.MapNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[mapID]
	if !ok {
		return ErrNotFound
	}
	if m.Version != version {
		return ErrVersionConflict
	}
	// Resolve every parent before touching the tree so a bad batch
	// leaves the map unchanged.
	for _, n := range nodes {
		if n.ParentID != "" && mindmap.FindNode(m.Nodes, n.ParentID) == nil && mindmap.FindNode(nodes, n.ParentID) == nil {
			return ErrNotFound
		}
	}
	m.Version++
	for _, n := range nodes {
		n := mindmap.Clone([]*mindmap.MapNode{n})[0]
		if n.ParentID == "" {
			m.Nodes = append(m.Nodes, n)
			continue
		}
		if parent := mindmap.FindNode(m.Nodes, n.ParentID); parent != nil {
			parent.Children = append(parent.Children, n)
		}
	}
	s.refreshMetadata(m)
	return nil
}

func (s *MemoryStore) UpdateNode(_ context.Context, mapID string, version int64, nodeID, title, content string, children []*mindmap.MapNode, replaceChildren bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.lockedForWrite(mapID, version)
	if err != nil {
		return err
	}
	node := mindmap.FindNode(m.Nodes, nodeID)
	if node == nil {
		return ErrNotFound
	}
	if title != "" {
		node.Title = title
	}
	if content != "" {
		node.Content = content
	}
	if replaceChildren {
		node.Children = mindmap.Clone(children)
	}
	s.refreshMetadata(m)
	return nil
}

func (s *MemoryStore) UpdateSummary(_ context.Context, mapID, summary string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[mapID]
	if !ok {
		return ErrNotFound
	}
	m.Summary = summary
	m.Metadata.UpdatedAt = at
	return nil
}

// lockedForWrite resolves the map, enforces the version guard and bumps
// the version. Callers must hold the write lock.
func (s *MemoryStore) lockedForWrite(mapID string, version int64) (*mindmap.MindMap, error) {
	m, ok := s.byID[mapID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.Version != version {
		return nil, ErrVersionConflict
	}
	m.Version++
	return m, nil
}

// refreshMetadata recomputes the derived counters and stamps updatedAt,
// the same bookkeeping the postgres store does on every tree mutation.
func (s *MemoryStore) refreshMetadata(m *mindmap.MindMap) {
	m.Metadata.TotalNodes = mindmap.CountNodes(m.Nodes)
	m.Metadata.MaxDepth = mindmap.MaxDepth(m.Nodes)
	m.Metadata.UpdatedAt = time.Now()
}
