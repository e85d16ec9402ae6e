package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindforge/internal/mindmap"
)

func seedMap(t *testing.T, s *MemoryStore) *mindmap.MindMap {
	t.Helper()
	m := &mindmap.MindMap{
		ID:         "coffee-1a2b3c4d",
		Title:      "Coffee Brewing",
		Complexity: mindmap.ComplexityModerate,
		Nodes: []*mindmap.MapNode{
			{ID: "methods-1", Title: "Methods", Content: "brew methods", Level: 0, Order: 0,
				Children: []*mindmap.MapNode{
					{ID: "pour-over-1", ParentID: "methods-1", Title: "Pour over", Content: "manual drip", Level: 1, Order: 0},
				}},
			{ID: "variables-1", Title: "Variables", Content: "grind, temp", Level: 0, Order: 1},
		},
	}
	if err := s.CreateMindMap(context.Background(), m); err != nil {
		t.Fatalf("create: %v", err)
	}
	return m
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)

	got, err := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Nodes[0].Title = "mutated"

	again, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	if again.Nodes[0].Title != "Methods" {
		t.Fatalf("store leaked internal state: %q", again.Nodes[0].Title)
	}
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetMindMap(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_InsertNodesBumpsVersion(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)

	add := []*mindmap.MapNode{
		{ID: "immersion-1", ParentID: "methods-1", Title: "Immersion", Content: "french press", Level: 1, Order: 1},
	}
	if err := s.InsertNodes(context.Background(), "coffee-1a2b3c4d", 0, add); err != nil {
		t.Fatalf("insert: %v", err)
	}

	m, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	if m.Version != 1 {
		t.Fatalf("version = %d, want 1", m.Version)
	}
	parent := mindmap.FindNode(m.Nodes, "methods-1")
	if len(parent.Children) != 2 || parent.Children[1].ID != "immersion-1" {
		t.Fatalf("child not attached: %+v", parent.Children)
	}
	if m.Metadata.TotalNodes != 4 {
		t.Fatalf("totalNodes = %d, want 4", m.Metadata.TotalNodes)
	}
}

func TestMemoryStore_InsertNodesStaleVersion(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)

	add := []*mindmap.MapNode{{ID: "x-1", ParentID: "methods-1", Title: "X", Content: "x", Level: 1, Order: 1}}
	if err := s.InsertNodes(context.Background(), "coffee-1a2b3c4d", 0, add); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Same version again: a concurrent writer got there first.
	err := s.InsertNodes(context.Background(), "coffee-1a2b3c4d", 0, add)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("got %v, want ErrVersionConflict", err)
	}
}

func TestMemoryStore_InsertNodesUnknownParentLeavesMapUntouched(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)

	add := []*mindmap.MapNode{
		{ID: "ok-1", ParentID: "methods-1", Title: "OK", Content: "ok", Level: 1, Order: 1},
		{ID: "orphan-1", ParentID: "ghost", Title: "Orphan", Content: "o", Level: 1, Order: 0},
	}
	if err := s.InsertNodes(context.Background(), "coffee-1a2b3c4d", 0, add); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	m, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	if m.Version != 0 {
		t.Fatalf("version bumped on failed insert: %d", m.Version)
	}
	if mindmap.FindNode(m.Nodes, "ok-1") != nil {
		t.Fatalf("partial write: ok-1 attached despite batch failure")
	}
}

func TestMemoryStore_UpdateNode(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)

	children := []*mindmap.MapNode{
		{ID: "drip-1", ParentID: "pour-over-1", Title: "Drip rate", Content: "slow", Level: 2, Order: 0},
	}
	err := s.UpdateNode(context.Background(), "coffee-1a2b3c4d", 0, "pour-over-1", "Pour over v2", "manual drip, revisited", children, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	m, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	n := mindmap.FindNode(m.Nodes, "pour-over-1")
	if n.Title != "Pour over v2" || n.Content != "manual drip, revisited" {
		t.Fatalf("node not rewritten: %+v", n)
	}
	if len(n.Children) != 1 || n.Children[0].ID != "drip-1" {
		t.Fatalf("children not replaced: %+v", n.Children)
	}
	if m.Version != 1 {
		t.Fatalf("version = %d, want 1", m.Version)
	}
}

func TestMemoryStore_UpdateNodeKeepsChildrenWhenNotReplacing(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)

	err := s.UpdateNode(context.Background(), "coffee-1a2b3c4d", 0, "methods-1", "Brew methods", "", nil, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	m, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	n := mindmap.FindNode(m.Nodes, "methods-1")
	if n.Content != "brew methods" {
		t.Fatalf("empty content overwrote existing: %q", n.Content)
	}
	if len(n.Children) != 1 {
		t.Fatalf("children dropped: %d", len(n.Children))
	}
}

func TestMemoryStore_TreeMutationsRefreshUpdatedAt(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)
	before, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")

	add := []*mindmap.MapNode{{ID: "x-1", ParentID: "methods-1", Title: "X", Content: "x", Level: 1, Order: 1}}
	if err := s.InsertNodes(context.Background(), "coffee-1a2b3c4d", 0, add); err != nil {
		t.Fatalf("insert: %v", err)
	}
	afterInsert, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	if !afterInsert.Metadata.UpdatedAt.After(before.Metadata.UpdatedAt) {
		t.Fatalf("insert did not refresh updatedAt: %v", afterInsert.Metadata.UpdatedAt)
	}

	if err := s.UpdateNode(context.Background(), "coffee-1a2b3c4d", 1, "x-1", "X2", "xx", nil, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	afterUpdate, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	if afterUpdate.Metadata.UpdatedAt.Before(afterInsert.Metadata.UpdatedAt) {
		t.Fatalf("update moved updatedAt backwards: %v", afterUpdate.Metadata.UpdatedAt)
	}
}

func TestMemoryStore_UpdateSummary(t *testing.T) {
	s := NewMemoryStore()
	seedMap(t, s)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.UpdateSummary(context.Background(), "coffee-1a2b3c4d", "An overview.", at); err != nil {
		t.Fatalf("update summary: %v", err)
	}
	m, _ := s.GetMindMap(context.Background(), "coffee-1a2b3c4d")
	if m.Summary != "An overview." || !m.Metadata.UpdatedAt.Equal(at) {
		t.Fatalf("summary not persisted: %q at %v", m.Summary, m.Metadata.UpdatedAt)
	}
	if m.Version != 0 {
		t.Fatalf("summary write should not bump version, got %d", m.Version)
	}
}
