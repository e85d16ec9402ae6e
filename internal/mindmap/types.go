package mindmap

import "time"

// Complexity controls generation breadth and depth.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityDetailed Complexity = "detailed"
	ComplexityExpert   Complexity = "expert"
)

// Complexities lists all levels in ascending order.
var Complexities = []Complexity{
	ComplexitySimple,
	ComplexityModerate,
	ComplexityComplex,
	ComplexityDetailed,
	ComplexityExpert,
}

func ParseComplexity(s string) (Complexity, bool) {
	for _, c := range Complexities {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Complexity) Valid() bool {
	_, ok := ParseComplexity(string(c))
	return ok
}

// Citation is a source reference attached to a node.
type Citation struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Summary string `json:"summary,omitempty"`
	Author  string `json:"author,omitempty"`
}

// Visual holds layout metadata for the editor.
type Visual struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color,omitempty"`
	Shape  string  `json:"shape"`
}

// MapNode is one element of the hierarchical structure.
// Invariants: Level equals the parent's level plus one (0 for roots),
// and sibling Order values are contiguous integers starting at 0.
type MapNode struct {
	ID          string     `json:"id"`
	ParentID    string     `json:"parentId,omitempty"`
	Title       string     `json:"title,omitempty"`
	Content     string     `json:"content"`
	Level       int        `json:"level"`
	Order       int        `json:"order"`
	Visual      Visual     `json:"visual"`
	IsCollapsed bool       `json:"isCollapsed"`
	Citations   []Citation `json:"citations,omitempty"`
	Children    []*MapNode `json:"children,omitempty"`
}

// Metadata is derived bookkeeping for a whole map.
type Metadata struct {
	TotalNodes int       `json:"totalNodes"`
	MaxDepth   int       `json:"maxDepth"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MindMap is the root aggregate. Version backs optimistic concurrency on
// tree-mutating writes.
type MindMap struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Complexity  Complexity `json:"complexity"`
	Metadata    Metadata   `json:"metadata"`
	Version     int64      `json:"version"`
	Nodes       []*MapNode `json:"nodes"`
}
