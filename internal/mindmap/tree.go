package mindmap

import (
	"fmt"
	"strings"
)

// AssignStructure walks roots and assigns id, parentId, level and order to
// every node. Roots get level 0 and parentID ""; children get the parent's
// level plus one. Order is the index within the sibling slice, offset by
// orderBase for the top slice (expansion appends after existing children).
func AssignStructure(roots []*MapNode, parentID string, parentLevel int, orderBase int, gen *UIDGenerator) {
	if gen == nil {
		gen = NewUIDGenerator()
	}
	for i, n := range roots {
		if n == nil {
			continue
		}
		if n.ID == "" {
			n.ID = gen.Generate(n.Title)
		}
		n.ParentID = parentID
		if parentID == "" {
			n.Level = 0
		} else {
			n.Level = parentLevel + 1
		}
		n.Order = orderBase + i
		assignCitationIDs(n, gen)
		AssignStructure(n.Children, n.ID, n.Level, 0, gen)
	}
}

func assignCitationIDs(n *MapNode, gen *UIDGenerator) {
	for i := range n.Citations {
		if n.Citations[i].ID == "" {
			n.Citations[i].ID = gen.CitationID(n.Citations[i].Title)
		}
	}
}

// Walk visits every node in depth-first order.
func Walk(roots []*MapNode, fn func(n *MapNode)) {
	for _, n := range roots {
		if n == nil {
			continue
		}
		fn(n)
		Walk(n.Children, fn)
	}
}

// FindNode returns the node with the given id, or nil.
func FindNode(roots []*MapNode, id string) *MapNode {
	var found *MapNode
	Walk(roots, func(n *MapNode) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// CollectIDs returns every node id in the tree.
func CollectIDs(roots []*MapNode) []string {
	var ids []string
	Walk(roots, func(n *MapNode) { ids = append(ids, n.ID) })
	return ids
}

// Flatten returns all nodes in depth-first order as a flat slice.
func Flatten(roots []*MapNode) []*MapNode {
	var out []*MapNode
	Walk(roots, func(n *MapNode) { out = append(out, n) })
	return out
}

// CountNodes returns the total number of nodes in the tree.
func CountNodes(roots []*MapNode) int {
	total := 0
	Walk(roots, func(*MapNode) { total++ })
	return total
}

// MaxDepth returns the deepest level present, or -1 for an empty tree.
func MaxDepth(roots []*MapNode) int {
	depth := -1
	Walk(roots, func(n *MapNode) {
		if n.Level > depth {
			depth = n.Level
		}
	})
	return depth
}

// DedupCitations aggregates every citation in the tree, deduplicated by
// (title, url). First occurrence wins; order is depth-first.
func DedupCitations(roots []*MapNode) []Citation {
	seen := map[string]struct{}{}
	var out []Citation
	Walk(roots, func(n *MapNode) {
		for _, c := range n.Citations {
			key := c.Title + "\x00" + c.URL
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	})
	return out
}

// Outline serializes the map structure as indented text for the
// summarization prompt.
func Outline(m *MindMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", m.Title)
	var walk func(nodes []*MapNode)
	walk = func(nodes []*MapNode) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			title := n.Title
			if title == "" {
				title = firstLine(n.Content)
			}
			fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", n.Level+1), title)
			walk(n.Children)
		}
	}
	walk(m.Nodes)
	return strings.TrimRight(b.String(), "\n")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 80
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// Clone deep-copies a node tree.
func Clone(roots []*MapNode) []*MapNode {
	if roots == nil {
		return nil
	}
	out := make([]*MapNode, 0, len(roots))
	for _, n := range roots {
		if n == nil {
			continue
		}
		cp := *n
		cp.Citations = append([]Citation(nil), n.Citations...)
		cp.Children = Clone(n.Children)
		out = append(out, &cp)
	}
	return out
}

// CloneMap deep-copies a whole mind map.
func CloneMap(m *MindMap) *MindMap {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Nodes = Clone(m.Nodes)
	return &cp
}
