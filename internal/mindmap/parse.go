package mindmap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports generative output that failed the JSON or schema
// boundary. Nothing that fails here ever reaches the domain model.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse model output: " + e.Reason + ": " + e.Err.Error()
	}
	return "parse model output: " + e.Reason
}
func (e *ParseError) Unwrap() error { return e.Err }

func parseErrorf(err error, format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// Parse-only shapes. Model output is decoded into these, validated, and
// only then converted into domain nodes.
type rawCitation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
	Author  string `json:"author"`
}

type rawNode struct {
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Children  []rawNode     `json:"children"`
	Citations []rawCitation `json:"citations"`
}

type rawMap struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Complexity  string          `json:"complexity"`
	RootNodes   json.RawMessage `json:"rootNodes"`
}

// GeneratedMap is the validated result of a full-map generation response.
type GeneratedMap struct {
	Title       string
	Description string
	Complexity  Complexity
	Roots       []*MapNode
}

// ParseGenerated validates a whole-map generation response.
func ParseGenerated(raw []byte) (*GeneratedMap, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var m rawMap
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, parseErrorf(err, "response is not a JSON object")
	}
	if strings.TrimSpace(m.Title) == "" {
		return nil, parseErrorf(nil, "missing required field %q", "title")
	}
	if len(m.RootNodes) == 0 {
		return nil, parseErrorf(nil, "missing required field %q", "rootNodes")
	}
	var roots []rawNode
	if err := json.Unmarshal(m.RootNodes, &roots); err != nil {
		return nil, parseErrorf(err, "field %q is not an array", "rootNodes")
	}
	if len(roots) == 0 {
		return nil, parseErrorf(nil, "field %q is empty", "rootNodes")
	}
	complexity, ok := ParseComplexity(strings.TrimSpace(m.Complexity))
	if !ok {
		return nil, parseErrorf(nil, "missing or invalid field %q", "complexity")
	}
	nodes, err := convertNodes(roots)
	if err != nil {
		return nil, err
	}
	return &GeneratedMap{
		Title:       strings.TrimSpace(m.Title),
		Description: strings.TrimSpace(m.Description),
		Complexity:  complexity,
		Roots:       nodes,
	}, nil
}

// ParseExpansion validates an expansion response: either a bare array of
// nodes or an object with a "nodes" array.
func ParseExpansion(raw []byte) ([]*MapNode, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var nodes []rawNode
	if err := json.Unmarshal(body, &nodes); err == nil {
		return convertRequireNonEmpty(nodes)
	}
	var wrapper struct {
		Nodes []rawNode `json:"nodes"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, parseErrorf(err, "response is neither a node array nor a {nodes} object")
	}
	return convertRequireNonEmpty(wrapper.Nodes)
}

// Regeneration is the validated result of a node-regeneration response.
// Children is nil when the model chose not to replace the subtree.
type Regeneration struct {
	Title    string
	Content  string
	Children []*MapNode
}

// ParseRegeneration validates a node-regeneration response.
func ParseRegeneration(raw []byte) (*Regeneration, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var r struct {
		Title    string          `json:"title"`
		Content  string          `json:"content"`
		Children json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, parseErrorf(err, "response is not a JSON object")
	}
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Content) == "" {
		return nil, parseErrorf(nil, "neither %q nor %q present", "title", "content")
	}
	out := &Regeneration{Title: strings.TrimSpace(r.Title), Content: strings.TrimSpace(r.Content)}
	if len(r.Children) > 0 && string(r.Children) != "null" {
		var children []rawNode
		if err := json.Unmarshal(r.Children, &children); err != nil {
			return nil, parseErrorf(err, "field %q is not an array", "children")
		}
		nodes, err := convertNodes(children)
		if err != nil {
			return nil, err
		}
		out.Children = nodes
	}
	return out, nil
}

// ParseSummary validates a map-summarization response.
func ParseSummary(raw []byte) (string, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return "", err
	}
	var s struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(body, &s); err != nil {
		return "", parseErrorf(err, "response is not a JSON object")
	}
	if strings.TrimSpace(s.Summary) == "" {
		return "", parseErrorf(nil, "missing required field %q", "summary")
	}
	return strings.TrimSpace(s.Summary), nil
}

func convertRequireNonEmpty(nodes []rawNode) ([]*MapNode, error) {
	if len(nodes) == 0 {
		return nil, parseErrorf(nil, "no nodes in response")
	}
	return convertNodes(nodes)
}

func convertNodes(in []rawNode) ([]*MapNode, error) {
	out := make([]*MapNode, 0, len(in))
	for _, r := range in {
		title := strings.TrimSpace(r.Title)
		content := strings.TrimSpace(r.Content)
		if title == "" && content == "" {
			return nil, parseErrorf(nil, "node with neither title nor content")
		}
		if content == "" {
			content = title
		}
		n := &MapNode{Title: title, Content: content}
		for _, c := range r.Citations {
			if strings.TrimSpace(c.Title) == "" {
				continue
			}
			n.Citations = append(n.Citations, Citation{
				Title:   strings.TrimSpace(c.Title),
				URL:     strings.TrimSpace(c.URL),
				Summary: strings.TrimSpace(c.Summary),
				Author:  strings.TrimSpace(c.Author),
			})
		}
		if len(r.Children) > 0 {
			children, err := convertNodes(r.Children)
			if err != nil {
				return nil, err
			}
			n.Children = children
		}
		out = append(out, n)
	}
	return out, nil
}

// extractJSON trims whitespace and markdown code fences that models wrap
// around JSON despite being asked not to.
func extractJSON(raw []byte) ([]byte, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, parseErrorf(nil, "empty response")
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		return nil, parseErrorf(nil, "response is not JSON")
	}
	return []byte(s), nil
}
