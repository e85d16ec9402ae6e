package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mindforge/internal/mindmap"
)

// Template names used by the engine.
const (
	TemplateMindmapReasoning = "mindmap-reasoning"
	TemplateNodeExpansion    = "node-expansion"
	TemplateNodeRegeneration = "node-regeneration"
	TemplateMapSummarization = "map-summarization"
)

var ErrUnknownTemplate = errors.New("unknown prompt template")

// UnsupportedComplexityError reports a complexity outside a template's
// supported set.
type UnsupportedComplexityError struct {
	Template   string
	Complexity mindmap.Complexity
}

func (e *UnsupportedComplexityError) Error() string {
	return fmt.Sprintf("template %s does not support complexity %q", e.Template, e.Complexity)
}

// Template is a named system/user prompt skeleton with placeholders.
type Template struct {
	Name         string
	SystemPrompt string
	UserTemplate string
	Complexities map[mindmap.Complexity]bool
}

// Prompt is a rendered system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// complexityInstructions maps each complexity to the literal instruction
// injected into user prompts. The branching-factor wording is part of the
// generation contract; breadth assertions key off it.
var complexityInstructions = map[mindmap.Complexity]string{
	mindmap.ComplexitySimple:   "Create a focused mind map with 2-4 top-level branches, 2-3 sub-nodes each.",
	mindmap.ComplexityModerate: "Create a balanced mind map with 4-6 top-level branches, 3-4 sub-nodes each.",
	mindmap.ComplexityComplex:  "Create a thorough mind map with 6-8 top-level branches, 3-5 sub-nodes each, and at least two sub-levels.",
	mindmap.ComplexityDetailed: "Create a deep mind map with 6-10 top-level branches, 4-6 sub-nodes each, and several sub-levels.",
	mindmap.ComplexityExpert:   "Create an exhaustive mind map with 8-12 top-level branches, multiple sub-levels, cross-references.",
}

func allComplexities() map[mindmap.Complexity]bool {
	out := make(map[mindmap.Complexity]bool, len(mindmap.Complexities))
	for _, c := range mindmap.Complexities {
		out[c] = true
	}
	return out
}

// Engine holds the registered templates.
type Engine struct {
	templates map[string]Template
}

// NewEngine registers the built-in templates.
func NewEngine() *Engine {
	e := &Engine{templates: map[string]Template{}}
	e.register(Template{
		Name: TemplateMindmapReasoning,
		SystemPrompt: "You are a mind-map architect. Respond with a single JSON object and nothing else. " +
			"The object has \"title\" (string), \"description\" (string), \"complexity\" (string) and " +
			"\"rootNodes\" (array). Every node has \"title\", \"content\", optional \"children\" (array of " +
			"nodes) and optional \"citations\" (array of {title, url, summary, author}).",
		UserTemplate: "Build a mind map for the following topic.\n\n" +
			"Topic: {prompt}\n" +
			"Focus: {focus}\n\n" +
			"{complexityInstructions}",
		Complexities: allComplexities(),
	})
	e.register(Template{
		Name: TemplateNodeExpansion,
		SystemPrompt: "You are a mind-map architect expanding one node of an existing map. Respond with a " +
			"single JSON object {\"nodes\": [...]} and nothing else. Every node has \"title\", \"content\", " +
			"optional \"children\" and optional \"citations\". Do not repeat existing children.",
		UserTemplate: "Expand the mind-map node below with new child nodes.\n\n" +
			"Node: {nodeTitle}\n" +
			"Node content: {nodeContent}\n" +
			"Parent context: {parentContext}\n" +
			"Existing children: {existingChildren}\n" +
			"Guidance: {prompt}\n" +
			"{depthInstructions}\n" +
			"{complexityInstructions}",
		Complexities: allComplexities(),
	})
	e.register(Template{
		Name: TemplateNodeRegeneration,
		SystemPrompt: "You are a mind-map architect rewriting one node of an existing map. Respond with a " +
			"single JSON object {\"title\", \"content\"} and nothing else; include \"children\" (array of " +
			"nodes) only when the whole subtree should be replaced.",
		UserTemplate: "Rewrite the mind-map node below.\n\n" +
			"Node: {nodeTitle}\n" +
			"Node content: {nodeContent}\n" +
			"Guidance: {prompt}\n\n" +
			"{complexityInstructions}",
		Complexities: allComplexities(),
	})
	e.register(Template{
		Name: TemplateMapSummarization,
		SystemPrompt: "You summarize mind maps. Respond with a single JSON object {\"summary\": string} " +
			"and nothing else. The summary is 2-4 sentences of plain prose.",
		UserTemplate: "Summarize the mind map below.\n\n" +
			"Title: {mapTitle}\n" +
			"Structure:\n{mapStructure}\n\n" +
			"Intent: {prompt}",
		Complexities: map[mindmap.Complexity]bool{
			mindmap.ComplexitySimple:   true,
			mindmap.ComplexityModerate: true,
		},
	})
	return e
}

func (e *Engine) register(t Template) {
	e.templates[t.Name] = t
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

// Generate renders the named template. Missing variables substitute to the
// empty string; that is never an error at substitution time.
func (e *Engine) Generate(name string, vars map[string]string, complexity mindmap.Complexity) (Prompt, error) {
	t, ok := e.templates[name]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if !t.Complexities[complexity] {
		return Prompt{}, &UnsupportedComplexityError{Template: name, Complexity: complexity}
	}
	merged := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		merged[k] = v
	}
	merged["complexityInstructions"] = complexityInstructions[complexity]

	user := placeholderRe.ReplaceAllStringFunc(t.UserTemplate, func(m string) string {
		key := m[1 : len(m)-1]
		return merged[key]
	})
	return Prompt{System: t.SystemPrompt, User: user}, nil
}

// Validation is the batched outcome of ValidateVariables.
type Validation struct {
	Valid  bool
	Errors []string
}

// requiredVars lists template-specific required variables on top of the
// always-required "prompt".
var requiredVars = map[string][]string{
	TemplateNodeExpansion:    {"nodeTitle", "nodeContent"},
	TemplateMapSummarization: {"mapTitle", "mapStructure"},
}

// ValidateVariables reports every missing required variable for the named
// template instead of failing on the first, so callers can batch-report.
func (e *Engine) ValidateVariables(name string, vars map[string]string) (Validation, error) {
	if _, ok := e.templates[name]; !ok {
		return Validation{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	required := append([]string{"prompt"}, requiredVars[name]...)
	var errs []string
	for _, key := range required {
		if strings.TrimSpace(vars[key]) == "" {
			errs = append(errs, fmt.Sprintf("variable %q is required", key))
		}
	}
	return Validation{Valid: len(errs) == 0, Errors: errs}, nil
}
