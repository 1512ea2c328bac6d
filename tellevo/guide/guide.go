// Package guide is a searchable operator knowledge base for the TeLlevo admin
// platform: architecture notes, API routes, troubleshooting recipes and
// development workflows. Content lives in guide.yaml; this package only
// indexes and queries it.
package guide

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed guide.yaml
var defaultContent []byte

// Section is one node of the knowledge tree. Leaves carry Text or Items;
// inner nodes carry Children in document order.
type Section struct {
	Name     string
	Path     string
	Text     string
	Items    []string
	Children []*Section
}

// Child returns the direct child called name, or nil.
func (s *Section) Child(name string) *Section {
	for _, c := range s.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Lookup resolves a dotted path relative to s.
func (s *Section) Lookup(path string) *Section {
	cur := s
	for _, part := range strings.Split(path, ".") {
		if cur = cur.Child(part); cur == nil {
			return nil
		}
	}
	return cur
}

// Match is a search hit on a single string leaf or list item.
type Match struct {
	Path    string
	Content string
	Score   int
	// InList is set when the hit is an element of a list.
	InList bool
}

// Guidance is the answer to a troubleshooting or development question.
type Guidance struct {
	Category     string
	Marker       string
	Sections     []*Section
	RelatedFiles []string
	NextSteps    []string
	// Suggestion is only set on the General fallback.
	Suggestion string
	// Areas lists the context areas; set on the General development fallback.
	Areas []string
}

type rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Sections []string `yaml:"sections"`
	Marker   string   `yaml:"marker"`
	Files    []string `yaml:"files"`
	Next     []string `yaml:"next"`
}

type document struct {
	Sections     yaml.Node         `yaml:"sections"`
	Areas        map[string]string `yaml:"areas"`
	Troubleshoot []rule            `yaml:"troubleshoot"`
	Develop      []rule            `yaml:"develop"`
}

// Guide answers questions over a Section tree.
type Guide struct {
	root         *Section
	areas        map[string]string
	troubleshoot []rule
	develop      []rule
}

// Default returns the guide built from the embedded TeLlevo content.
func Default() *Guide {
	g, err := Load(defaultContent)
	if err != nil {
		panic(fmt.Sprintf("guide: embedded content: %v", err))
	}
	return g
}

// Load parses a guide document. Every area and rule must point at an existing
// section.
func Load(data []byte) (*Guide, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse guide: %w", err)
	}
	if doc.Sections.Kind != yaml.MappingNode {
		return nil, errors.New("guide: sections must be a mapping")
	}
	root := &Section{}
	if err := fill(root, &doc.Sections); err != nil {
		return nil, err
	}

	g := &Guide{root: root, areas: doc.Areas, troubleshoot: doc.Troubleshoot, develop: doc.Develop}
	for area, path := range g.areas {
		if root.Lookup(path) == nil {
			return nil, fmt.Errorf("guide: area %q points at missing section %q", area, path)
		}
	}
	for _, rules := range [][]rule{g.troubleshoot, g.develop} {
		for _, r := range rules {
			for _, path := range r.Sections {
				if root.Lookup(path) == nil {
					return nil, fmt.Errorf("guide: rule %q points at missing section %q", r.Category, path)
				}
			}
		}
	}
	return g, nil
}

func fill(s *Section, n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		s.Text = n.Value
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("guide: %s:%d: list items must be strings", s.Path, item.Line)
			}
			s.Items = append(s.Items, item.Value)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			name := n.Content[i].Value
			child := &Section{Name: name, Path: name}
			if s.Path != "" {
				child.Path = s.Path + "." + name
			}
			if err := fill(child, n.Content[i+1]); err != nil {
				return err
			}
			s.Children = append(s.Children, child)
		}
	default:
		return fmt.Errorf("guide: %s: unsupported node kind %d", s.Path, n.Kind)
	}
	return nil
}

// Root returns the whole tree.
func (g *Guide) Root() *Section { return g.root }

// Areas returns the names accepted by Context, sorted.
func (g *Guide) Areas() []string {
	out := make([]string, 0, len(g.areas))
	for a := range g.areas {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Context returns the section for a named area, or the root for unknown
// areas.
func (g *Guide) Context(area string) *Section {
	if path, ok := g.areas[strings.ToLower(strings.TrimSpace(area))]; ok {
		return g.root.Lookup(path)
	}
	return g.root
}

// Search scores every string leaf and list item by how many query terms it
// contains, case-insensitively. Results are ordered by score, highest first;
// ties keep document order.
func (g *Guide) Search(query string) []Match {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	var out []Match
	var walk func(*Section)
	walk = func(s *Section) {
		if s.Text != "" {
			if score := scoreOf(s.Text, terms); score > 0 {
				out = append(out, Match{Path: s.Path, Content: s.Text, Score: score})
			}
		}
		for i, item := range s.Items {
			if score := scoreOf(item, terms); score > 0 {
				out = append(out, Match{Path: fmt.Sprintf("%s[%d]", s.Path, i), Content: item, Score: score, InList: true})
			}
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(g.root)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func scoreOf(text string, terms []string) int {
	text = strings.ToLower(text)
	score := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			score++
		}
	}
	return score
}

// Troubleshoot picks the first troubleshooting rule whose keywords appear in
// issue.
func (g *Guide) Troubleshoot(issue string) Guidance {
	if r, ok := firstRule(g.troubleshoot, issue); ok {
		return g.guidance(r)
	}
	return Guidance{
		Category:   "General",
		Suggestion: "No specific troubleshooting pattern found. Search the guide for related terms.",
	}
}

// Develop picks the first development rule whose keywords appear in task.
func (g *Guide) Develop(task string) Guidance {
	if r, ok := firstRule(g.develop, task); ok {
		return g.guidance(r)
	}
	return Guidance{
		Category:   "General Development",
		Suggestion: "Open a specific area for details.",
		Areas:      g.Areas(),
	}
}

func firstRule(rules []rule, text string) (rule, bool) {
	text = strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return r, true
			}
		}
	}
	return rule{}, false
}

func (g *Guide) guidance(r rule) Guidance {
	out := Guidance{
		Category:     r.Category,
		Marker:       r.Marker,
		RelatedFiles: r.Files,
		NextSteps:    r.Next,
	}
	for _, path := range r.Sections {
		out.Sections = append(out.Sections, g.root.Lookup(path))
	}
	return out
}
