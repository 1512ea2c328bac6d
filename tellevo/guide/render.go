package guide

import (
	"fmt"
	"io"
	"strings"
)

// Render writes s as an indented outline.
func Render(w io.Writer, s *Section) error {
	return render(w, s, 0)
}

func render(w io.Writer, s *Section, depth int) error {
	pad := strings.Repeat("  ", depth)
	var err error
	switch {
	case s.Text != "":
		_, err = fmt.Fprintf(w, "%s%s: %s\n", pad, s.Name, s.Text)
	case s.Name != "":
		_, err = fmt.Fprintf(w, "%s%s:\n", pad, s.Name)
	}
	if err != nil {
		return err
	}
	for _, item := range s.Items {
		if _, err := fmt.Fprintf(w, "%s  - %s\n", pad, item); err != nil {
			return err
		}
	}
	next := depth + 1
	if s.Name == "" {
		next = depth
	}
	for _, c := range s.Children {
		if err := render(w, c, next); err != nil {
			return err
		}
	}
	return nil
}

// RenderGuidance writes g for a terminal.
func RenderGuidance(w io.Writer, g Guidance) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", g.Category)
	if g.Marker != "" {
		fmt.Fprintf(&b, "Marker: %s\n", g.Marker)
	}
	if g.Suggestion != "" {
		fmt.Fprintf(&b, "%s\n", g.Suggestion)
	}
	for _, s := range g.Sections {
		b.WriteString("\n")
		if err := Render(&b, s); err != nil {
			return err
		}
	}
	writeList(&b, "Related files", g.RelatedFiles)
	writeList(&b, "Next steps", g.NextSteps)
	writeList(&b, "Areas", g.Areas)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}
