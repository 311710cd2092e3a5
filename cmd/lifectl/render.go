package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// section is one "### " block of an AI answer.
type section struct {
	Title      string
	Paragraphs []string
}

// splitSections cuts text on "### " markers. The first non-blank line of
// each block is its title and the remaining non-blank lines its paragraphs.
func splitSections(text string) []section {
	var out []section
	for i, block := range strings.Split(text, "### ") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var lines []string
		for _, l := range strings.Split(block, "\n") {
			if strings.TrimSpace(l) != "" {
				lines = append(lines, strings.TrimSpace(l))
			}
		}
		s := section{Title: fmt.Sprintf("Section %d", i+1)}
		if len(lines) > 0 {
			s.Title, s.Paragraphs = lines[0], lines[1:]
		}
		out = append(out, s)
	}
	return out
}

// renderReport lays the sections out as markdown and renders them for a
// terminal of the given width. Rendering failures fall back to the markdown.
func renderReport(text string, width int) string {
	var b strings.Builder
	for _, s := range splitSections(text) {
		fmt.Fprintf(&b, "### %s\n\n", s.Title)
		for _, p := range s.Paragraphs {
			b.WriteString(p)
			b.WriteString("\n\n")
		}
	}
	md := b.String()
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}

	style := styles.ASCIIStyleConfig
	style.Item.BlockPrefix = "- "
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}
