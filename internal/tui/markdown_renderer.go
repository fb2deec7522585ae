package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minMarkdownWidth is the narrowest wrap width handed to glamour.
const minMarkdownWidth = 24

// markdownRenderer renders the help overlay. It keeps one glamour renderer per
// wrap width and the last output, since the overlay redraws on every frame.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	source   string
	output   string
}

// render converts markdown into ANSI-styled terminal text wrapped at width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, minMarkdownWidth)
	if r.renderer != nil && r.width == wrapWidth && r.source == markdown {
		return r.output
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	r.source = markdown
	r.output = strings.Trim(rendered, "\n")
	return r.output
}
