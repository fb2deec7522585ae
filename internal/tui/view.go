package tui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/hylla/trestle/internal/dnd"
)

var (
	accentColor = lipgloss.Color("212")
	focusColor  = lipgloss.Color("62")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
	textColor   = lipgloss.Color("252")
)

// renderGrid composes handles, cells, elements and the drag overlay on one canvas.
func (m Model) renderGrid() string {
	g := m.ctrl.Grid()
	l := m.layout()
	over, _ := m.ctrl.Over()
	active := m.activeTarget()

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(textColor)
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)
	header := titleStyle.Render("trestle") + statusStyle.Render(fmt.Sprintf("  %d rows · %d columns · %d elements", len(g.Rows), len(g.Columns), len(g.Elements)))
	if m.showRegions {
		overID := "(empty)"
		if !over.IsZero() {
			overID = over.String()
		}
		header += statusStyle.Render(fmt.Sprintf("  regions: %d  over: %s", len(l.regions), overID))
	}

	width := max(m.width, handleWidth+len(g.Columns)*l.columnWidth)
	height := max(l.height, gridTop+1)
	canvas := lipgloss.NewCanvas(width, height)
	canvas.Compose(lipgloss.NewLayer(header).X(0).Y(0).Z(0))

	borderFor := func(t dnd.Target) lipgloss.Style {
		style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(dimColor)
		switch {
		case !over.IsZero() && t == over:
			return style.BorderForeground(accentColor)
		case t == m.focus:
			return style.BorderForeground(focusColor)
		}
		return style
	}
	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	for _, col := range g.Columns {
		t := dnd.ColumnTarget(col.ID)
		b, _ := l.bounds(t)
		canvas.Compose(lipgloss.NewLayer(renderBox(borderFor(t), b, nameStyle.Render(truncate(col.Name, b.w-2)))).X(b.x).Y(b.y).Z(0))
	}
	for _, row := range g.Rows {
		t := dnd.RowTarget(row.ID)
		b, _ := l.bounds(t)
		canvas.Compose(lipgloss.NewLayer(renderBox(borderFor(t), b, nameStyle.Render(truncate(row.Name, b.w-2)))).X(b.x).Y(b.y).Z(0))
		for _, col := range g.Columns {
			ct := dnd.CellTarget(col.ID, row.ID)
			cb, _ := l.bounds(ct)
			canvas.Compose(lipgloss.NewLayer(renderBox(borderFor(ct), cb, "")).X(cb.x).Y(cb.y).Z(0))
		}
	}

	elemStyle := lipgloss.NewStyle().Foreground(textColor)
	focusElemStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	overElemStyle := lipgloss.NewStyle().Foreground(textColor).Background(lipgloss.Color("237")).Bold(true)
	placeholderStyle := lipgloss.NewStyle().Foreground(dimColor).Faint(true)
	for _, elem := range g.Elements {
		t := dnd.ElementTarget(elem.ID)
		b, ok := l.bounds(t)
		if !ok {
			continue
		}
		style := elemStyle
		switch {
		case t == active:
			style = placeholderStyle
		case !over.IsZero() && t == over:
			style = overElemStyle
		case t == m.focus:
			style = focusElemStyle
		}
		line := "• " + truncate(elem.Name, b.w-2)
		canvas.Compose(lipgloss.NewLayer(style.Width(b.w).MaxWidth(b.w).Render(line)).X(b.x).Y(b.y).Z(1))
	}

	if !active.IsZero() {
		overlay := lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(focusColor).
			Bold(true).
			Padding(0, 1).
			Render(truncate(m.label(active), max(1, m.dragged.w-2)))
		x := clamp(m.dragged.x, 0, max(0, width-1))
		y := clamp(m.dragged.y, 0, max(0, height-1))
		canvas.Compose(lipgloss.NewLayer(overlay).X(x).Y(y).Z(10))
	}
	return canvas.Render()
}

// renderBox draws a bordered box sized to b.
func renderBox(style lipgloss.Style, b box, content string) string {
	return style.
		Width(b.w).
		Height(b.h).
		MaxWidth(b.w).
		MaxHeight(b.h).
		Render(content)
}

// renderStatus renders the status line.
func (m Model) renderStatus() string {
	status := m.status
	if m.ctrl.Dragging() {
		status += "  [" + m.source.String() + " drag]"
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Render(truncate(status, max(1, m.width)))
}

// renderHelpOverlay renders the key reference through glamour.
func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString("# trestle\n\nDrag elements between cells, or drag row and column handles to reorder them.\n\n")
	b.WriteString("| key | action |\n|---|---|\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\nMouse: press on a handle or element and move past the drag threshold to start dragging.\n")

	width := clamp(m.width-8, 24, 72)
	body := m.markdown.render(b.String(), width)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(focusColor).
		Padding(0, 1).
		Render(body)
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay over base.
func overlayOnContent(base, overlay string, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}

// truncate shortens s to limit runes with a trailing ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit == 1 {
		return string(rs[:1])
	}
	return string(rs[:limit-1]) + "…"
}
