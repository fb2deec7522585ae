package tui

import (
	"github.com/hylla/trestle/internal/dnd"
	"github.com/hylla/trestle/internal/domain"
)

// Grid geometry in terminal cells.
const (
	gridTop       = 2
	handleWidth   = 12
	headerHeight  = 3
	minColumnWide = 14
	maxColumnWide = 30
)

// box is an integer screen rectangle.
type box struct {
	x, y, w, h int
}

func (b box) rect() dnd.Rect {
	return dnd.Rect{Left: float64(b.x), Top: float64(b.y), Width: float64(b.w), Height: float64(b.h)}
}

func (b box) contains(x, y int) bool {
	return x >= b.x && x < b.x+b.w && y >= b.y && y < b.y+b.h
}

func (b box) center() (float64, float64) {
	return float64(b.x) + float64(b.w)/2, float64(b.y) + float64(b.h)/2
}

// cellKey identifies one cell.
type cellKey struct {
	column, row int
}

// gridLayout is one layout pass over the grid. regions follow registration
// order: column handles, then per row its handle, its cells in column order and
// each cell's elements in list order.
type gridLayout struct {
	columnWidth int
	height      int
	columns     map[int]box
	rows        map[int]box
	cells       map[cellKey]box
	elements    map[int]box
	occupied    map[cellKey]bool
	regions     []dnd.Region
	targets     []dnd.Target
}

// computeLayout lays g out for a terminal width. width <= 0 uses the widest columns.
func computeLayout(g *domain.Grid, width int) gridLayout {
	l := gridLayout{
		columnWidth: columnWidthFor(width, len(g.Columns)),
		columns:     map[int]box{},
		rows:        map[int]box{},
		cells:       map[cellKey]box{},
		elements:    map[int]box{},
		occupied:    map[cellKey]bool{},
	}

	for idx, col := range g.Columns {
		b := box{x: handleWidth + idx*l.columnWidth, y: gridTop, w: l.columnWidth, h: headerHeight}
		l.columns[col.ID] = b
		l.add(dnd.ColumnTarget(col.ID), b)
	}

	y := gridTop + headerHeight
	for _, row := range g.Rows {
		slots := 1
		for _, col := range g.Columns {
			slots = max(slots, len(g.ElementsIn(col.ID, row.ID)))
		}
		h := slots + 2
		rb := box{x: 0, y: y, w: handleWidth, h: h}
		l.rows[row.ID] = rb
		l.add(dnd.RowTarget(row.ID), rb)
		for idx, col := range g.Columns {
			cb := box{x: handleWidth + idx*l.columnWidth, y: y, w: l.columnWidth, h: h}
			l.cells[cellKey{column: col.ID, row: row.ID}] = cb
			l.add(dnd.CellTarget(col.ID, row.ID), cb)
			for slot, elem := range g.ElementsIn(col.ID, row.ID) {
				eb := box{x: cb.x + 1, y: cb.y + 1 + slot, w: cb.w - 2, h: 1}
				l.elements[elem.ID] = eb
				l.occupied[cellKey{column: col.ID, row: row.ID}] = true
				l.add(dnd.ElementTarget(elem.ID), eb)
			}
		}
		y += h
	}
	l.height = y
	return l
}

func (l *gridLayout) add(t dnd.Target, b box) {
	l.regions = append(l.regions, dnd.Region{ID: t.String(), Bounds: b.rect()})
	l.targets = append(l.targets, t)
}

// columnWidthFor divides the space right of the row handles between columns.
func columnWidthFor(width, columns int) int {
	if width <= 0 || columns == 0 {
		return maxColumnWide
	}
	return clamp((width-handleWidth)/columns, minColumnWide, maxColumnWide)
}

// bounds returns the box registered for t.
func (l gridLayout) bounds(t dnd.Target) (box, bool) {
	var (
		b  box
		ok bool
	)
	switch t.Kind() {
	case dnd.KindRow:
		b, ok = l.rows[t.RowID()]
	case dnd.KindColumn:
		b, ok = l.columns[t.ColumnID()]
	case dnd.KindCell:
		b, ok = l.cells[cellKey{column: t.ColumnID(), row: t.RowID()}]
	case dnd.KindElement:
		b, ok = l.elements[t.ElementID()]
	}
	return b, ok
}

// hit returns the topmost target under a screen cell. Elements sit above cells.
func (l gridLayout) hit(x, y int) (dnd.Target, bool) {
	for id, b := range l.elements {
		if b.contains(x, y) {
			return dnd.ElementTarget(id), true
		}
	}
	for _, t := range l.targets {
		if t.Kind() == dnd.KindElement {
			continue
		}
		if b, ok := l.bounds(t); ok && b.contains(x, y) {
			return t, true
		}
	}
	return dnd.Target{}, false
}

// step returns the nearest target from `from` in direction (dx, dy), where
// exactly one of dx, dy is non-zero. Off-axis distance weighs double and
// occupied cells are skipped in favour of their elements.
func (l gridLayout) step(from dnd.Target, dx, dy int) (dnd.Target, bool) {
	cur, ok := l.bounds(from)
	if !ok {
		if len(l.targets) == 0 {
			return dnd.Target{}, false
		}
		return l.targets[0], true
	}
	cx, cy := cur.center()
	var (
		best      dnd.Target
		bestScore float64
		found     bool
	)
	for _, t := range l.targets {
		if t == from || (t.Kind() == dnd.KindCell && l.occupied[cellKey{column: t.ColumnID(), row: t.RowID()}]) {
			continue
		}
		b, _ := l.bounds(t)
		tx, ty := b.center()
		along, across := (tx-cx)*float64(dx)+(ty-cy)*float64(dy), 0.0
		if dx != 0 {
			across = abs(ty - cy)
		} else {
			across = abs(tx - cx)
		}
		if along <= 0 {
			continue
		}
		score := along + 2*across
		if !found || score < bestScore {
			best, bestScore, found = t, score, true
		}
	}
	return best, found
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
