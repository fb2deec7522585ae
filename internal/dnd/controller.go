package dnd

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hylla/trestle/internal/domain"
)

// ErrNoDrag and related errors describe invalid controller transitions.
var (
	ErrNoDrag         = errors.New("no drag in progress")
	ErrDragInProgress = errors.New("drag already in progress")
	ErrInvalidActive  = errors.New("invalid active target")
	ErrUnknownTarget  = errors.New("unknown drop target")
)

// OutcomeKind describes what a finished drag committed.
type OutcomeKind int

// OutcomeNone and related constants enumerate drag results.
const (
	OutcomeNone OutcomeKind = iota
	OutcomeReorderRows
	OutcomeReorderColumns
	OutcomeMoveElement
	OutcomeRehomeElement
)

// String returns a short label for logs and status lines.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReorderRows:
		return "reorder rows"
	case OutcomeReorderColumns:
		return "reorder columns"
	case OutcomeMoveElement:
		return "move element"
	case OutcomeRehomeElement:
		return "re-home element"
	default:
		return "none"
	}
}

// Outcome reports the result of Controller.End.
type Outcome struct {
	Kind    OutcomeKind
	Active  Target
	Over    Target
	Changed bool
}

// Controller drives drag sessions over a grid: it resolves every tick,
// re-homes dragged elements while hovering, and commits reorders on drop.
type Controller struct {
	grid     *domain.Grid
	newID    func() string
	session  *Session
	snapshot *domain.Grid
	over     Target
}

// NewController constructs a controller over grid. newID names drag sessions.
func NewController(grid *domain.Grid, newID func() string) *Controller {
	if grid == nil {
		grid = &domain.Grid{}
	}
	if newID == nil {
		newID = func() string { return "" }
	}
	return &Controller{grid: grid, newID: newID}
}

// Grid returns the grid being edited.
func (c *Controller) Grid() *domain.Grid { return c.grid }

// SetGrid swaps the edited grid. It fails while a drag is in progress.
func (c *Controller) SetGrid(grid *domain.Grid) error {
	if c.Dragging() {
		return ErrDragInProgress
	}
	if grid == nil {
		grid = &domain.Grid{}
	}
	c.grid = grid
	return nil
}

// Dragging reports whether a session is open.
func (c *Controller) Dragging() bool { return c.session != nil }

// Session returns the open session, or nil.
func (c *Controller) Session() *Session { return c.session }

// Active returns the dragged target.
func (c *Controller) Active() (Target, bool) {
	if c.session == nil {
		return Target{}, false
	}
	return c.session.Active(), true
}

// Over returns the target resolved on the latest tick.
func (c *Controller) Over() (Target, bool) {
	if c.session == nil || c.over.IsZero() {
		return Target{}, false
	}
	return c.over, true
}

// Start opens a session for the item identified by active.
func (c *Controller) Start(active string) error {
	if c.Dragging() {
		return ErrDragInProgress
	}
	target, ok := ParseTarget(active)
	if !ok || !c.exists(target) {
		return fmt.Errorf("%w: %q", ErrInvalidActive, active)
	}
	c.snapshot = c.grid.Clone()
	c.session = NewSession(c.newID(), target)
	c.over = Target{}
	return nil
}

// Move resolves one drag-over tick and re-homes a dragged element into the
// hovered cell. args.Active and args.Elements are filled from the session.
func (c *Controller) Move(args Args) (Target, bool) {
	if c.session == nil {
		return Target{}, false
	}
	over, ok := c.resolve(c.prepare(args))
	if !ok {
		c.over = Target{}
		return Target{}, false
	}
	if err := c.hover(over); err != nil {
		c.over = Target{}
		return Target{}, false
	}
	c.over = over
	return over, true
}

// hover re-homes the dragged element into the cell of over. Structural drags
// only move on drop.
func (c *Controller) hover(over Target) error {
	active := c.session.Active()
	if active.Kind() != KindElement {
		return nil
	}
	switch over.Kind() {
	case KindCell:
		return c.grid.Rehome(active.ElementID(), over.ColumnID(), over.RowID())
	case KindElement:
		if over.ElementID() == active.ElementID() {
			return nil
		}
		moving, okA := c.grid.Element(active.ElementID())
		target, okO := c.grid.Element(over.ElementID())
		if !okA || !okO {
			return fmt.Errorf("%w: %s", ErrUnknownTarget, over)
		}
		if moving.ColumnID == target.ColumnID && moving.RowID == target.RowID {
			return nil
		}
		return c.grid.Rehome(moving.ID, target.ColumnID, target.RowID)
	}
	return nil
}

// resolve runs one tick against prepared args. A candidate that names a row,
// column, cell or element missing from the grid counts as no candidate, so
// the previous sticky target stands.
func (c *Controller) resolve(prepared Args) (Target, bool) {
	prev, _ := c.session.LastOver()
	over, ok := Resolve(c.session, prepared)
	if ok && !c.placeable(over) {
		c.session.remember(prev)
		return prev, !prev.IsZero()
	}
	return over, ok
}

// End resolves the final tick, commits the drop and closes the session.
// A drop with no target restores the grid as it was when the drag started.
func (c *Controller) End(args Args) (Outcome, error) {
	if c.session == nil {
		return Outcome{}, ErrNoDrag
	}
	prepared := c.prepare(args)
	active := c.session.Active()
	over, ok := c.resolve(prepared)
	snapshot := c.snapshot
	c.close()
	if !ok {
		c.grid = snapshot
		return Outcome{Active: active}, nil
	}

	out := Outcome{Active: active, Over: over}
	var err error
	switch {
	case active.Kind() == KindRow && over.Kind() == KindRow:
		out.Kind = OutcomeReorderRows
		err = c.grid.MoveRow(active.RowID(), over.RowID())
	case active.Kind() == KindColumn && over.Kind() == KindColumn:
		out.Kind = OutcomeReorderColumns
		err = c.grid.MoveColumn(active.ColumnID(), over.ColumnID())
	case active.Kind() == KindElement && over.Kind() == KindElement:
		out.Kind = OutcomeMoveElement
		after := false
		if bounds, found := regionBounds(prepared.Regions, over); found {
			after = prepared.reference().Y > bounds.Center().Y
		}
		err = c.grid.MoveElement(active.ElementID(), over.ElementID(), after)
	case active.Kind() == KindElement && over.Kind() == KindCell:
		out.Kind = OutcomeRehomeElement
		err = c.grid.AppendToCell(active.ElementID(), over.ColumnID(), over.RowID())
	}
	if err != nil {
		c.grid = snapshot
		return Outcome{Active: active, Over: over}, fmt.Errorf("commit %s: %w", out.Kind, err)
	}
	out.Changed = !sameLayout(snapshot, c.grid)
	return out, nil
}

// Cancel restores the pre-drag grid and closes the session.
func (c *Controller) Cancel() {
	if c.session == nil {
		return
	}
	c.grid = c.snapshot
	c.close()
}

func (c *Controller) close() {
	c.session.Reset()
	c.session = nil
	c.snapshot = nil
	c.over = Target{}
}

func (c *Controller) prepare(args Args) Args {
	args.Active = c.session.Active().String()
	args.Elements = Placements(c.grid)
	return args
}

func (c *Controller) exists(t Target) bool {
	switch t.Kind() {
	case KindRow:
		_, ok := c.grid.Row(t.RowID())
		return ok
	case KindColumn:
		_, ok := c.grid.Column(t.ColumnID())
		return ok
	case KindElement:
		_, ok := c.grid.Element(t.ElementID())
		return ok
	default:
		return false
	}
}

// placeable reports whether t names records the grid holds.
func (c *Controller) placeable(t Target) bool {
	if t.Kind() != KindCell {
		return c.exists(t)
	}
	_, okR := c.grid.Row(t.RowID())
	_, okC := c.grid.Column(t.ColumnID())
	return okR && okC
}

// Placements projects the grid's elements into resolver placements.
func Placements(g *domain.Grid) []Placement {
	out := make([]Placement, 0, len(g.Elements))
	for _, e := range g.Elements {
		out = append(out, Placement{ElementID: e.ID, RowID: e.RowID, ColumnID: e.ColumnID})
	}
	return out
}

func regionBounds(regions []Region, t Target) (Rect, bool) {
	id := t.String()
	for _, r := range regions {
		if r.ID == id {
			return r.Bounds, true
		}
	}
	return Rect{}, false
}

func sameLayout(a, b *domain.Grid) bool {
	return slices.Equal(a.Rows, b.Rows) &&
		slices.Equal(a.Columns, b.Columns) &&
		slices.Equal(a.Elements, b.Elements)
}
