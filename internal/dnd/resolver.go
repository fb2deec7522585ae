package dnd

import "slices"

// Placement is the cell an element occupies at the time of a tick.
type Placement struct {
	ElementID int `json:"element_id"`
	RowID     int `json:"row_id"`
	ColumnID  int `json:"column_id"`
}

// Args is the input of one drag-over or drag-end tick.
type Args struct {
	// Active is the identifier of the dragged item.
	Active string `json:"active"`
	// Regions are the droppable regions in registration order.
	Regions []Region `json:"regions"`
	// Pointer is nil for keyboard drags.
	Pointer *Point `json:"pointer,omitempty"`
	// Dragged is the current rectangle of the dragged item.
	Dragged  Rect        `json:"dragged"`
	Elements []Placement `json:"elements"`
}

// reference returns the point distances are measured from.
func (a Args) reference() Point {
	if a.Pointer != nil {
		return *a.Pointer
	}
	return a.Dragged.Center()
}

// Session is the state of one drag gesture. Its sticky target is the last
// resolved cell or element and never outlives the gesture.
type Session struct {
	ID string

	active   Target
	lastOver Target
}

// NewSession opens a session for the given active target.
func NewSession(id string, active Target) *Session {
	return &Session{ID: id, active: active}
}

// Active returns the dragged target.
func (s *Session) Active() Target {
	if s == nil {
		return Target{}
	}
	return s.active
}

// LastOver returns the sticky fallback target.
func (s *Session) LastOver() (Target, bool) {
	if s == nil || s.lastOver.IsZero() {
		return Target{}, false
	}
	return s.lastOver, true
}

// Reset clears the sticky fallback.
func (s *Session) Reset() {
	if s == nil {
		return
	}
	s.lastOver = Target{}
}

// bind attaches the session to active, clearing the fallback when the drag restarted on another item.
func (s *Session) bind(active Target) {
	if s == nil {
		return
	}
	if s.active != active {
		s.active = active
		s.lastOver = Target{}
	}
}

func (s *Session) remember(t Target) {
	if s == nil {
		return
	}
	s.lastOver = t
}

// fallback returns the sticky target, or the empty target.
func (s *Session) fallback() (Target, bool) {
	return s.LastOver()
}

// Strategy resolves a tick into a single drop target.
type Strategy interface {
	resolve(s *Session, active Target, args Args, cands []candidate) (Target, bool)
}

// StructuralStrategy serves row and column handle drags by corner proximity.
type StructuralStrategy struct{}

// resolve returns the handle of the active kind whose corners best match the dragged rect.
func (StructuralStrategy) resolve(_ *Session, active Target, args Args, cands []candidate) (Target, bool) {
	sameKind := slices.DeleteFunc(slices.Clone(cands), func(c candidate) bool {
		return c.target.Kind() != active.Kind()
	})
	hits := closestCorners(args.Dragged, sameKind)
	if len(hits) == 0 {
		return Target{}, false
	}
	return hits[0].Target, true
}

// ElementStrategy serves element drags: pointer containment first, rect
// overlap as fallback, then narrowing an occupied cell to its closest element.
type ElementStrategy struct{}

// resolve returns the cell or element under the drag, or the session's sticky target.
func (ElementStrategy) resolve(s *Session, _ Target, args Args, cands []candidate) (Target, bool) {
	hits := pointerWithin(args.Pointer, cands)
	if len(hits) == 0 {
		hits = rectIntersection(args.Dragged, cands)
	}
	if len(hits) == 0 {
		return s.fallback()
	}

	over := hits[0].Target
	switch over.Kind() {
	case KindCell:
		over = narrowCell(over, args, cands)
	case KindElement:
	default:
		// Handles are not drop targets for elements.
		return s.fallback()
	}
	s.remember(over)
	return over, true
}

// narrowCell swaps an occupied cell for its element closest to the reference
// point. The cell is kept when none of its occupants has a region.
func narrowCell(cell Target, args Args, cands []candidate) Target {
	occupants := map[int]struct{}{}
	for _, p := range args.Elements {
		if p.ColumnID == cell.ColumnID() && p.RowID == cell.RowID() {
			occupants[p.ElementID] = struct{}{}
		}
	}
	if len(occupants) == 0 {
		return cell
	}
	var inCell []candidate
	for _, c := range cands {
		if c.target.Kind() != KindElement {
			continue
		}
		if _, ok := occupants[c.target.ElementID()]; ok {
			inCell = append(inCell, c)
		}
	}
	hits := closestCenter(args.reference(), inCell)
	if len(hits) == 0 {
		return cell
	}
	return hits[0].Target
}

// StrategyFor selects the strategy for an active target.
func StrategyFor(active Target) Strategy {
	if active.Kind().Structural() {
		return StructuralStrategy{}
	}
	return ElementStrategy{}
}

// Resolve returns the drop target for one tick. It reads s for the sticky
// fallback and updates it; s may be nil for one-off resolution. Malformed
// identifiers never match and an unresolvable tick reports false.
func Resolve(s *Session, args Args) (Target, bool) {
	active, ok := ParseTarget(args.Active)
	if !ok || active.Kind() == KindCell {
		return Target{}, false
	}
	s.bind(active)
	if len(args.Regions) == 0 {
		return Target{}, false
	}
	return StrategyFor(active).resolve(s, active, args, compileRegions(args.Regions))
}
