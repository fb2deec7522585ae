// Package dnd resolves drop targets for drag gestures over the grid and
// applies the resulting reorder and re-home mutations.
package dnd

import (
	"strconv"
	"strings"
)

// Kind identifies what a draggable or droppable target refers to.
type Kind int

// KindInvalid and related constants enumerate target kinds.
const (
	KindInvalid Kind = iota
	KindRow
	KindColumn
	KindCell
	KindElement
)

// String returns the identifier prefix for the kind.
func (k Kind) String() string {
	switch k {
	case KindRow:
		return "row"
	case KindColumn:
		return "column"
	case KindCell:
		return "cell"
	case KindElement:
		return "element"
	default:
		return "invalid"
	}
}

// Structural reports whether the kind is a row or column handle.
func (k Kind) Structural() bool {
	return k == KindRow || k == KindColumn
}

// Target is a typed drag/drop identifier. The zero value is the empty target.
type Target struct {
	kind Kind
	// first holds the row, column or element id; for cells it holds the column id.
	first int
	// second holds the row id of a cell.
	second int
}

// RowTarget returns the handle target of a row.
func RowTarget(rowID int) Target {
	return Target{kind: KindRow, first: rowID}
}

// ColumnTarget returns the handle target of a column.
func ColumnTarget(columnID int) Target {
	return Target{kind: KindColumn, first: columnID}
}

// CellTarget returns the target of the cell at (columnID, rowID).
func CellTarget(columnID, rowID int) Target {
	return Target{kind: KindCell, first: columnID, second: rowID}
}

// ElementTarget returns the target of an element.
func ElementTarget(elementID int) Target {
	return Target{kind: KindElement, first: elementID}
}

// Kind returns the target kind.
func (t Target) Kind() Kind { return t.kind }

// IsZero reports whether t is the empty target.
func (t Target) IsZero() bool { return t.kind == KindInvalid }

// RowID returns the row id of a row handle or cell.
func (t Target) RowID() int {
	switch t.kind {
	case KindRow:
		return t.first
	case KindCell:
		return t.second
	default:
		return 0
	}
}

// ColumnID returns the column id of a column handle or cell.
func (t Target) ColumnID() int {
	switch t.kind {
	case KindColumn, KindCell:
		return t.first
	default:
		return 0
	}
}

// ElementID returns the element id of an element target.
func (t Target) ElementID() int {
	if t.kind != KindElement {
		return 0
	}
	return t.first
}

// String renders the composite identifier, e.g. "cell-2-1".
func (t Target) String() string {
	switch t.kind {
	case KindRow, KindColumn, KindElement:
		return t.kind.String() + "-" + strconv.Itoa(t.first)
	case KindCell:
		return "cell-" + strconv.Itoa(t.first) + "-" + strconv.Itoa(t.second)
	default:
		return ""
	}
}

// ParseTarget decodes a composite identifier. Unknown kinds, wrong key
// counts and non-positive, non-numeric or zero-padded keys report false, so a
// parsed target always renders back to raw.
func ParseTarget(raw string) (Target, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) < 2 {
		return Target{}, false
	}
	keys := make([]int, 0, len(parts)-1)
	for _, part := range parts[1:] {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 || part[0] == '+' || part[0] == '0' {
			return Target{}, false
		}
		keys = append(keys, n)
	}

	switch parts[0] {
	case "row":
		if len(keys) == 1 {
			return RowTarget(keys[0]), true
		}
	case "column":
		if len(keys) == 1 {
			return ColumnTarget(keys[0]), true
		}
	case "cell":
		if len(keys) == 2 {
			return CellTarget(keys[0], keys[1]), true
		}
	case "element":
		if len(keys) == 1 {
			return ElementTarget(keys[0]), true
		}
	}
	return Target{}, false
}
