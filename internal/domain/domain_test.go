package domain

import (
	"errors"
	"testing"
)

func seedGrid(t *testing.T) *Grid {
	t.Helper()
	rows := []Row{{ID: 1, Name: "Row 1", Position: 0}, {ID: 2, Name: "Row 2", Position: 1}, {ID: 3, Name: "Row 3", Position: 2}}
	cols := []Column{{ID: 1, Name: "Column 1", Position: 0}, {ID: 2, Name: "Column 2", Position: 1}, {ID: 3, Name: "Column 3", Position: 2}}
	elems := []Element{
		{ID: 1, Name: "Item 1", ColumnID: 1, RowID: 1, Position: 0},
		{ID: 2, Name: "Item 2", ColumnID: 1, RowID: 1, Position: 1},
	}
	g, err := NewGrid(rows, cols, elems)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	return g
}

func elementIDs(g *Grid) []int {
	out := make([]int, 0, len(g.Elements))
	for _, e := range g.Elements {
		out = append(out, e.ID)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewRowValidation(t *testing.T) {
	if _, err := NewRow(0, "x", 0); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewRow(1, "   ", 0); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := NewRow(1, "x", -1); err != ErrInvalidPosition {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	r, err := NewRow(4, "  Row 4 ", 3)
	if err != nil {
		t.Fatalf("NewRow() error = %v", err)
	}
	if r.Name != "Row 4" {
		t.Fatalf("unexpected name %q", r.Name)
	}
}

func TestNewElementValidation(t *testing.T) {
	if _, err := NewElement(1, "x", 0, 1, 0); err != ErrInvalidPlacement {
		t.Fatalf("expected ErrInvalidPlacement, got %v", err)
	}
	if _, err := NewElement(1, "", 1, 1, 0); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestNewGridSortsByPosition(t *testing.T) {
	g, err := NewGrid(
		[]Row{{ID: 2, Name: "b", Position: 5}, {ID: 1, Name: "a", Position: 1}},
		[]Column{{ID: 1, Name: "c", Position: 0}},
		nil,
	)
	if err != nil {
		t.Fatalf("NewGrid() error = %v", err)
	}
	if g.Rows[0].ID != 1 || g.Rows[1].ID != 2 {
		t.Fatalf("unexpected row order %#v", g.Rows)
	}
	if g.Rows[1].Position != 1 {
		t.Fatalf("expected normalized positions, got %d", g.Rows[1].Position)
	}
}

func TestGridValidateRejectsDanglingPlacement(t *testing.T) {
	_, err := NewGrid(
		[]Row{{ID: 1, Name: "r"}},
		[]Column{{ID: 1, Name: "c"}},
		[]Element{{ID: 1, Name: "e", RowID: 9, ColumnID: 1}},
	)
	if !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("expected ErrInvalidPlacement, got %v", err)
	}
	_, err = NewGrid([]Row{{ID: 1, Name: "r"}, {ID: 1, Name: "r"}}, nil, nil)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestArrayMove(t *testing.T) {
	cases := []struct {
		name     string
		from, to int
		want     []int
	}{
		{name: "forward", from: 0, to: 2, want: []int{2, 3, 1, 4}},
		{name: "backward", from: 3, to: 1, want: []int{1, 4, 2, 3}},
		{name: "same", from: 1, to: 1, want: []int{1, 2, 3, 4}},
		{name: "out of range", from: -1, to: 2, want: []int{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := []int{1, 2, 3, 4}
			got := ArrayMove(in, tc.from, tc.to)
			if !equalInts(got, tc.want) {
				t.Fatalf("ArrayMove() = %v, want %v", got, tc.want)
			}
			if !equalInts(in, []int{1, 2, 3, 4}) {
				t.Fatalf("input mutated: %v", in)
			}
		})
	}
}

func TestMoveRowAndColumn(t *testing.T) {
	g := seedGrid(t)
	if err := g.MoveRow(1, 3); err != nil {
		t.Fatalf("MoveRow() error = %v", err)
	}
	if g.Rows[0].ID != 2 || g.Rows[2].ID != 1 || g.Rows[2].Position != 2 {
		t.Fatalf("unexpected rows %#v", g.Rows)
	}
	if err := g.MoveColumn(3, 1); err != nil {
		t.Fatalf("MoveColumn() error = %v", err)
	}
	if g.Columns[0].ID != 3 {
		t.Fatalf("unexpected columns %#v", g.Columns)
	}
	if err := g.MoveRow(1, 42); err != ErrUnknownRow {
		t.Fatalf("expected ErrUnknownRow, got %v", err)
	}
}

func TestMoveElementBeforeAndAfter(t *testing.T) {
	g := seedGrid(t)
	if err := g.MoveElement(1, 2, true); err != nil {
		t.Fatalf("MoveElement() error = %v", err)
	}
	if got := elementIDs(g); !equalInts(got, []int{2, 1}) {
		t.Fatalf("unexpected order after = %v", got)
	}
	if err := g.MoveElement(1, 2, false); err != nil {
		t.Fatalf("MoveElement() error = %v", err)
	}
	if got := elementIDs(g); !equalInts(got, []int{1, 2}) {
		t.Fatalf("unexpected order before = %v", got)
	}
}

func TestMoveElementAdoptsOverCell(t *testing.T) {
	g := seedGrid(t)
	e3, err := g.AddElement("Item 3", 2, 3)
	if err != nil {
		t.Fatalf("AddElement() error = %v", err)
	}
	if err := g.MoveElement(e3.ID, 1, false); err != nil {
		t.Fatalf("MoveElement() error = %v", err)
	}
	moved, _ := g.Element(e3.ID)
	if moved.ColumnID != 1 || moved.RowID != 1 {
		t.Fatalf("expected element in cell (1,1), got (%d,%d)", moved.ColumnID, moved.RowID)
	}
	if got := elementIDs(g); !equalInts(got, []int{3, 1, 2}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestRehomeAndAppendToCell(t *testing.T) {
	g := seedGrid(t)
	if err := g.Rehome(1, 2, 2); err != nil {
		t.Fatalf("Rehome() error = %v", err)
	}
	if got := g.ElementsIn(2, 2); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected cell contents %#v", got)
	}
	if err := g.Rehome(1, 9, 2); err != ErrUnknownColumn {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if err := g.AppendToCell(2, 2, 2); err != nil {
		t.Fatalf("AppendToCell() error = %v", err)
	}
	cell := g.ElementsIn(2, 2)
	if len(cell) != 2 || cell[0].ID != 1 || cell[1].ID != 2 {
		t.Fatalf("unexpected cell order %#v", cell)
	}
}

func TestAddRenameRemoveElement(t *testing.T) {
	g := seedGrid(t)
	e, err := g.AddElement("  New  ", 3, 3)
	if err != nil {
		t.Fatalf("AddElement() error = %v", err)
	}
	if e.ID != 3 || e.Name != "New" || e.Position != 2 {
		t.Fatalf("unexpected element %#v", e)
	}
	if _, err := g.AddElement("x", 7, 3); err != ErrUnknownColumn {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	renamed, err := g.RenameElement(e.ID, "Renamed")
	if err != nil || renamed.Name != "Renamed" {
		t.Fatalf("RenameElement() = %#v, %v", renamed, err)
	}
	if err := g.RemoveElement(1); err != nil {
		t.Fatalf("RemoveElement() error = %v", err)
	}
	if got := elementIDs(g); !equalInts(got, []int{2, 3}) {
		t.Fatalf("unexpected elements %v", got)
	}
	if g.Elements[1].Position != 1 {
		t.Fatalf("expected normalized position, got %d", g.Elements[1].Position)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := seedGrid(t)
	c := g.Clone()
	if err := c.MoveRow(1, 3); err != nil {
		t.Fatalf("MoveRow() error = %v", err)
	}
	if g.Rows[0].ID != 1 {
		t.Fatal("expected original grid unchanged")
	}
	row, err := g.AddRow("Row 4")
	if err != nil || row.ID != 4 {
		t.Fatalf("AddRow() = %#v, %v", row, err)
	}
	col, err := g.AddColumn("Column 4")
	if err != nil || col.ID != 4 {
		t.Fatalf("AddColumn() = %#v, %v", col, err)
	}
}
