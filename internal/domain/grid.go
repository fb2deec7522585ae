package domain

import (
	"slices"
	"strings"
)

// Row is one horizontal band of the grid.
type Row struct {
	ID       int
	Name     string
	Position int
}

// Column is one vertical band of the grid.
type Column struct {
	ID       int
	Name     string
	Position int
}

// Element is a named item placed in the cell at (RowID, ColumnID).
// Several elements may share a cell; only ID is unique.
type Element struct {
	ID       int
	Name     string
	RowID    int
	ColumnID int
	Position int
}

// NewRow constructs a validated row.
func NewRow(id int, name string, position int) (Row, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return Row{}, ErrInvalidID
	}
	if name == "" {
		return Row{}, ErrInvalidName
	}
	if position < 0 {
		return Row{}, ErrInvalidPosition
	}
	return Row{ID: id, Name: name, Position: position}, nil
}

// NewColumn constructs a validated column.
func NewColumn(id int, name string, position int) (Column, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return Column{}, ErrInvalidID
	}
	if name == "" {
		return Column{}, ErrInvalidName
	}
	if position < 0 {
		return Column{}, ErrInvalidPosition
	}
	return Column{ID: id, Name: name, Position: position}, nil
}

// NewElement constructs a validated element.
func NewElement(id int, name string, columnID, rowID, position int) (Element, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return Element{}, ErrInvalidID
	}
	if name == "" {
		return Element{}, ErrInvalidName
	}
	if columnID <= 0 || rowID <= 0 {
		return Element{}, ErrInvalidPlacement
	}
	if position < 0 {
		return Element{}, ErrInvalidPosition
	}
	return Element{ID: id, Name: name, RowID: rowID, ColumnID: columnID, Position: position}, nil
}

// Rename renames the element.
func (e *Element) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	e.Name = name
	return nil
}

// Grid holds the ordered rows, columns and elements of one layout.
// Slice order is display order; Position fields are kept in sync by Normalize.
type Grid struct {
	Rows     []Row
	Columns  []Column
	Elements []Element
}

// NewGrid builds a grid from unordered slices, sorting each by Position.
func NewGrid(rows []Row, columns []Column, elements []Element) (*Grid, error) {
	g := &Grid{
		Rows:     slices.Clone(rows),
		Columns:  slices.Clone(columns),
		Elements: slices.Clone(elements),
	}
	slices.SortStableFunc(g.Rows, func(a, b Row) int { return a.Position - b.Position })
	slices.SortStableFunc(g.Columns, func(a, b Column) int { return a.Position - b.Position })
	slices.SortStableFunc(g.Elements, func(a, b Element) int { return a.Position - b.Position })
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Normalize()
	return g, nil
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	return &Grid{
		Rows:     slices.Clone(g.Rows),
		Columns:  slices.Clone(g.Columns),
		Elements: slices.Clone(g.Elements),
	}
}

// Validate checks id uniqueness and that every element sits in an existing row and column.
func (g *Grid) Validate() error {
	rowIDs := map[int]struct{}{}
	for _, r := range g.Rows {
		if r.ID <= 0 {
			return ErrInvalidID
		}
		if _, dup := rowIDs[r.ID]; dup {
			return ErrDuplicateID
		}
		rowIDs[r.ID] = struct{}{}
	}
	colIDs := map[int]struct{}{}
	for _, c := range g.Columns {
		if c.ID <= 0 {
			return ErrInvalidID
		}
		if _, dup := colIDs[c.ID]; dup {
			return ErrDuplicateID
		}
		colIDs[c.ID] = struct{}{}
	}
	elemIDs := map[int]struct{}{}
	for _, e := range g.Elements {
		if e.ID <= 0 {
			return ErrInvalidID
		}
		if _, dup := elemIDs[e.ID]; dup {
			return ErrDuplicateID
		}
		elemIDs[e.ID] = struct{}{}
		if _, ok := rowIDs[e.RowID]; !ok {
			return ErrInvalidPlacement
		}
		if _, ok := colIDs[e.ColumnID]; !ok {
			return ErrInvalidPlacement
		}
	}
	return nil
}

// Normalize rewrites Position fields to match slice order.
func (g *Grid) Normalize() {
	for i := range g.Rows {
		g.Rows[i].Position = i
	}
	for i := range g.Columns {
		g.Columns[i].Position = i
	}
	for i := range g.Elements {
		g.Elements[i].Position = i
	}
}

// Row returns the row with id.
func (g *Grid) Row(id int) (Row, bool) {
	idx := g.rowIndex(id)
	if idx < 0 {
		return Row{}, false
	}
	return g.Rows[idx], true
}

// Column returns the column with id.
func (g *Grid) Column(id int) (Column, bool) {
	idx := g.columnIndex(id)
	if idx < 0 {
		return Column{}, false
	}
	return g.Columns[idx], true
}

// Element returns the element with id.
func (g *Grid) Element(id int) (Element, bool) {
	idx := g.elementIndex(id)
	if idx < 0 {
		return Element{}, false
	}
	return g.Elements[idx], true
}

// ElementsIn returns the elements occupying one cell in list order.
func (g *Grid) ElementsIn(columnID, rowID int) []Element {
	var out []Element
	for _, e := range g.Elements {
		if e.ColumnID == columnID && e.RowID == rowID {
			out = append(out, e)
		}
	}
	return out
}

// MoveRow moves the active row to the over row's index.
func (g *Grid) MoveRow(activeID, overID int) error {
	from, to := g.rowIndex(activeID), g.rowIndex(overID)
	if from < 0 || to < 0 {
		return ErrUnknownRow
	}
	g.Rows = ArrayMove(g.Rows, from, to)
	g.Normalize()
	return nil
}

// MoveColumn moves the active column to the over column's index.
func (g *Grid) MoveColumn(activeID, overID int) error {
	from, to := g.columnIndex(activeID), g.columnIndex(overID)
	if from < 0 || to < 0 {
		return ErrUnknownColumn
	}
	g.Columns = ArrayMove(g.Columns, from, to)
	g.Normalize()
	return nil
}

// MoveElement places the active element next to the over element and into its cell:
// before it, or after it when after is set.
func (g *Grid) MoveElement(activeID, overID int, after bool) error {
	from := g.elementIndex(activeID)
	if from < 0 || g.elementIndex(overID) < 0 {
		return ErrUnknownElement
	}
	if activeID == overID {
		return nil
	}
	moving := g.Elements[from]
	rest := slices.Delete(slices.Clone(g.Elements), from, from+1)
	to := slices.IndexFunc(rest, func(e Element) bool { return e.ID == overID })
	over := rest[to]
	moving.ColumnID = over.ColumnID
	moving.RowID = over.RowID
	if after {
		to++
	}
	g.Elements = slices.Insert(rest, to, moving)
	g.Normalize()
	return nil
}

// Rehome moves an element into the cell (columnID, rowID) keeping its list position.
func (g *Grid) Rehome(elementID, columnID, rowID int) error {
	idx := g.elementIndex(elementID)
	if idx < 0 {
		return ErrUnknownElement
	}
	if g.columnIndex(columnID) < 0 {
		return ErrUnknownColumn
	}
	if g.rowIndex(rowID) < 0 {
		return ErrUnknownRow
	}
	g.Elements[idx].ColumnID = columnID
	g.Elements[idx].RowID = rowID
	return nil
}

// AppendToCell re-homes an element and moves it after the last element of that cell.
func (g *Grid) AppendToCell(elementID, columnID, rowID int) error {
	if err := g.Rehome(elementID, columnID, rowID); err != nil {
		return err
	}
	from := g.elementIndex(elementID)
	last := -1
	for i, e := range g.Elements {
		if i != from && e.ColumnID == columnID && e.RowID == rowID {
			last = i
		}
	}
	if last < 0 {
		return nil
	}
	to := last
	if from > last {
		to = last + 1
	}
	g.Elements = ArrayMove(g.Elements, from, to)
	g.Normalize()
	return nil
}

// AddRow appends a new row and returns it.
func (g *Grid) AddRow(name string) (Row, error) {
	row, err := NewRow(g.NextRowID(), name, len(g.Rows))
	if err != nil {
		return Row{}, err
	}
	g.Rows = append(g.Rows, row)
	return row, nil
}

// AddColumn appends a new column and returns it.
func (g *Grid) AddColumn(name string) (Column, error) {
	col, err := NewColumn(g.NextColumnID(), name, len(g.Columns))
	if err != nil {
		return Column{}, err
	}
	g.Columns = append(g.Columns, col)
	return col, nil
}

// AddElement appends a new element to the cell (columnID, rowID).
func (g *Grid) AddElement(name string, columnID, rowID int) (Element, error) {
	if g.columnIndex(columnID) < 0 {
		return Element{}, ErrUnknownColumn
	}
	if g.rowIndex(rowID) < 0 {
		return Element{}, ErrUnknownRow
	}
	elem, err := NewElement(g.NextElementID(), name, columnID, rowID, len(g.Elements))
	if err != nil {
		return Element{}, err
	}
	g.Elements = append(g.Elements, elem)
	return elem, nil
}

// RenameElement renames one element.
func (g *Grid) RenameElement(id int, name string) (Element, error) {
	idx := g.elementIndex(id)
	if idx < 0 {
		return Element{}, ErrUnknownElement
	}
	if err := g.Elements[idx].Rename(name); err != nil {
		return Element{}, err
	}
	return g.Elements[idx], nil
}

// RemoveElement deletes one element.
func (g *Grid) RemoveElement(id int) error {
	idx := g.elementIndex(id)
	if idx < 0 {
		return ErrUnknownElement
	}
	g.Elements = slices.Delete(g.Elements, idx, idx+1)
	g.Normalize()
	return nil
}

// NextRowID returns one past the highest row id.
func (g *Grid) NextRowID() int {
	next := 1
	for _, r := range g.Rows {
		next = max(next, r.ID+1)
	}
	return next
}

// NextColumnID returns one past the highest column id.
func (g *Grid) NextColumnID() int {
	next := 1
	for _, c := range g.Columns {
		next = max(next, c.ID+1)
	}
	return next
}

// NextElementID returns one past the highest element id.
func (g *Grid) NextElementID() int {
	next := 1
	for _, e := range g.Elements {
		next = max(next, e.ID+1)
	}
	return next
}

func (g *Grid) rowIndex(id int) int {
	return slices.IndexFunc(g.Rows, func(r Row) bool { return r.ID == id })
}

func (g *Grid) columnIndex(id int) int {
	return slices.IndexFunc(g.Columns, func(c Column) bool { return c.ID == id })
}

func (g *Grid) elementIndex(id int) int {
	return slices.IndexFunc(g.Elements, func(e Element) bool { return e.ID == id })
}

// ArrayMove returns a copy of items with the item at from moved to index to.
// Out-of-range indexes return an unchanged copy.
func ArrayMove[T any](items []T, from, to int) []T {
	out := slices.Clone(items)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}
