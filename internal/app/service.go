package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hylla/trestle/internal/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// Seed describes the grid created when storage is empty.
type Seed struct {
	Rows     []string
	Columns  []string
	Elements []SeedElement
}

// SeedElement places one seeded element. Column and Row are 1-based ids
// matching the order of Seed.Columns and Seed.Rows.
type SeedElement struct {
	Name   string
	Column int
	Row    int
}

// DefaultSeed returns three rows, three columns and two items in the first cell.
func DefaultSeed() Seed {
	return Seed{
		Rows:    []string{"Row 1", "Row 2", "Row 3"},
		Columns: []string{"Column 1", "Column 2", "Column 3"},
		Elements: []SeedElement{
			{Name: "Item 1", Column: 1, Row: 1},
			{Name: "Item 2", Column: 1, Row: 1},
		},
	}
}

// Grid builds the seeded grid.
func (s Seed) Grid() (*domain.Grid, error) {
	rows := make([]domain.Row, 0, len(s.Rows))
	for i, name := range s.Rows {
		row, err := domain.NewRow(i+1, name, i)
		if err != nil {
			return nil, fmt.Errorf("seed row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	columns := make([]domain.Column, 0, len(s.Columns))
	for i, name := range s.Columns {
		col, err := domain.NewColumn(i+1, name, i)
		if err != nil {
			return nil, fmt.Errorf("seed column %d: %w", i+1, err)
		}
		columns = append(columns, col)
	}
	elements := make([]domain.Element, 0, len(s.Elements))
	for i, se := range s.Elements {
		elem, err := domain.NewElement(i+1, se.Name, se.Column, se.Row, i)
		if err != nil {
			return nil, fmt.Errorf("seed element %d: %w", i+1, err)
		}
		elements = append(elements, elem)
	}
	return domain.NewGrid(rows, columns, elements)
}

// Service coordinates grid persistence for the editor and the CLI.
type Service struct {
	repo  Repository
	clock Clock
}

// NewService constructs a new value for this package.
func NewService(repo Repository, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, clock: clock}
}

// LoadGrid reads the stored grid.
func (s *Service) LoadGrid(ctx context.Context) (*domain.Grid, error) {
	rows, err := s.repo.ListRows(ctx)
	if err != nil {
		return nil, err
	}
	columns, err := s.repo.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	elements, err := s.repo.ListElements(ctx)
	if err != nil {
		return nil, err
	}
	grid, err := domain.NewGrid(rows, columns, elements)
	if err != nil {
		return nil, fmt.Errorf("load grid: %w", err)
	}
	return grid, nil
}

// EnsureSeeded returns the stored grid, writing seed first when storage is empty.
func (s *Service) EnsureSeeded(ctx context.Context, seed Seed) (*domain.Grid, error) {
	grid, err := s.LoadGrid(ctx)
	if err != nil {
		return nil, err
	}
	if len(grid.Rows) > 0 || len(grid.Columns) > 0 || len(grid.Elements) > 0 {
		return grid, nil
	}
	seeded, err := seed.Grid()
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceAll(ctx, seeded, s.event(domain.ChangeOperationSeed, domain.SubjectGrid, 0, gridCounts(seeded))); err != nil {
		return nil, err
	}
	return seeded, nil
}

// SaveLayout persists row, column and element order plus element placement.
func (s *Service) SaveLayout(ctx context.Context, grid *domain.Grid) error {
	if grid == nil {
		return fmt.Errorf("save layout: %w", domain.ErrInvalidPlacement)
	}
	if err := grid.Validate(); err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	before, err := s.LoadGrid(ctx)
	if err != nil {
		return err
	}
	grid.Normalize()
	return s.repo.ReplaceLayout(ctx, grid, layoutChanges(before, grid, s.clock())...)
}

// AddRow appends a row named name.
func (s *Service) AddRow(ctx context.Context, name string) (domain.Row, error) {
	grid, err := s.LoadGrid(ctx)
	if err != nil {
		return domain.Row{}, err
	}
	row, err := grid.AddRow(name)
	if err != nil {
		return domain.Row{}, err
	}
	created := s.event(domain.ChangeOperationCreate, domain.SubjectRow, row.ID, map[string]string{"name": row.Name})
	if err := s.repo.CreateRow(ctx, row, created); err != nil {
		return domain.Row{}, err
	}
	return row, nil
}

// AddColumn appends a column named name.
func (s *Service) AddColumn(ctx context.Context, name string) (domain.Column, error) {
	grid, err := s.LoadGrid(ctx)
	if err != nil {
		return domain.Column{}, err
	}
	col, err := grid.AddColumn(name)
	if err != nil {
		return domain.Column{}, err
	}
	created := s.event(domain.ChangeOperationCreate, domain.SubjectColumn, col.ID, map[string]string{"name": col.Name})
	if err := s.repo.CreateColumn(ctx, col, created); err != nil {
		return domain.Column{}, err
	}
	return col, nil
}

// AddElement appends an element to the cell (columnID, rowID).
func (s *Service) AddElement(ctx context.Context, name string, columnID, rowID int) (domain.Element, error) {
	grid, err := s.LoadGrid(ctx)
	if err != nil {
		return domain.Element{}, err
	}
	elem, err := grid.AddElement(name, columnID, rowID)
	if err != nil {
		return domain.Element{}, err
	}
	created := s.event(domain.ChangeOperationCreate, domain.SubjectElement, elem.ID, map[string]string{
		"name":   elem.Name,
		"column": strconv.Itoa(elem.ColumnID),
		"row":    strconv.Itoa(elem.RowID),
	})
	if err := s.repo.CreateElement(ctx, elem, created); err != nil {
		return domain.Element{}, err
	}
	return elem, nil
}

// RenameElement renames an element.
func (s *Service) RenameElement(ctx context.Context, id int, name string) (domain.Element, error) {
	grid, err := s.LoadGrid(ctx)
	if err != nil {
		return domain.Element{}, err
	}
	prev, ok := grid.Element(id)
	if !ok {
		return domain.Element{}, ErrNotFound
	}
	elem, err := grid.RenameElement(id, name)
	if err != nil {
		return domain.Element{}, err
	}
	renamed := s.event(domain.ChangeOperationRename, domain.SubjectElement, id, map[string]string{"from": prev.Name, "to": elem.Name})
	if err := s.repo.UpdateElement(ctx, elem, renamed); err != nil {
		return domain.Element{}, err
	}
	return elem, nil
}

// DeleteElement removes an element and compacts the remaining positions.
func (s *Service) DeleteElement(ctx context.Context, id int) error {
	grid, err := s.LoadGrid(ctx)
	if err != nil {
		return err
	}
	elem, ok := grid.Element(id)
	if !ok {
		return ErrNotFound
	}
	deleted := s.event(domain.ChangeOperationDelete, domain.SubjectElement, id, map[string]string{
		"name":   elem.Name,
		"column": strconv.Itoa(elem.ColumnID),
		"row":    strconv.Itoa(elem.RowID),
	})
	return s.repo.DeleteElement(ctx, id, deleted)
}
