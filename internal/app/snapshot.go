package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hylla/trestle/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "trestle.snapshot.v1"

// Format names a snapshot encoding.
type Format string

// FormatJSON and FormatYAML are the supported snapshot encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat normalizes a user supplied format name.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Snapshot is a portable copy of one grid.
type Snapshot struct {
	Version    string            `json:"version" yaml:"version"`
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Rows       []SnapshotRow     `json:"rows" yaml:"rows"`
	Columns    []SnapshotColumn  `json:"columns" yaml:"columns"`
	Elements   []SnapshotElement `json:"elements" yaml:"elements"`
}

// SnapshotRow represents snapshot row data used by this package.
type SnapshotRow struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position" yaml:"position"`
}

// SnapshotColumn represents snapshot column data used by this package.
type SnapshotColumn struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position" yaml:"position"`
}

// SnapshotElement represents snapshot element data used by this package.
type SnapshotElement struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	ColumnID int    `json:"column_id" yaml:"column_id"`
	RowID    int    `json:"row_id" yaml:"row_id"`
	Position int    `json:"position" yaml:"position"`
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	grid, err := s.LoadGrid(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := SnapshotFromGrid(grid)
	snap.ExportedAt = s.clock().UTC()
	return snap, nil
}

// ImportSnapshot replaces the stored grid with snap.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	grid, err := snap.Grid()
	if err != nil {
		return err
	}
	return s.repo.ReplaceAll(ctx, grid, s.event(domain.ChangeOperationImport, domain.SubjectGrid, 0, gridCounts(grid)))
}

// SnapshotFromGrid converts a grid without stamping the export time.
func SnapshotFromGrid(grid *domain.Grid) Snapshot {
	snap := Snapshot{
		Version:  SnapshotVersion,
		Rows:     make([]SnapshotRow, 0, len(grid.Rows)),
		Columns:  make([]SnapshotColumn, 0, len(grid.Columns)),
		Elements: make([]SnapshotElement, 0, len(grid.Elements)),
	}
	for _, r := range grid.Rows {
		snap.Rows = append(snap.Rows, SnapshotRow{ID: r.ID, Name: r.Name, Position: r.Position})
	}
	for _, c := range grid.Columns {
		snap.Columns = append(snap.Columns, SnapshotColumn{ID: c.ID, Name: c.Name, Position: c.Position})
	}
	for _, e := range grid.Elements {
		snap.Elements = append(snap.Elements, SnapshotElement{
			ID:       e.ID,
			Name:     e.Name,
			ColumnID: e.ColumnID,
			RowID:    e.RowID,
			Position: e.Position,
		})
	}
	return snap
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	for i, r := range s.Rows {
		if r.ID <= 0 {
			return fmt.Errorf("%w: rows[%d].id must be positive", ErrInvalidSnapshot, i)
		}
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: rows[%d].name is required", ErrInvalidSnapshot, i)
		}
		if r.Position < 0 {
			return fmt.Errorf("%w: rows[%d].position must be >= 0", ErrInvalidSnapshot, i)
		}
	}
	for i, c := range s.Columns {
		if c.ID <= 0 {
			return fmt.Errorf("%w: columns[%d].id must be positive", ErrInvalidSnapshot, i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: columns[%d].name is required", ErrInvalidSnapshot, i)
		}
		if c.Position < 0 {
			return fmt.Errorf("%w: columns[%d].position must be >= 0", ErrInvalidSnapshot, i)
		}
	}
	for i, e := range s.Elements {
		if e.ID <= 0 {
			return fmt.Errorf("%w: elements[%d].id must be positive", ErrInvalidSnapshot, i)
		}
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: elements[%d].name is required", ErrInvalidSnapshot, i)
		}
		if e.Position < 0 {
			return fmt.Errorf("%w: elements[%d].position must be >= 0", ErrInvalidSnapshot, i)
		}
	}
	return nil
}

// Grid validates the snapshot and converts it into a grid.
func (s Snapshot) Grid() (*domain.Grid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Rows = slices.Clone(s.Rows)
	s.Columns = slices.Clone(s.Columns)
	s.Elements = slices.Clone(s.Elements)
	s.sort()
	rows := make([]domain.Row, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, domain.Row{ID: r.ID, Name: strings.TrimSpace(r.Name), Position: r.Position})
	}
	columns := make([]domain.Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		columns = append(columns, domain.Column{ID: c.ID, Name: strings.TrimSpace(c.Name), Position: c.Position})
	}
	elements := make([]domain.Element, 0, len(s.Elements))
	for _, e := range s.Elements {
		elements = append(elements, domain.Element{
			ID:       e.ID,
			Name:     strings.TrimSpace(e.Name),
			ColumnID: e.ColumnID,
			RowID:    e.RowID,
			Position: e.Position,
		})
	}
	grid, err := domain.NewGrid(rows, columns, elements)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return grid, nil
}

// Encode writes the snapshot in the requested format.
func (s Snapshot) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// DecodeSnapshot reads a JSON or YAML snapshot. JSON is detected by a leading brace.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
		return snap, nil
	}
	if err := yaml.Unmarshal(trimmed, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return snap, nil
}

// sort handles sort.
func (s *Snapshot) sort() {
	sort.SliceStable(s.Rows, func(i, j int) bool {
		if s.Rows[i].Position == s.Rows[j].Position {
			return s.Rows[i].ID < s.Rows[j].ID
		}
		return s.Rows[i].Position < s.Rows[j].Position
	})
	sort.SliceStable(s.Columns, func(i, j int) bool {
		if s.Columns[i].Position == s.Columns[j].Position {
			return s.Columns[i].ID < s.Columns[j].ID
		}
		return s.Columns[i].Position < s.Columns[j].Position
	})
	sort.SliceStable(s.Elements, func(i, j int) bool {
		if s.Elements[i].Position == s.Elements[j].Position {
			return s.Elements[i].ID < s.Elements[j].ID
		}
		return s.Elements[i].Position < s.Elements[j].Position
	})
}
