package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hylla/trestle/internal/domain"
)

func TestExportImportSnapshotRoundTripJSONAndYAML(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			svc, _ := seededService(t)
			ctx := context.Background()
			if _, err := svc.RenameElement(ctx, 2, "Second"); err != nil {
				t.Fatalf("RenameElement() error = %v", err)
			}

			snap, err := svc.ExportSnapshot(ctx)
			if err != nil {
				t.Fatalf("ExportSnapshot() error = %v", err)
			}
			if snap.Version != SnapshotVersion {
				t.Fatalf("unexpected version %q", snap.Version)
			}
			if !snap.ExportedAt.Equal(fixedClock()) {
				t.Fatalf("unexpected export time %v", snap.ExportedAt)
			}

			var buf bytes.Buffer
			if err := snap.Encode(&buf, format); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			decoded, err := DecodeSnapshot(&buf)
			if err != nil {
				t.Fatalf("DecodeSnapshot() error = %v", err)
			}

			target := NewService(newFakeRepo(), fixedClock)
			if err := target.ImportSnapshot(ctx, decoded); err != nil {
				t.Fatalf("ImportSnapshot() error = %v", err)
			}
			grid, err := target.LoadGrid(ctx)
			if err != nil {
				t.Fatalf("LoadGrid() error = %v", err)
			}
			if len(grid.Rows) != 3 || len(grid.Columns) != 3 || len(grid.Elements) != 2 {
				t.Fatalf("unexpected imported grid %#v", grid)
			}
			second, ok := grid.Element(2)
			if !ok || second.Name != "Second" || second.ColumnID != 1 || second.RowID != 1 {
				t.Fatalf("unexpected imported element %#v", second)
			}
		})
	}
}

func TestSnapshotGridOrdersByPosition(t *testing.T) {
	snap := Snapshot{
		Rows:    []SnapshotRow{{ID: 2, Name: "B", Position: 1}, {ID: 1, Name: "A", Position: 0}},
		Columns: []SnapshotColumn{{ID: 1, Name: "C", Position: 0}},
		Elements: []SnapshotElement{
			{ID: 7, Name: "late", ColumnID: 1, RowID: 2, Position: 5},
			{ID: 3, Name: "early", ColumnID: 1, RowID: 1, Position: 2},
		},
	}
	grid, err := snap.Grid()
	if err != nil {
		t.Fatalf("Grid() error = %v", err)
	}
	if grid.Rows[0].ID != 1 || grid.Rows[1].ID != 2 {
		t.Fatalf("unexpected row order %#v", grid.Rows)
	}
	if grid.Elements[0].ID != 3 || grid.Elements[0].Position != 0 || grid.Elements[1].Position != 1 {
		t.Fatalf("expected normalized element order, got %#v", grid.Elements)
	}
	if snap.Rows[0].ID != 2 {
		t.Fatalf("expected Grid() to leave the snapshot untouched, got %#v", snap.Rows)
	}
}

func TestSnapshotValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want error
	}{
		{name: "version", snap: Snapshot{Version: "other.v9"}, want: ErrInvalidSnapshot},
		{name: "row id", snap: Snapshot{Rows: []SnapshotRow{{ID: 0, Name: "x"}}}, want: ErrInvalidSnapshot},
		{name: "column name", snap: Snapshot{Columns: []SnapshotColumn{{ID: 1, Name: " "}}}, want: ErrInvalidSnapshot},
		{name: "element position", snap: Snapshot{Elements: []SnapshotElement{{ID: 1, Name: "e", ColumnID: 1, RowID: 1, Position: -1}}}, want: ErrInvalidSnapshot},
		{
			name: "dangling element",
			snap: Snapshot{
				Rows:     []SnapshotRow{{ID: 1, Name: "r"}},
				Columns:  []SnapshotColumn{{ID: 1, Name: "c"}},
				Elements: []SnapshotElement{{ID: 1, Name: "e", ColumnID: 2, RowID: 1}},
			},
			want: domain.ErrInvalidPlacement,
		},
		{
			name: "duplicate row",
			snap: Snapshot{Rows: []SnapshotRow{{ID: 1, Name: "a"}, {ID: 1, Name: "b", Position: 1}}},
			want: domain.ErrDuplicateID,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.snap.Grid()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("expected error to wrap ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshot(strings.NewReader("{not json")); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for bad json, got %v", err)
	}
	if _, err := DecodeSnapshot(strings.NewReader("rows: [unterminated")); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot for bad yaml, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, " yml ": FormatYAML}
	for raw, want := range cases {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseFormat("toml"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if err := (Snapshot{}).Encode(&bytes.Buffer{}, Format("xml")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat from Encode, got %v", err)
	}
}
