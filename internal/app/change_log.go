package app

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/trestle/internal/domain"
)

// DefaultHistoryLimit bounds ListChangeEvents when callers pass a non-positive limit.
const DefaultHistoryLimit = 50

// ListChangeEvents returns the most recent grid changes, newest first.
func (s *Service) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.repo.ListChangeEvents(ctx, limit)
}

// event stamps one ledger entry with the service clock.
func (s *Service) event(op domain.ChangeOperation, kind domain.SubjectKind, id int, metadata map[string]string) domain.ChangeEvent {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return domain.ChangeEvent{
		Operation:   op,
		SubjectKind: kind,
		SubjectID:   id,
		Metadata:    metadata,
		OccurredAt:  s.clock().UTC(),
	}
}

// gridCounts summarizes a grid for seed and import events.
func gridCounts(g *domain.Grid) map[string]string {
	return map[string]string{
		"rows":     strconv.Itoa(len(g.Rows)),
		"columns":  strconv.Itoa(len(g.Columns)),
		"elements": strconv.Itoa(len(g.Elements)),
	}
}

// layoutChanges diffs two layouts of the same records. Axis reorders yield one
// reorder event each, elements that changed cell yield a move event each, and
// cells whose remaining occupants changed order yield a reorder event.
func layoutChanges(before, after *domain.Grid, at time.Time) []domain.ChangeEvent {
	var out []domain.ChangeEvent
	stamp := func(e domain.ChangeEvent) {
		e.OccurredAt = at.UTC()
		out = append(out, e)
	}

	beforeRows, afterRows := rowIDs(before), rowIDs(after)
	if !slices.Equal(beforeRows, afterRows) {
		stamp(domain.ChangeEvent{
			Operation:   domain.ChangeOperationReorder,
			SubjectKind: domain.SubjectRow,
			Metadata:    map[string]string{"order": joinIDs(afterRows)},
		})
	}
	beforeCols, afterCols := columnIDs(before), columnIDs(after)
	if !slices.Equal(beforeCols, afterCols) {
		stamp(domain.ChangeEvent{
			Operation:   domain.ChangeOperationReorder,
			SubjectKind: domain.SubjectColumn,
			Metadata:    map[string]string{"order": joinIDs(afterCols)},
		})
	}

	moved := map[int]bool{}
	for _, elem := range after.Elements {
		prev, ok := before.Element(elem.ID)
		if !ok || (prev.ColumnID == elem.ColumnID && prev.RowID == elem.RowID) {
			continue
		}
		moved[elem.ID] = true
		stamp(domain.ChangeEvent{
			Operation:   domain.ChangeOperationMove,
			SubjectKind: domain.SubjectElement,
			SubjectID:   elem.ID,
			Metadata: map[string]string{
				"from_column": strconv.Itoa(prev.ColumnID),
				"from_row":    strconv.Itoa(prev.RowID),
				"to_column":   strconv.Itoa(elem.ColumnID),
				"to_row":      strconv.Itoa(elem.RowID),
			},
		})
	}

	stayed := func(g *domain.Grid, columnID, rowID int) []int {
		var ids []int
		for _, elem := range g.ElementsIn(columnID, rowID) {
			if !moved[elem.ID] {
				ids = append(ids, elem.ID)
			}
		}
		return ids
	}
	for _, row := range after.Rows {
		for _, col := range after.Columns {
			afterIDs := stayed(after, col.ID, row.ID)
			if len(afterIDs) < 2 || slices.Equal(stayed(before, col.ID, row.ID), afterIDs) {
				continue
			}
			stamp(domain.ChangeEvent{
				Operation:   domain.ChangeOperationReorder,
				SubjectKind: domain.SubjectElement,
				Metadata: map[string]string{
					"column": strconv.Itoa(col.ID),
					"row":    strconv.Itoa(row.ID),
					"order":  joinIDs(afterIDs),
				},
			})
		}
	}
	return out
}

func rowIDs(g *domain.Grid) []int {
	out := make([]int, 0, len(g.Rows))
	for _, row := range g.Rows {
		out = append(out, row.ID)
	}
	return out
}

func columnIDs(g *domain.Grid) []int {
	out := make([]int, 0, len(g.Columns))
	for _, col := range g.Columns {
		out = append(out, col.ID)
	}
	return out
}

func joinIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}
