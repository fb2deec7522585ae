package domain

import (
	"strconv"
	"time"
)

// ChangeOperation describes a persisted grid change.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationSeed    ChangeOperation = "seed"
	ChangeOperationImport  ChangeOperation = "import"
	ChangeOperationCreate  ChangeOperation = "create"
	ChangeOperationRename  ChangeOperation = "rename"
	ChangeOperationMove    ChangeOperation = "move"
	ChangeOperationReorder ChangeOperation = "reorder"
	ChangeOperationDelete  ChangeOperation = "delete"
)

// SubjectKind names what a change event applies to.
type SubjectKind string

// SubjectKind values.
const (
	SubjectGrid    SubjectKind = "grid"
	SubjectRow     SubjectKind = "row"
	SubjectColumn  SubjectKind = "column"
	SubjectElement SubjectKind = "element"
)

// ChangeEvent represents a single activity-log entry for the grid. SubjectID
// is zero for grid-wide changes and for reorders that span a whole axis or cell.
type ChangeEvent struct {
	ID          int64
	Operation   ChangeOperation
	SubjectKind SubjectKind
	SubjectID   int
	Metadata    map[string]string
	OccurredAt  time.Time
}

// Subject renders the subject as "kind-id", or the bare kind without an id.
func (e ChangeEvent) Subject() string {
	if e.SubjectID == 0 {
		return string(e.SubjectKind)
	}
	return string(e.SubjectKind) + "-" + strconv.Itoa(e.SubjectID)
}
