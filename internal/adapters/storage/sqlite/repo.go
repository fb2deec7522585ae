package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/trestle/internal/app"
	"github.com/hylla/trestle/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db)
}

// newRepository pins the pool to one connection so pragmas and :memory: state hold.
func newRepository(db *sql.DB) (*Repository, error) {
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS grid_rows (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS grid_columns (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS grid_elements (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			row_id INTEGER NOT NULL,
			column_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			FOREIGN KEY(row_id) REFERENCES grid_rows(id) ON DELETE CASCADE,
			FOREIGN KEY(column_id) REFERENCES grid_columns(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS change_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation TEXT NOT NULL,
			subject_kind TEXT NOT NULL,
			subject_id INTEGER NOT NULL DEFAULT 0,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_grid_rows_position ON grid_rows(position);`,
		`CREATE INDEX IF NOT EXISTS idx_grid_columns_position ON grid_columns(position);`,
		`CREATE INDEX IF NOT EXISTS idx_grid_elements_cell_position ON grid_elements(column_id, row_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_change_events_created_at ON change_events(created_at DESC, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// ListRows lists rows in position order.
func (r *Repository) ListRows(ctx context.Context) ([]domain.Row, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, position FROM grid_rows ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Row, 0)
	for rows.Next() {
		var row domain.Row
		if err := rows.Scan(&row.ID, &row.Name, &row.Position); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListColumns lists columns in position order.
func (r *Repository) ListColumns(ctx context.Context) ([]domain.Column, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, position FROM grid_columns ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Column, 0)
	for rows.Next() {
		var col domain.Column
		if err := rows.Scan(&col.ID, &col.Name, &col.Position); err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

// ListElements lists elements in position order.
func (r *Repository) ListElements(ctx context.Context) ([]domain.Element, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, row_id, column_id, position FROM grid_elements ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Element, 0)
	for rows.Next() {
		elem, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, rows.Err()
}

// CreateRow creates row.
func (r *Repository) CreateRow(ctx context.Context, row domain.Row, events ...domain.ChangeEvent) error {
	return r.withTx(ctx, events, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO grid_rows(id, name, position) VALUES (?, ?, ?)`, row.ID, row.Name, row.Position)
		return err
	})
}

// CreateColumn creates column.
func (r *Repository) CreateColumn(ctx context.Context, col domain.Column, events ...domain.ChangeEvent) error {
	return r.withTx(ctx, events, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO grid_columns(id, name, position) VALUES (?, ?, ?)`, col.ID, col.Name, col.Position)
		return err
	})
}

// CreateElement creates element.
func (r *Repository) CreateElement(ctx context.Context, e domain.Element, events ...domain.ChangeEvent) error {
	return r.withTx(ctx, events, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO grid_elements(id, name, row_id, column_id, position)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, e.Name, e.RowID, e.ColumnID, e.Position)
		return err
	})
}

// UpdateElement updates element.
func (r *Repository) UpdateElement(ctx context.Context, e domain.Element, events ...domain.ChangeEvent) error {
	return r.withTx(ctx, events, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE grid_elements
			SET name = ?, row_id = ?, column_id = ?, position = ?
			WHERE id = ?
		`, e.Name, e.RowID, e.ColumnID, e.Position, e.ID)
		if err != nil {
			return err
		}
		return translateNoRows(res)
	})
}

// DeleteElement deletes an element and closes the gap it leaves in element order.
func (r *Repository) DeleteElement(ctx context.Context, id int, events ...domain.ChangeEvent) error {
	return r.withTx(ctx, events, func(tx *sql.Tx) error {
		var position int
		err := tx.QueryRowContext(ctx, `SELECT position FROM grid_elements WHERE id = ?`, id).Scan(&position)
		if errors.Is(err, sql.ErrNoRows) {
			return app.ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM grid_elements WHERE id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE grid_elements SET position = position - 1 WHERE position > ?`, position)
		return err
	})
}

// ReplaceLayout rewrites positions and placements in one transaction.
func (r *Repository) ReplaceLayout(ctx context.Context, g *domain.Grid, events ...domain.ChangeEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, row := range g.Rows {
		res, execErr := tx.ExecContext(ctx, `UPDATE grid_rows SET name = ?, position = ? WHERE id = ?`, row.Name, i, row.ID)
		if execErr != nil {
			return execErr
		}
		if err = translateNoRows(res); err != nil {
			return fmt.Errorf("row %d: %w", row.ID, err)
		}
	}
	for i, col := range g.Columns {
		res, execErr := tx.ExecContext(ctx, `UPDATE grid_columns SET name = ?, position = ? WHERE id = ?`, col.Name, i, col.ID)
		if execErr != nil {
			return execErr
		}
		if err = translateNoRows(res); err != nil {
			return fmt.Errorf("column %d: %w", col.ID, err)
		}
	}
	for i, e := range g.Elements {
		res, execErr := tx.ExecContext(ctx, `
			UPDATE grid_elements
			SET name = ?, row_id = ?, column_id = ?, position = ?
			WHERE id = ?
		`, e.Name, e.RowID, e.ColumnID, i, e.ID)
		if execErr != nil {
			return execErr
		}
		if err = translateNoRows(res); err != nil {
			return fmt.Errorf("element %d: %w", e.ID, err)
		}
	}
	if err = insertChangeEvents(ctx, tx, events); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ReplaceAll drops every stored grid record and writes g in one transaction.
// The change log is kept.
func (r *Repository) ReplaceAll(ctx context.Context, g *domain.Grid, events ...domain.ChangeEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{`DELETE FROM grid_elements`, `DELETE FROM grid_rows`, `DELETE FROM grid_columns`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for i, row := range g.Rows {
		if _, err = tx.ExecContext(ctx, `INSERT INTO grid_rows(id, name, position) VALUES (?, ?, ?)`, row.ID, row.Name, i); err != nil {
			return err
		}
	}
	for i, col := range g.Columns {
		if _, err = tx.ExecContext(ctx, `INSERT INTO grid_columns(id, name, position) VALUES (?, ?, ?)`, col.ID, col.Name, i); err != nil {
			return err
		}
	}
	for i, e := range g.Elements {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO grid_elements(id, name, row_id, column_id, position)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, e.Name, e.RowID, e.ColumnID, i); err != nil {
			return err
		}
	}
	if err = insertChangeEvents(ctx, tx, events); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// ListChangeEvents lists recent grid events for activity-log consumption.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, operation, subject_kind, subject_id, metadata_json, created_at
		FROM change_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeEvent, 0)
	for rows.Next() {
		var (
			event       domain.ChangeEvent
			opRaw       string
			kindRaw     string
			metadataRaw string
			createdRaw  string
		)
		if err := rows.Scan(&event.ID, &opRaw, &kindRaw, &event.SubjectID, &metadataRaw, &createdRaw); err != nil {
			return nil, err
		}
		event.Operation = domain.ChangeOperation(opRaw)
		event.SubjectKind = domain.SubjectKind(kindRaw)
		event.OccurredAt = parseTS(createdRaw)
		if strings.TrimSpace(metadataRaw) == "" {
			metadataRaw = "{}"
		}
		if err := json.Unmarshal([]byte(metadataRaw), &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode change_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// withTx runs fn and then records events, committing both or neither.
func (r *Repository) withTx(ctx context.Context, events []domain.ChangeEvent, fn func(*sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = insertChangeEvents(ctx, tx, events); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// execerContext represents a write-only DB contract used by DB and Tx implementations.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertChangeEvents inserts change-event ledger records.
func insertChangeEvents(ctx context.Context, execer execerContext, events []domain.ChangeEvent) error {
	for _, event := range events {
		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode change event metadata: %w", err)
		}
		if event.Metadata == nil {
			metadataJSON = []byte("{}")
		}
		_, err = execer.ExecContext(ctx, `
			INSERT INTO change_events(operation, subject_kind, subject_id, metadata_json, created_at)
			VALUES (?, ?, ?, ?, ?)
		`,
			string(event.Operation),
			string(event.SubjectKind),
			event.SubjectID,
			string(metadataJSON),
			ts(normalizeEventTS(event.OccurredAt)),
		)
		if err != nil {
			return fmt.Errorf("insert change event: %w", err)
		}
	}
	return nil
}

// normalizeEventTS stamps zero event times with the current time.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// scanner is the subset of *sql.Row and *sql.Rows used by scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// scanElement scans one element row.
func scanElement(s scanner) (domain.Element, error) {
	var e domain.Element
	if err := s.Scan(&e.ID, &e.Name, &e.RowID, &e.ColumnID, &e.Position); err != nil {
		return domain.Element{}, err
	}
	return e, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}
