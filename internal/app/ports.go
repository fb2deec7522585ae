package app

import (
	"context"

	"github.com/hylla/trestle/internal/domain"
)

// Repository persists rows, columns and elements. Every mutation stores its
// change events in the same write.
type Repository interface {
	ListRows(context.Context) ([]domain.Row, error)
	ListColumns(context.Context) ([]domain.Column, error)
	ListElements(context.Context) ([]domain.Element, error)
	// ListChangeEvents returns up to limit events, newest first.
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)

	CreateRow(context.Context, domain.Row, ...domain.ChangeEvent) error
	CreateColumn(context.Context, domain.Column, ...domain.ChangeEvent) error
	CreateElement(context.Context, domain.Element, ...domain.ChangeEvent) error
	UpdateElement(context.Context, domain.Element, ...domain.ChangeEvent) error
	// DeleteElement removes an element and shifts later elements up one position.
	DeleteElement(context.Context, int, ...domain.ChangeEvent) error

	// ReplaceLayout rewrites positions and placements of existing records.
	ReplaceLayout(context.Context, *domain.Grid, ...domain.ChangeEvent) error
	// ReplaceAll drops every grid record and stores grid. History is kept.
	ReplaceAll(context.Context, *domain.Grid, ...domain.ChangeEvent) error
}
