package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrInvalidPlacement = errors.New("invalid placement")
	ErrUnknownRow       = errors.New("unknown row")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrUnknownElement   = errors.New("unknown element")
)
