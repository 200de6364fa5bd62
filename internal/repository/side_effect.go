// Package repository contains data access abstractions. Implementations live in
// subpackages (postgres).
package repository

import (
	"context"
	"errors"

	"gateway/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// SideEffectRepository journals side-effect results. Persistence only, no business logic.
type SideEffectRepository interface {
	// Record inserts one result. The caller sets ID and CreatedAt.
	Record(ctx context.Context, e *model.SideEffect) error

	// FindByID returns a single result or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.SideEffect, error)

	// List returns newest first with the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.SideEffect], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
