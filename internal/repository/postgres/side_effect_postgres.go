package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gateway/internal/model"
	"gateway/internal/repository"
)

// SideEffectPostgres is the PostgreSQL journal of side-effect results.
type SideEffectPostgres struct {
	db *sql.DB
}

// NewSideEffectPostgres creates a new SideEffectPostgres repository.
func NewSideEffectPostgres(db *sql.DB) *SideEffectPostgres {
	return &SideEffectPostgres{db: db}
}

var _ repository.SideEffectRepository = (*SideEffectPostgres)(nil)

const sideEffectColumns = `id, request_id, route, kind, target, success, error, duration_ms, created_at`

// Record inserts one side-effect row.
func (r *SideEffectPostgres) Record(ctx context.Context, e *model.SideEffect) error {
	const q = `
		INSERT INTO side_effects (` + sideEffectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.RequestID,
		e.Route,
		e.Kind,
		e.Target,
		e.Success,
		e.Error,
		e.DurationMs,
		e.CreatedAt,
	)
	return err
}

// FindByID fetches a single row.
func (r *SideEffectPostgres) FindByID(ctx context.Context, id string) (*model.SideEffect, error) {
	const q = `SELECT ` + sideEffectColumns + ` FROM side_effects WHERE id = $1`
	e, err := scanSideEffect(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns rows newest first using LIMIT/OFFSET pagination and a total count.
func (r *SideEffectPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.SideEffect], error) {
	const qCount = `SELECT COUNT(*) FROM side_effects`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + sideEffectColumns + `
		FROM side_effects
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.SideEffect, 0)
	for rows.Next() {
		e, err := scanSideEffect(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.SideEffect]{
		Items: items,
		Total: total,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSideEffect(s scanner) (*model.SideEffect, error) {
	var e model.SideEffect
	if err := s.Scan(
		&e.ID,
		&e.RequestID,
		&e.Route,
		&e.Kind,
		&e.Target,
		&e.Success,
		&e.Error,
		&e.DurationMs,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
