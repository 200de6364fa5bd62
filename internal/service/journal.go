package service

import (
	"context"
	"errors"

	"gateway/internal/model"
	"gateway/internal/repository"
)

// SideEffectListResult is a page of journaled side effects.
type SideEffectListResult struct {
	Items []model.SideEffect `json:"data"`
	Total int                `json:"total"`
}

// SideEffectService reads the side-effect journal.
type SideEffectService interface {
	List(ctx context.Context, limit, offset int) (*SideEffectListResult, error)
	Get(ctx context.Context, id string) (*model.SideEffect, error)
}

type sideEffectService struct {
	repo repository.SideEffectRepository
}

// NewSideEffectService constructs a SideEffectService.
func NewSideEffectService(repo repository.SideEffectRepository) SideEffectService {
	return &sideEffectService{repo: repo}
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (s *sideEffectService) List(ctx context.Context, limit, offset int) (*SideEffectListResult, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &SideEffectListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *sideEffectService) Get(ctx context.Context, id string) (*model.SideEffect, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}
