package mocks

import (
	"context"

	"gateway/internal/model"
	"gateway/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockSideEffectRepository struct {
	mock.Mock
}

func (m *MockSideEffectRepository) Record(ctx context.Context, e *model.SideEffect) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockSideEffectRepository) FindByID(ctx context.Context, id string) (*model.SideEffect, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SideEffect), args.Error(1)
}

func (m *MockSideEffectRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.SideEffect], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.SideEffect]), args.Error(1)
}
