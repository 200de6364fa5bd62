package mocks

import (
	"context"

	"gateway/internal/model"
	"gateway/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockSideEffectService struct {
	mock.Mock
}

func (m *MockSideEffectService) List(ctx context.Context, limit, offset int) (*service.SideEffectListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SideEffectListResult), args.Error(1)
}

func (m *MockSideEffectService) Get(ctx context.Context, id string) (*model.SideEffect, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SideEffect), args.Error(1)
}
