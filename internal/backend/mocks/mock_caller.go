package mocks

import (
	"context"

	"gateway/internal/backend"

	"github.com/stretchr/testify/mock"
)

type MockCaller struct {
	mock.Mock
}

func (m *MockCaller) Forward(ctx context.Context, req backend.Request) (*backend.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.Response), args.Error(1)
}
