package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOtpEmail(ctx context.Context, email, otp, purpose string) bool {
	args := m.Called(ctx, email, otp, purpose)
	return args.Bool(0)
}

func (m *MockNotifier) SendOtpSms(ctx context.Context, phone, otp, purpose string) bool {
	args := m.Called(ctx, phone, otp, purpose)
	return args.Bool(0)
}

func (m *MockNotifier) SendEncryptedDocument(ctx context.Context, base64Pdf, email, purpose string) bool {
	args := m.Called(ctx, base64Pdf, email, purpose)
	return args.Bool(0)
}
