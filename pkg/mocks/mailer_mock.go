package mocks

import (
	"context"

	"github.com/dmayes77/clientflow-sub001/pkg/mailer"
	"github.com/stretchr/testify/mock"
)

// MockMailer is a mock implementation of mailer.Mailer interface.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}
