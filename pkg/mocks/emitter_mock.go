package mocks

import (
	"context"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEmitter is a mock implementation of protocol.TriggerEmitter interface.
type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) EmitTrigger(ctx context.Context, trigger string, tc *models.TriggerContext) error {
	args := m.Called(ctx, trigger, tc)

	return args.Error(0)
}
