package mocks

import (
	"context"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockActionHandler is a mock implementation of protocol.ActionHandler interface.
type MockActionHandler struct {
	mock.Mock
}

func (m *MockActionHandler) Type() models.ActionType {
	args := m.Called()

	return args.Get(0).(models.ActionType)
}

func (m *MockActionHandler) Schema() map[string]any {
	args := m.Called()

	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(map[string]any)
}

func (m *MockActionHandler) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	args := m.Called(ctx, action, tc)

	return args.Get(0).(models.ActionResult), args.Error(1)
}
