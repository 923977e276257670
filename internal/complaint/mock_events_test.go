package complaint_test

import (
	"context"

	"fixitfast/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) PublishEvent(ctx context.Context, ev models.ComplaintEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockEventBus) SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	args := m.Called(ctx)
	return args.Get(0).(<-chan models.ComplaintEvent), args.Error(1)
}
