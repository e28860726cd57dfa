package notifier

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/privibase/relay/interfaces"
)

// MockNotifier mocks the Notifier interface
type MockNotifier struct {
	mock.Mock
}

// Notify mocks the Notify method
func (m *MockNotifier) Notify(ctx context.Context, target interfaces.Address, content string) error {
	args := m.Called(ctx, target, content)
	return args.Error(0)
}
