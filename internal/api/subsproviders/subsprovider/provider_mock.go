package subsprovider

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a testify mock of Provider.
type MockProvider struct {
	mock.Mock
}

var _ Provider = &MockProvider{}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) CreateSubscription(ctx context.Context, payload CreatePayload) (*Subscription, error) {
	args := m.Called(ctx, payload)
	sub, _ := args.Get(0).(*Subscription)
	return sub, args.Error(1)
}

func (m *MockProvider) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*Subscription)
	return sub, args.Error(1)
}

func (m *MockProvider) UpdateSubscription(ctx context.Context, id string, payload UpdatePayload) (*Subscription, error) {
	args := m.Called(ctx, id, payload)
	sub, _ := args.Get(0).(*Subscription)
	return sub, args.Error(1)
}
