package subsprovider

import "context"

type Provider interface {
	Name() string

	CreateSubscription(ctx context.Context, payload CreatePayload) (*Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)

	// UpdateSubscription changes only the fields set in payload.
	UpdateSubscription(ctx context.Context, id string, payload UpdatePayload) (*Subscription, error)
}
