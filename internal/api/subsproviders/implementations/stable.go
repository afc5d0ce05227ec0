package implementations

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/shared/logutil"
)

const DefaultMaxAttempts = 3

// linearBackOff waits base*k before attempt k+1.
type linearBackOff struct {
	base    time.Duration
	retries int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return b.base * time.Duration(b.retries)
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}

// StableProvider retries every call of the underlying provider. After the
// last attempt the error of that attempt is returned as is.
type StableProvider struct {
	underlying  subsprovider.Provider
	log         logutil.Log
	baseDelay   time.Duration
	maxAttempts int
}

var _ subsprovider.Provider = &StableProvider{}

func NewStableProvider(underlying subsprovider.Provider, log logutil.Log,
	baseDelay time.Duration, maxAttempts int) *StableProvider {

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &StableProvider{
		underlying:  underlying,
		log:         log,
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
	}
}

// backOff allows maxAttempts-1 retries. WithMaxRetries treats 0 as
// unlimited, so a single attempt uses StopBackOff instead. The context
// wrapper makes RetryNotify abort a pending wait once ctx is done.
func (p StableProvider) backOff(ctx context.Context) backoff.BackOffContext {
	var b backoff.BackOff = &backoff.StopBackOff{}
	if p.maxAttempts > 1 {
		b = backoff.WithMaxRetries(&linearBackOff{base: p.baseDelay}, uint64(p.maxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

func (p StableProvider) retry(ctx context.Context, op string, f func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return f()
	}, p.backOff(ctx), func(err error, next time.Duration) {
		p.log.Warnf("%s attempt %d/%d failed, retrying in %s: %s", op, attempt, p.maxAttempts, next, err)
	})
}

func (p StableProvider) Name() string {
	return p.underlying.Name()
}

func (p StableProvider) CreateSubscription(ctx context.Context,
	payload subsprovider.CreatePayload) (ret *subsprovider.Subscription, err error) {

	err = p.retry(ctx, "create subscription", func() error {
		ret, err = p.underlying.CreateSubscription(ctx, payload)
		return err
	})
	return
}

func (p StableProvider) GetSubscription(ctx context.Context, id string) (ret *subsprovider.Subscription, err error) {
	err = p.retry(ctx, "get subscription "+id, func() error {
		ret, err = p.underlying.GetSubscription(ctx, id)
		return err
	})
	return
}

func (p StableProvider) UpdateSubscription(ctx context.Context, id string,
	payload subsprovider.UpdatePayload) (ret *subsprovider.Subscription, err error) {

	err = p.retry(ctx, "update subscription "+id, func() error {
		ret, err = p.underlying.UpdateSubscription(ctx, id, payload)
		return err
	})
	return
}
