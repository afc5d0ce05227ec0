package migration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/deliverykit/calsync/internal/api/calendars"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/deliverykit/calsync/internal/api/subsproviders"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/shared/apperrors"
	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/deliverykit/calsync/internal/shared/distlock"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, s calendars.Store, customerID, interval string, offsets ...int) {
	c := &models.Calendar{CustomerID: customerID, BillingInterval: interval}
	for _, off := range offsets {
		c.Items = append(c.Items, models.CalendarItem{
			DeliveryDate:     testNow.AddDate(0, 0, off),
			ProductVariantID: "v1",
			Quantity:         1,
			Price:            decimal.RequireFromString("19.99"),
			Status:           models.ItemStatusScheduled,
		})
	}
	require.NoError(t, s.CreateCalendar(context.Background(), c))
}

func forCustomer(id string) interface{} {
	return mock.MatchedBy(func(p subsprovider.CreatePayload) bool { return p.CustomerID == id })
}

func newTestRunner(store calendars.Store, p subsprovider.Provider, tracker apperrors.Tracker) *Runner {
	return NewRunner(store, p, logutil.NewStderrLog("test"), tracker).
		WithClock(func() time.Time { return testNow })
}

func TestRunIsolatesTransformFailure(t *testing.T) {
	store := calendars.NewMemoryStore()
	seed(t, store, "cust_1", "monthly", 0, 30)
	seed(t, store, "cust_2", "weekly", 0)
	seed(t, store, "cust_3", "quarterly", 10)

	p := &subsprovider.MockProvider{}
	p.On("CreateSubscription", mock.Anything, forCustomer("cust_1")).
		Return(&subsprovider.Subscription{ID: "sub_1"}, nil).Once()
	p.On("CreateSubscription", mock.Anything, forCustomer("cust_3")).
		Return(&subsprovider.Subscription{ID: "sub_3"}, nil).Once()

	tracker := apperrors.NewMemoryTracker()
	report, err := newTestRunner(store, p, tracker).Run(context.Background())
	require.NoError(t, err)

	p.AssertExpectations(t)
	p.AssertNumberOfCalls(t, "CreateSubscription", 2)

	assert.Equal(t, 3, report.Exported)
	assert.Equal(t, []Created{{"cust_1", "sub_1"}, {"cust_3", "sub_3"}}, report.Created)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "cust_2", report.Failures[0].CustomerID)
	assert.Equal(t, models.MigrationStageTransform, report.Failures[0].Stage)

	for customer, sub := range map[string]string{"cust_1": "sub_1", "cust_2": "", "cust_3": "sub_3"} {
		c, err := store.CalendarByCustomerID(context.Background(), customer)
		require.NoError(t, err)
		assert.Equal(t, sub, c.ProviderSubscriptionID, customer)
	}

	failures := store.MigrationFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, "cust_2", failures[0].CustomerID)
	assert.Equal(t, report.RunID, failures[0].RunID)

	tracked := tracker.Tracked()
	require.Len(t, tracked, 1)
	assert.Equal(t, "cust_2", tracked[0].Ctx["customer_id"])
	assert.Equal(t, "transform", tracked[0].Ctx["stage"])
}

func TestRunContinuesAfterCreateFailureAndSkipsMigrated(t *testing.T) {
	store := calendars.NewMemoryStore()
	seed(t, store, "cust_1", "monthly", 0)
	seed(t, store, "cust_2", "monthly", 0)
	seed(t, store, "cust_3", "monthly", 0)
	_, err := store.SetProviderSubscriptionID(context.Background(), "cust_1", "sub_old")
	require.NoError(t, err)

	p := &subsprovider.MockProvider{}
	p.On("CreateSubscription", mock.Anything, forCustomer("cust_2")).
		Return(nil, &subsprovider.CallError{Method: "POST", Endpoint: "/subscriptions", StatusCode: 500, Err: errors.New("boom")}).Once()
	p.On("CreateSubscription", mock.Anything, forCustomer("cust_3")).
		Return(&subsprovider.Subscription{ID: "sub_3"}, nil).Once()

	report, err := newTestRunner(store, p, apperrors.NewNopTracker()).Run(context.Background())
	require.NoError(t, err)
	p.AssertExpectations(t)

	assert.Equal(t, []string{"cust_1"}, report.Skipped)
	assert.Equal(t, []Created{{"cust_3", "sub_3"}}, report.Created)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, models.MigrationStageCreate, report.Failures[0].Stage)
	assert.Contains(t, report.Summary(), "customer cust_2 failed at create")

	c, err := store.CalendarByCustomerID(context.Background(), "cust_1")
	require.NoError(t, err)
	assert.Equal(t, "sub_old", c.ProviderSubscriptionID)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	store := calendars.NewMemoryStore()
	seed(t, store, "cust_1", "monthly", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &subsprovider.MockProvider{}
	report, err := newTestRunner(store, p, apperrors.NewNopTracker()).Run(ctx)
	assert.Error(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Created)
	p.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
}

func TestMigrateEndToEnd(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer seal-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/apps/seal/api/v1/subscriptions", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()

		w.Write([]byte(`{"id":"seal_sub_123"}`))
	}))
	defer srv.Close()

	log := logutil.NewStderrLog("test")
	cfg := config.NewViperConfig(log, nil)
	cfg.Set("PROVIDER_SCHEME", "http")
	cfg.Set("PROVIDER_RETRY_BASE_DELAY", "1ms")

	store := calendars.NewMemoryStore()
	seed(t, store, "cust_1", "monthly", 0, 30, 60)

	tracker := apperrors.NewMemoryTracker()
	report, err := Migrate(context.Background(), Deps{
		Store:     store,
		Providers: subsproviders.NewBasicFactory(log, cfg),
		Log:       log,
		Tracker:   tracker,
		Locks:     distlock.NewLocalFactory(),
	}, "seal-key", srv.URL)
	require.NoError(t, err)

	assert.Empty(t, report.Failures)
	assert.Empty(t, tracker.Tracked())
	assert.Empty(t, store.MigrationFailures())

	c, err := store.CalendarByCustomerID(context.Background(), "cust_1")
	require.NoError(t, err)
	assert.Equal(t, "seal_sub_123", c.ProviderSubscriptionID)

	require.Len(t, bodies, 1)
	assert.Equal(t, "cust_1", bodies[0]["customer_id"])
	assert.Len(t, bodies[0]["products"], 1)
}

// countingMutex lets the first keep Extend calls succeed.
type countingMutex struct {
	keep    int
	extends int
}

func (m *countingMutex) Lock() error  { return nil }
func (m *countingMutex) Unlock() bool { return true }

func (m *countingMutex) Extend() bool {
	m.extends++
	return m.extends <= m.keep
}

func TestRunExtendsLockPerCalendar(t *testing.T) {
	store := calendars.NewMemoryStore()
	seed(t, store, "cust_1", "monthly", 0)
	seed(t, store, "cust_2", "monthly", 0)
	seed(t, store, "cust_3", "monthly", 0)
	_, err := store.SetProviderSubscriptionID(context.Background(), "cust_2", "sub_old")
	require.NoError(t, err)

	p := &subsprovider.MockProvider{}
	p.On("CreateSubscription", mock.Anything, forCustomer("cust_1")).
		Return(&subsprovider.Subscription{ID: "sub_1"}, nil).Once()
	p.On("CreateSubscription", mock.Anything, forCustomer("cust_3")).
		Return(&subsprovider.Subscription{ID: "sub_3"}, nil).Once()

	mu := &countingMutex{keep: 100}
	report, err := newTestRunner(store, p, apperrors.NewNopTracker()).WithLock(mu).Run(context.Background())
	require.NoError(t, err)
	p.AssertExpectations(t)

	assert.Equal(t, 3, mu.extends)
	assert.Len(t, report.Created, 2)
}

func TestRunStopsWhenLockIsLost(t *testing.T) {
	store := calendars.NewMemoryStore()
	seed(t, store, "cust_1", "monthly", 0)
	seed(t, store, "cust_2", "monthly", 0)

	p := &subsprovider.MockProvider{}
	p.On("CreateSubscription", mock.Anything, forCustomer("cust_1")).
		Return(&subsprovider.Subscription{ID: "sub_1"}, nil).Once()

	mu := &countingMutex{keep: 1}
	report, err := newTestRunner(store, p, apperrors.NewNopTracker()).WithLock(mu).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cust_2")
	p.AssertExpectations(t)
	p.AssertNumberOfCalls(t, "CreateSubscription", 1)

	require.NotNil(t, report)
	assert.Equal(t, []Created{{"cust_1", "sub_1"}}, report.Created)

	c, err := store.CalendarByCustomerID(context.Background(), "cust_2")
	require.NoError(t, err)
	assert.Empty(t, c.ProviderSubscriptionID)
}
