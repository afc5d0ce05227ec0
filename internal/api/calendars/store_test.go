package calendars

import (
	"context"
	"testing"
	"time"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newSqliteStore(t *testing.T) Store {
	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.AutoMigrate(&models.Calendar{}, &models.CalendarItem{}, &models.MigrationFailure{}).Error)
	return NewGormStore(db)
}

func forEachStore(t *testing.T, f func(t *testing.T, s Store)) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"gorm":   newSqliteStore,
	}
	for name, build := range stores {
		build := build
		t.Run(name, func(t *testing.T) {
			f(t, build(t))
		})
	}
}

func seedCalendar(t *testing.T, s Store, customerID string) *models.Calendar {
	c := &models.Calendar{
		CustomerID:      customerID,
		BillingInterval: "monthly",
		Items: []models.CalendarItem{
			{DeliveryDate: day("2024-07-01"), ProductVariantID: "v1", Quantity: 2, Price: decimal.RequireFromString("12.50"), Status: models.ItemStatusScheduled},
			{DeliveryDate: day("2024-05-01"), ProductVariantID: "v1", Quantity: 2, Price: decimal.RequireFromString("12.50"), Status: models.ItemStatusProcessed},
			{DeliveryDate: day("2024-06-01"), ProductVariantID: "v2", Quantity: 1, Price: decimal.RequireFromString("3"), Status: models.ItemStatusScheduled},
		},
	}
	require.NoError(t, s.CreateCalendar(context.Background(), c))
	require.NotZero(t, c.ID)
	return c
}

func TestStoreCalendarLookups(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := seedCalendar(t, s, "cust_1")

		got, err := s.CalendarByCustomerID(ctx, "cust_1")
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.False(t, got.IsMigrated())
		require.Len(t, got.Items, 3)

		var dates []string
		for _, item := range got.Items {
			dates = append(dates, models.FormatDate(item.DeliveryDate))
		}
		assert.Equal(t, []string{"2024-05-01", "2024-06-01", "2024-07-01"}, dates)
		assert.True(t, decimal.RequireFromString("12.5").Equal(got.Items[0].Price))

		_, err = s.CalendarByCustomerID(ctx, "nobody")
		assert.Equal(t, apierrors.ErrNotFound, errors.Cause(err))

		_, err = s.CalendarByProviderSubscriptionID(ctx, "")
		assert.Equal(t, apierrors.ErrNotFound, errors.Cause(err))

		err = s.CreateCalendar(ctx, &models.Calendar{CustomerID: "cust_1"})
		assert.Equal(t, apierrors.ErrConflict, errors.Cause(err))
	})
}

func TestStoreProviderSubscriptionID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := seedCalendar(t, s, "cust_1")

		n, err := s.SetProviderSubscriptionID(ctx, "cust_1", "seal_sub_123")
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		// already migrated calendars are never overwritten
		n, err = s.SetProviderSubscriptionID(ctx, "cust_1", "seal_sub_456")
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		got, err := s.CalendarByProviderSubscriptionID(ctx, "seal_sub_123")
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)

		require.NoError(t, s.ReplaceProviderSubscriptionID(ctx, c.ID, "seal_sub_789"))
		_, err = s.CalendarByProviderSubscriptionID(ctx, "seal_sub_123")
		assert.Equal(t, apierrors.ErrNotFound, errors.Cause(err))

		err = s.ReplaceProviderSubscriptionID(ctx, c.ID+100, "seal_sub_000")
		assert.Equal(t, apierrors.ErrNotFound, errors.Cause(err))
	})
}

func TestStoreProviderSubscriptionIDIsUnique(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first := seedCalendar(t, s, "cust_1")
		second := seedCalendar(t, s, "cust_2")

		_, err := s.SetProviderSubscriptionID(ctx, "cust_1", "seal_sub_123")
		require.NoError(t, err)

		_, err = s.SetProviderSubscriptionID(ctx, "cust_2", "seal_sub_123")
		assert.Equal(t, apierrors.ErrConflict, errors.Cause(err))

		err = s.ReplaceProviderSubscriptionID(ctx, second.ID, "seal_sub_123")
		assert.Equal(t, apierrors.ErrConflict, errors.Cause(err))

		// rotating to the id it already holds is fine
		require.NoError(t, s.ReplaceProviderSubscriptionID(ctx, first.ID, "seal_sub_123"))

		got, err := s.CalendarByProviderSubscriptionID(ctx, "seal_sub_123")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		c, err := s.CalendarByCustomerID(ctx, "cust_2")
		require.NoError(t, err)
		assert.Empty(t, c.ProviderSubscriptionID)
	})
}

func TestStoreUpdateItems(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := seedCalendar(t, s, "cust_1")

		cancelled := models.ItemStatusCancelled
		from := day("2024-06-01")
		n, err := s.UpdateItems(ctx, ItemFilter{
			CalendarID:   c.ID,
			Status:       models.ItemStatusScheduled,
			DeliveryFrom: &from,
		}, ItemChanges{Status: &cancelled})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		items, err := s.ListItems(ctx, c.ID, nil, nil)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, models.ItemStatusProcessed, items[0].Status)
		assert.Equal(t, models.ItemStatusCancelled, items[1].Status)
		assert.Equal(t, models.ItemStatusCancelled, items[2].Status)

		qty := 5
		n, err = s.UpdateItems(ctx, ItemFilter{CalendarID: c.ID, VariantID: "v2"}, ItemChanges{Quantity: &qty})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = s.UpdateItems(ctx, ItemFilter{CalendarID: c.ID}, ItemChanges{})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		zero := 0
		_, err = s.UpdateItems(ctx, ItemFilter{CalendarID: c.ID}, ItemChanges{Quantity: &zero})
		assert.Equal(t, apierrors.ErrBadRequest, errors.Cause(err))

		_, err = s.UpdateItems(ctx, ItemFilter{}, ItemChanges{Quantity: &qty})
		assert.Error(t, err)
	})
}

func TestStoreItemsRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c := seedCalendar(t, s, "cust_1")

		from, to := day("2024-06-01"), day("2024-06-30")
		items, err := s.ListItems(ctx, c.ID, &from, &to)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "v2", items[0].ProductVariantID)

		item, err := s.Item(ctx, items[0].ID)
		require.NoError(t, err)
		item.DeliveryDate = time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)
		item.Quantity = 3
		require.NoError(t, s.SaveItem(ctx, item))

		item, err = s.Item(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-15", models.FormatDate(item.DeliveryDate))
		assert.Equal(t, 3, item.Quantity)

		item.Quantity = 0
		assert.Equal(t, apierrors.ErrBadRequest, errors.Cause(s.SaveItem(ctx, item)))

		_, err = s.Item(ctx, 100500)
		assert.Equal(t, apierrors.ErrNotFound, errors.Cause(err))
	})
}

func TestStoreExportAndFailures(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedCalendar(t, s, "cust_1")
		seedCalendar(t, s, "cust_2")

		cals, err := s.ExportCalendars(ctx)
		require.NoError(t, err)
		require.Len(t, cals, 2)
		assert.Equal(t, "cust_1", cals[0].CustomerID)
		assert.Equal(t, "cust_2", cals[1].CustomerID)
		assert.Len(t, cals[1].Items, 3)

		f := &models.MigrationFailure{RunID: "run", CustomerID: "cust_2", Stage: models.MigrationStageCreate, Error: "boom"}
		require.NoError(t, s.CreateMigrationFailure(ctx, f))
		assert.NotZero(t, f.ID)
	})
}
