package calendars

import (
	"context"
	"time"

	"github.com/deliverykit/calsync/internal/api/models"
)

// ItemFilter selects items of one calendar. Zero fields match anything.
type ItemFilter struct {
	CalendarID   uint
	Status       models.ItemStatus
	VariantID    string
	DeliveryFrom *time.Time // inclusive
}

// ItemChanges are field assignments for a bulk update, nil fields keep their current value.
type ItemChanges struct {
	DeliveryDate *time.Time
	Quantity     *int
	Status       *models.ItemStatus
}

func (c ItemChanges) IsEmpty() bool {
	return c.DeliveryDate == nil && c.Quantity == nil && c.Status == nil
}

func (c ItemChanges) toMap() map[string]interface{} {
	ret := map[string]interface{}{}
	if c.DeliveryDate != nil {
		ret["delivery_date"] = models.DateOf(*c.DeliveryDate)
	}
	if c.Quantity != nil {
		ret["quantity"] = *c.Quantity
	}
	if c.Status != nil {
		ret["status"] = *c.Status
	}
	return ret
}

type Store interface {
	CreateCalendar(ctx context.Context, c *models.Calendar) error
	CalendarByID(ctx context.Context, id uint) (*models.Calendar, error)
	CalendarByCustomerID(ctx context.Context, customerID string) (*models.Calendar, error)
	CalendarByProviderSubscriptionID(ctx context.Context, subID string) (*models.Calendar, error)

	// ExportCalendars returns every calendar with its items ordered by delivery date.
	ExportCalendars(ctx context.Context) ([]models.Calendar, error)

	// SetProviderSubscriptionID writes subID to the not yet migrated calendar of the customer.
	SetProviderSubscriptionID(ctx context.Context, customerID, subID string) (int64, error)
	ReplaceProviderSubscriptionID(ctx context.Context, calendarID uint, subID string) error

	Item(ctx context.Context, id uint) (*models.CalendarItem, error)
	SaveItem(ctx context.Context, item *models.CalendarItem) error
	UpdateItems(ctx context.Context, f ItemFilter, c ItemChanges) (int64, error)
	ListItems(ctx context.Context, calendarID uint, from, to *time.Time) ([]models.CalendarItem, error)

	CreateMigrationFailure(ctx context.Context, f *models.MigrationFailure) error
}
