package calendars

import (
	"context"
	"time"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

type GormStore struct {
	db *gorm.DB
}

var _ Store = &GormStore{}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func orderItemsByDate(db *gorm.DB) *gorm.DB {
	return db.Order("delivery_date asc, id asc")
}

func (s GormStore) CreateCalendar(_ context.Context, c *models.Calendar) error {
	for i := range c.Items {
		if c.Items[i].Quantity < 1 {
			return errors.Wrapf(apierrors.ErrBadRequest, "quantity %d of variant %s must be >= 1",
				c.Items[i].Quantity, c.Items[i].ProductVariantID)
		}
		c.Items[i].DeliveryDate = models.DateOf(c.Items[i].DeliveryDate)
	}

	var existing int
	if err := s.db.Model(&models.Calendar{}).Where("customer_id = ?", c.CustomerID).Count(&existing).Error; err != nil {
		return errors.Wrapf(err, "failed to check calendar of customer %s", c.CustomerID)
	}
	if existing != 0 {
		return errors.Wrapf(apierrors.ErrConflict, "calendar for customer %s already exists", c.CustomerID)
	}

	if err := s.db.Create(c).Error; err != nil {
		return errors.Wrapf(err, "failed to create calendar for customer %s", c.CustomerID)
	}

	return nil
}

func (s GormStore) findCalendar(query string, arg interface{}) (*models.Calendar, error) {
	var c models.Calendar
	err := s.db.Preload("Items", orderItemsByDate).Where(query, arg).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apierrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch calendar by %s", query)
	}

	return &c, nil
}

func (s GormStore) CalendarByID(_ context.Context, id uint) (*models.Calendar, error) {
	return s.findCalendar("id = ?", id)
}

func (s GormStore) CalendarByCustomerID(_ context.Context, customerID string) (*models.Calendar, error) {
	return s.findCalendar("customer_id = ?", customerID)
}

func (s GormStore) CalendarByProviderSubscriptionID(_ context.Context, subID string) (*models.Calendar, error) {
	if subID == "" {
		return nil, apierrors.ErrNotFound
	}
	return s.findCalendar("provider_subscription_id = ?", subID)
}

func (s GormStore) ExportCalendars(_ context.Context) ([]models.Calendar, error) {
	var cals []models.Calendar
	if err := s.db.Preload("Items", orderItemsByDate).Order("id asc").Find(&cals).Error; err != nil {
		return nil, errors.Wrap(err, "failed to export calendars")
	}

	return cals, nil
}

// subscriptionTaken reports whether a calendar not matching exceptQuery
// already holds subID.
func (s GormStore) subscriptionTaken(subID, exceptQuery string, exceptArg interface{}) (bool, error) {
	var n int
	err := s.db.Model(&models.Calendar{}).
		Where("provider_subscription_id = ? AND NOT ("+exceptQuery+")", subID, exceptArg).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrapf(err, "failed to check owner of provider subscription %s", subID)
	}
	return n != 0, nil
}

func (s GormStore) SetProviderSubscriptionID(_ context.Context, customerID, subID string) (int64, error) {
	taken, err := s.subscriptionTaken(subID, "customer_id = ?", customerID)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, errors.Wrapf(apierrors.ErrConflict, "provider subscription %s belongs to another calendar", subID)
	}

	res := s.db.Model(&models.Calendar{}).
		Where("customer_id = ? AND provider_subscription_id = ?", customerID, "").
		Update("provider_subscription_id", subID)
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "failed to set provider subscription id for customer %s", customerID)
	}

	return res.RowsAffected, nil
}

func (s GormStore) ReplaceProviderSubscriptionID(_ context.Context, calendarID uint, subID string) error {
	if subID == "" {
		return errors.Wrap(apierrors.ErrBadRequest, "empty provider subscription id")
	}

	taken, err := s.subscriptionTaken(subID, "id = ?", calendarID)
	if err != nil {
		return err
	}
	if taken {
		return errors.Wrapf(apierrors.ErrConflict, "provider subscription %s belongs to another calendar", subID)
	}

	res := s.db.Model(&models.Calendar{}).Where("id = ?", calendarID).
		Update("provider_subscription_id", subID)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to replace provider subscription id of calendar %d", calendarID)
	}
	if res.RowsAffected == 0 {
		return apierrors.ErrNotFound
	}

	return nil
}

func (s GormStore) Item(_ context.Context, id uint) (*models.CalendarItem, error) {
	var item models.CalendarItem
	err := s.db.Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apierrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch calendar item %d", id)
	}

	return &item, nil
}

func (s GormStore) SaveItem(_ context.Context, item *models.CalendarItem) error {
	if item.Quantity < 1 {
		return errors.Wrapf(apierrors.ErrBadRequest, "quantity %d must be >= 1", item.Quantity)
	}

	item.DeliveryDate = models.DateOf(item.DeliveryDate)
	if err := s.db.Save(item).Error; err != nil {
		return errors.Wrapf(err, "failed to save calendar item %d", item.ID)
	}

	return nil
}

func (s GormStore) UpdateItems(_ context.Context, f ItemFilter, c ItemChanges) (int64, error) {
	if f.CalendarID == 0 {
		return 0, errors.New("bulk item update requires a calendar id")
	}
	if c.IsEmpty() {
		return 0, nil
	}
	if c.Quantity != nil && *c.Quantity < 1 {
		return 0, errors.Wrapf(apierrors.ErrBadRequest, "quantity %d must be >= 1", *c.Quantity)
	}

	q := s.db.Model(&models.CalendarItem{}).Where("calendar_id = ?", f.CalendarID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.VariantID != "" {
		q = q.Where("product_variant_id = ?", f.VariantID)
	}
	if f.DeliveryFrom != nil {
		q = q.Where("delivery_date >= ?", models.DateOf(*f.DeliveryFrom))
	}

	res := q.Updates(c.toMap())
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "failed to update items of calendar %d", f.CalendarID)
	}

	return res.RowsAffected, nil
}

func (s GormStore) ListItems(_ context.Context, calendarID uint, from, to *time.Time) ([]models.CalendarItem, error) {
	q := s.db.Where("calendar_id = ?", calendarID)
	if from != nil {
		q = q.Where("delivery_date >= ?", models.DateOf(*from))
	}
	if to != nil {
		q = q.Where("delivery_date <= ?", models.DateOf(*to))
	}

	var items []models.CalendarItem
	if err := orderItemsByDate(q).Find(&items).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list items of calendar %d", calendarID)
	}

	return items, nil
}

func (s GormStore) CreateMigrationFailure(_ context.Context, f *models.MigrationFailure) error {
	if err := s.db.Create(f).Error; err != nil {
		return errors.Wrapf(err, "failed to save migration failure for customer %s", f.CustomerID)
	}

	return nil
}
