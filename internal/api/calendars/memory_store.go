package calendars

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/pkg/errors"
)

// MemoryStore keeps everything in process memory. Returned values are copies.
type MemoryStore struct {
	mu sync.Mutex

	nextID    uint
	calendars map[uint]*models.Calendar
	items     map[uint]*models.CalendarItem
	failures  []models.MigrationFailure

	now func() time.Time
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calendars: map[uint]*models.Calendar{},
		items:     map[uint]*models.CalendarItem{},
		now:       time.Now,
	}
}

func (s *MemoryStore) genID() uint {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateCalendar(_ context.Context, c *models.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.calendars {
		if existing.CustomerID == c.CustomerID {
			return errors.Wrapf(apierrors.ErrConflict, "calendar for customer %s already exists", c.CustomerID)
		}
	}
	for _, item := range c.Items {
		if item.Quantity < 1 {
			return errors.Wrapf(apierrors.ErrBadRequest, "quantity %d of variant %s must be >= 1",
				item.Quantity, item.ProductVariantID)
		}
	}

	now := s.now()
	c.ID = s.genID()
	c.CreatedAt, c.UpdatedAt = now, now

	stored := *c
	stored.Items = nil
	s.calendars[c.ID] = &stored

	for i := range c.Items {
		item := &c.Items[i]
		item.ID = s.genID()
		item.CalendarID = c.ID
		item.CreatedAt, item.UpdatedAt = now, now
		item.DeliveryDate = models.DateOf(item.DeliveryDate)
		if item.Status == "" {
			item.Status = models.ItemStatusScheduled
		}

		storedItem := *item
		s.items[item.ID] = &storedItem
	}

	return nil
}

// itemsOf must be called with s.mu held.
func (s *MemoryStore) itemsOf(calendarID uint, keep func(*models.CalendarItem) bool) []models.CalendarItem {
	var ret []models.CalendarItem
	for _, item := range s.items {
		if item.CalendarID != calendarID {
			continue
		}
		if keep != nil && !keep(item) {
			continue
		}
		ret = append(ret, *item)
	}

	sort.Slice(ret, func(i, j int) bool {
		if !ret[i].DeliveryDate.Equal(ret[j].DeliveryDate) {
			return ret[i].DeliveryDate.Before(ret[j].DeliveryDate)
		}
		return ret[i].ID < ret[j].ID
	})
	return ret
}

// withItems must be called with s.mu held.
func (s *MemoryStore) withItems(c *models.Calendar) *models.Calendar {
	ret := *c
	ret.Items = s.itemsOf(c.ID, nil)
	return &ret
}

func (s *MemoryStore) findCalendar(match func(*models.Calendar) bool) (*models.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.calendars {
		if match(c) {
			return s.withItems(c), nil
		}
	}

	return nil, apierrors.ErrNotFound
}

func (s *MemoryStore) CalendarByID(_ context.Context, id uint) (*models.Calendar, error) {
	return s.findCalendar(func(c *models.Calendar) bool { return c.ID == id })
}

func (s *MemoryStore) CalendarByCustomerID(_ context.Context, customerID string) (*models.Calendar, error) {
	return s.findCalendar(func(c *models.Calendar) bool { return c.CustomerID == customerID })
}

func (s *MemoryStore) CalendarByProviderSubscriptionID(_ context.Context, subID string) (*models.Calendar, error) {
	if subID == "" {
		return nil, apierrors.ErrNotFound
	}
	return s.findCalendar(func(c *models.Calendar) bool { return c.ProviderSubscriptionID == subID })
}

func (s *MemoryStore) ExportCalendars(_ context.Context) ([]models.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]models.Calendar, 0, len(s.calendars))
	for _, c := range s.calendars {
		ret = append(ret, *s.withItems(c))
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })

	return ret, nil
}

// subscriptionOwner returns the calendar holding subID, nil if none does.
func (s *MemoryStore) subscriptionOwner(subID string) *models.Calendar {
	for _, c := range s.calendars {
		if subID != "" && c.ProviderSubscriptionID == subID {
			return c
		}
	}
	return nil
}

func (s *MemoryStore) SetProviderSubscriptionID(_ context.Context, customerID, subID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner := s.subscriptionOwner(subID); owner != nil && owner.CustomerID != customerID {
		return 0, errors.Wrapf(apierrors.ErrConflict, "provider subscription %s belongs to another calendar", subID)
	}

	var n int64
	for _, c := range s.calendars {
		if c.CustomerID == customerID && c.ProviderSubscriptionID == "" {
			c.ProviderSubscriptionID = subID
			c.UpdatedAt = s.now()
			n++
		}
	}

	return n, nil
}

func (s *MemoryStore) ReplaceProviderSubscriptionID(_ context.Context, calendarID uint, subID string) error {
	if subID == "" {
		return errors.Wrap(apierrors.ErrBadRequest, "empty provider subscription id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.calendars[calendarID]
	if c == nil {
		return apierrors.ErrNotFound
	}
	if owner := s.subscriptionOwner(subID); owner != nil && owner.ID != calendarID {
		return errors.Wrapf(apierrors.ErrConflict, "provider subscription %s belongs to another calendar", subID)
	}
	c.ProviderSubscriptionID = subID
	c.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Item(_ context.Context, id uint) (*models.CalendarItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.items[id]
	if item == nil {
		return nil, apierrors.ErrNotFound
	}

	ret := *item
	return &ret, nil
}

func (s *MemoryStore) SaveItem(_ context.Context, item *models.CalendarItem) error {
	if item.Quantity < 1 {
		return errors.Wrapf(apierrors.ErrBadRequest, "quantity %d must be >= 1", item.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calendars[item.CalendarID]; !ok {
		return errors.Wrapf(apierrors.ErrNotFound, "no calendar %d", item.CalendarID)
	}

	now := s.now()
	if item.ID == 0 {
		item.ID = s.genID()
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.DeliveryDate = models.DateOf(item.DeliveryDate)

	stored := *item
	s.items[item.ID] = &stored
	return nil
}

func (f ItemFilter) matches(item *models.CalendarItem) bool {
	if item.CalendarID != f.CalendarID {
		return false
	}
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.VariantID != "" && item.ProductVariantID != f.VariantID {
		return false
	}
	if f.DeliveryFrom != nil && item.DeliveryDate.Before(models.DateOf(*f.DeliveryFrom)) {
		return false
	}
	return true
}

func (s *MemoryStore) UpdateItems(_ context.Context, f ItemFilter, c ItemChanges) (int64, error) {
	if f.CalendarID == 0 {
		return 0, errors.New("bulk item update requires a calendar id")
	}
	if c.IsEmpty() {
		return 0, nil
	}
	if c.Quantity != nil && *c.Quantity < 1 {
		return 0, errors.Wrapf(apierrors.ErrBadRequest, "quantity %d must be >= 1", *c.Quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for _, item := range s.items {
		if !f.matches(item) {
			continue
		}

		if c.DeliveryDate != nil {
			item.DeliveryDate = models.DateOf(*c.DeliveryDate)
		}
		if c.Quantity != nil {
			item.Quantity = *c.Quantity
		}
		if c.Status != nil {
			item.Status = *c.Status
		}
		item.UpdatedAt = now
		n++
	}

	return n, nil
}

func (s *MemoryStore) ListItems(_ context.Context, calendarID uint, from, to *time.Time) ([]models.CalendarItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.itemsOf(calendarID, func(item *models.CalendarItem) bool {
		if from != nil && item.DeliveryDate.Before(models.DateOf(*from)) {
			return false
		}
		if to != nil && item.DeliveryDate.After(models.DateOf(*to)) {
			return false
		}
		return true
	}), nil
}

func (s *MemoryStore) CreateMigrationFailure(_ context.Context, f *models.MigrationFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = s.genID()
	f.CreatedAt = s.now()
	s.failures = append(s.failures, *f)
	return nil
}

func (s *MemoryStore) MigrationFailures() []models.MigrationFailure {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]models.MigrationFailure, len(s.failures))
	copy(ret, s.failures)
	return ret
}
