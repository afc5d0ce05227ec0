package reconcile

import (
	"context"
	"time"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/calendars"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/shared/apperrors"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Reconciler keeps local calendars and provider subscriptions in sync.
type Reconciler struct {
	store    calendars.Store
	provider subsprovider.Provider
	log      logutil.Log
	tracker  apperrors.Tracker

	validate *validator.Validate
	now      func() time.Time
}

func NewReconciler(store calendars.Store, provider subsprovider.Provider,
	log logutil.Log, tracker apperrors.Tracker) *Reconciler {

	return &Reconciler{
		store:    store,
		provider: provider,
		log:      log,
		tracker:  tracker,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithClock replaces the source of "today", used by tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

func (r Reconciler) today() time.Time {
	return models.DateOf(r.now())
}

// EventResult is the outcome of one webhook event. A miss is not an error.
type EventResult struct {
	EventType      string
	SubscriptionID string
	CalendarID     uint
	Miss           bool
	ItemsUpdated   int64
}

func (r Reconciler) HandleEvent(ctx context.Context, ev Event) (*EventResult, error) {
	switch ev := ev.(type) {
	case *SubscriptionUpdatedEvent:
		return r.OnSubscriptionUpdated(ctx, ev)
	case *SubscriptionCancelledEvent:
		return r.OnSubscriptionCancelled(ctx, ev)
	default:
		return nil, errors.Wrapf(ErrUnsupportedEvent, "event %T", ev)
	}
}

// calendarFor returns nil calendar on a miss.
func (r Reconciler) calendarFor(ctx context.Context, ev Event, res *EventResult) (*models.Calendar, error) {
	c, err := r.store.CalendarByProviderSubscriptionID(ctx, ev.GetSubscriptionID())
	if err != nil {
		if errors.Cause(err) == apierrors.ErrNotFound {
			res.Miss = true
			r.reportMiss(ev)
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to find calendar for subscription %s", ev.GetSubscriptionID())
	}

	res.CalendarID = c.ID
	return c, nil
}

func (r Reconciler) reportMiss(ev Event) {
	r.log.Infof("No calendar for subscription %s, skipping %s event", ev.GetSubscriptionID(), ev.GetType())
	r.tracker.Track(apperrors.LevelWarn, "reconciliation miss: no calendar for provider subscription",
		map[string]interface{}{
			"event_type":      ev.GetType(),
			"subscription_id": ev.GetSubscriptionID(),
		})
}

func (r Reconciler) OnSubscriptionUpdated(ctx context.Context, ev *SubscriptionUpdatedEvent) (*EventResult, error) {
	res := &EventResult{EventType: ev.GetType(), SubscriptionID: ev.SubscriptionID}
	c, err := r.calendarFor(ctx, ev, res)
	if err != nil || c == nil {
		return res, err
	}

	if ev.NextDeliveryDate != nil {
		date := models.DateOf(ev.NextDeliveryDate.Time)
		n, err := r.store.UpdateItems(ctx, calendars.ItemFilter{
			CalendarID: c.ID,
			Status:     models.ItemStatusScheduled,
		}, calendars.ItemChanges{DeliveryDate: &date})
		if err != nil {
			return res, errors.Wrapf(err, "failed to move scheduled items of calendar %d", c.ID)
		}

		res.ItemsUpdated += n
		r.log.Infof("Moved %d scheduled items of calendar %d to %s", n, c.ID, models.FormatDate(date))
	}

	var firstErr error
	for _, ch := range ev.ProductChanges {
		n, err := r.store.UpdateItems(ctx, calendars.ItemFilter{
			CalendarID: c.ID,
			Status:     models.ItemStatusScheduled,
			VariantID:  ch.VariantID,
		}, calendars.ItemChanges{Quantity: ch.Quantity, Status: ch.Status})
		if err != nil {
			r.log.Warnf("Failed to apply product change for variant %s of calendar %d: %s", ch.VariantID, c.ID, err)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "failed to apply product change for variant %s", ch.VariantID)
			}
			continue
		}

		if n == 0 {
			r.log.Debugf("reconcile", "No scheduled items of variant %s in calendar %d", ch.VariantID, c.ID)
		}
		res.ItemsUpdated += n
	}

	if ev.NewSubscriptionID != "" && ev.NewSubscriptionID != c.ProviderSubscriptionID {
		if err := r.store.ReplaceProviderSubscriptionID(ctx, c.ID, ev.NewSubscriptionID); err != nil {
			return res, errors.Wrapf(err, "failed to rotate subscription id of calendar %d", c.ID)
		}
		r.log.Infof("Calendar %d subscription id rotated %s -> %s", c.ID, c.ProviderSubscriptionID, ev.NewSubscriptionID)
	}

	return res, firstErr
}

// OnSubscriptionCancelled cancels scheduled deliveries from today on. Past and
// already handled items are kept as they are.
func (r Reconciler) OnSubscriptionCancelled(ctx context.Context, ev *SubscriptionCancelledEvent) (*EventResult, error) {
	res := &EventResult{EventType: ev.GetType(), SubscriptionID: ev.SubscriptionID}
	c, err := r.calendarFor(ctx, ev, res)
	if err != nil || c == nil {
		return res, err
	}

	today := r.today()
	cancelled := models.ItemStatusCancelled
	n, err := r.store.UpdateItems(ctx, calendars.ItemFilter{
		CalendarID:   c.ID,
		Status:       models.ItemStatusScheduled,
		DeliveryFrom: &today,
	}, calendars.ItemChanges{Status: &cancelled})
	if err != nil {
		return res, errors.Wrapf(err, "failed to cancel items of calendar %d", c.ID)
	}

	res.ItemsUpdated = n
	r.log.Infof("Cancelled %d upcoming items of calendar %d", n, c.ID)
	return res, nil
}
