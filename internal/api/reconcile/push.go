package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/shared/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ItemEdit is a local change of one calendar item, nil fields keep the current value.
type ItemEdit struct {
	DeliveryDate *time.Time
	Quantity     *int               `validate:"omitempty,min=1"`
	Status       *models.ItemStatus `validate:"omitempty,oneof=scheduled skipped processed cancelled"`
}

func (e ItemEdit) IsEmpty() bool {
	return e.DeliveryDate == nil && e.Quantity == nil && e.Status == nil
}

// ProviderSyncError means the local edit was saved but the provider wasn't updated.
type ProviderSyncError struct {
	ItemID         uint
	SubscriptionID string
	Err            error
}

func (e ProviderSyncError) Error() string {
	return fmt.Sprintf("item %d saved locally, failed to sync subscription %s: %s", e.ItemID, e.SubscriptionID, e.Err)
}

var validationMessages = map[string]string{
	"min":   "must be >= 1",
	"oneof": "unknown value",
}

func (r Reconciler) validateEdit(edit ItemEdit, item *models.CalendarItem) error {
	verr := apierrors.NewValidationError()

	if err := r.validate.Struct(edit); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.Wrap(err, "failed to validate item edit")
		}
		for _, fe := range verrs {
			msg := validationMessages[fe.Tag()]
			if msg == "" {
				msg = "invalid"
			}
			verr.Add(fe.Field(), msg)
		}
	}

	if edit.DeliveryDate != nil && models.DateOf(*edit.DeliveryDate).Before(r.today()) {
		verr.Add("DeliveryDate", "can't be in the past")
	}
	if edit.Status != nil && edit.Status.IsValid() && !item.Status.CanTransitionTo(*edit.Status) {
		verr.Add("Status", fmt.Sprintf("can't change %s item to %s", item.Status, *edit.Status))
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// PushItemUpdate saves a local edit of an item and, if syncProvider is set,
// sends it to the provider. The local edit stays saved when the provider
// call fails: the error is then a *ProviderSyncError.
func (r Reconciler) PushItemUpdate(ctx context.Context, itemID uint, edit ItemEdit,
	syncProvider bool) (*models.CalendarItem, error) {

	item, err := r.store.Item(ctx, itemID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch item %d", itemID)
	}

	if err = r.validateEdit(edit, item); err != nil {
		return nil, err
	}

	c, err := r.store.CalendarByID(ctx, item.CalendarID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch calendar %d", item.CalendarID)
	}
	if syncProvider && !c.IsMigrated() {
		return nil, errors.Wrapf(apierrors.ErrBadRequest,
			"calendar %d has no provider subscription yet, can't sync", c.ID)
	}

	if edit.DeliveryDate != nil {
		item.DeliveryDate = models.DateOf(*edit.DeliveryDate)
	}
	if edit.Quantity != nil {
		item.Quantity = *edit.Quantity
	}
	if edit.Status != nil {
		item.Status = *edit.Status
	}

	if err = r.store.SaveItem(ctx, item); err != nil {
		return nil, errors.Wrapf(err, "failed to save item %d", itemID)
	}
	r.log.Infof("Saved item %#v", item)

	if !syncProvider {
		return item, nil
	}

	payload := itemUpdatePayload(item)
	if _, err = r.provider.UpdateSubscription(ctx, c.ProviderSubscriptionID, payload); err != nil {
		r.tracker.Track(apperrors.LevelError, "failed to sync calendar item with provider", map[string]interface{}{
			"item_id":         item.ID,
			"calendar_id":     c.ID,
			"subscription_id": c.ProviderSubscriptionID,
			"error":           err.Error(),
		})
		return item, &ProviderSyncError{
			ItemID:         item.ID,
			SubscriptionID: c.ProviderSubscriptionID,
			Err:            err,
		}
	}

	r.log.Infof("Synced item %d to subscription %s", item.ID, c.ProviderSubscriptionID)
	return item, nil
}

func itemUpdatePayload(item *models.CalendarItem) subsprovider.UpdatePayload {
	date := models.FormatDate(item.DeliveryDate)
	payload := subsprovider.UpdatePayload{
		NextDeliveryDate: &date,
		Products: []subsprovider.ProductLine{{
			VariantID: item.ProductVariantID,
			Quantity:  item.Quantity,
		}},
	}

	if item.Status == models.ItemStatusSkipped {
		skip := true
		payload.SkipNextDelivery = &skip
	}

	return payload
}
