package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/pkg/errors"
)

const (
	EventSubscriptionUpdated   = "subscription.updated"
	EventSubscriptionCancelled = "subscription.cancelled"
)

var ErrUnsupportedEvent = errors.New("unsupported event type")

// Date is a delivery date in webhook payloads: "2024-06-01" or a full RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "date must be a string")
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = models.DateOf(t)
		return nil
	}

	t, err := models.ParseDate(s)
	if err != nil {
		return err
	}

	d.Time = t
	return nil
}

type Event interface {
	GetType() string
	GetSubscriptionID() string
}

type commonEvent struct {
	EventType      string `json:"event_type"`
	SubscriptionID string `json:"subscription_id"`
}

func (e commonEvent) GetType() string {
	return e.EventType
}

func (e commonEvent) GetSubscriptionID() string {
	return e.SubscriptionID
}

type ProductChange struct {
	VariantID string             `json:"variant_id"`
	Quantity  *int               `json:"quantity,omitempty"`
	Status    *models.ItemStatus `json:"status,omitempty"`
}

type SubscriptionUpdatedEvent struct {
	commonEvent

	NextDeliveryDate *Date           `json:"next_delivery_date,omitempty"`
	ProductChanges   []ProductChange `json:"product_changes,omitempty"`

	// NewSubscriptionID is set when the provider rotated the subscription id.
	NewSubscriptionID string `json:"new_subscription_id,omitempty"`
}

type SubscriptionCancelledEvent struct {
	commonEvent
}

// ParseEvent decodes and validates a webhook body. Unknown event types give ErrUnsupportedEvent.
func ParseEvent(payload []byte) (Event, error) {
	var common commonEvent
	if err := json.Unmarshal(payload, &common); err != nil {
		return nil, errors.Wrapf(apierrors.ErrBadRequest, "invalid json of len %d: %s", len(payload), err)
	}

	var ev Event
	switch common.EventType {
	case "":
		return nil, errors.Wrap(apierrors.ErrBadRequest, "no event_type key")
	case EventSubscriptionUpdated:
		updated := &SubscriptionUpdatedEvent{}
		if err := json.Unmarshal(payload, updated); err != nil {
			return nil, errors.Wrapf(apierrors.ErrBadRequest, "failed to decode %s event: %s", common.EventType, err)
		}
		ev = updated
	case EventSubscriptionCancelled:
		ev = &SubscriptionCancelledEvent{commonEvent: common}
	default:
		return nil, errors.Wrapf(ErrUnsupportedEvent, "got event type %q", common.EventType)
	}

	if err := validateEvent(ev); err != nil {
		return nil, err
	}

	return ev, nil
}

func validateEvent(ev Event) error {
	verr := apierrors.NewValidationError()
	if strings.TrimSpace(ev.GetSubscriptionID()) == "" {
		verr.Add("subscription_id", "required")
	}

	if updated, ok := ev.(*SubscriptionUpdatedEvent); ok {
		for i, ch := range updated.ProductChanges {
			field := fmt.Sprintf("product_changes[%d]", i)
			if ch.VariantID == "" {
				verr.Add(field+".variant_id", "required")
			}
			if ch.Quantity != nil && *ch.Quantity < 1 {
				verr.Add(field+".quantity", "must be >= 1")
			}
			if ch.Status != nil && !ch.Status.IsValid() {
				verr.Add(field+".status", fmt.Sprintf("unknown status %q", *ch.Status))
			}
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}
