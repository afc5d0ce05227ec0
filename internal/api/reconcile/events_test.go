package reconcile

import (
	"testing"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUpdatedEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{
		"event_type": "subscription.updated",
		"subscription_id": "seal_sub_123",
		"next_delivery_date": "2024-06-01",
		"product_changes": [
			{"variant_id": "v1", "quantity": 3},
			{"variant_id": "v2", "status": "skipped"}
		]
	}`))
	require.NoError(t, err)

	updated, ok := ev.(*SubscriptionUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "seal_sub_123", updated.GetSubscriptionID())
	assert.Equal(t, "2024-06-01", models.FormatDate(updated.NextDeliveryDate.Time))
	require.Len(t, updated.ProductChanges, 2)
	assert.Equal(t, 3, *updated.ProductChanges[0].Quantity)
	assert.Nil(t, updated.ProductChanges[0].Status)
	assert.Nil(t, updated.ProductChanges[1].Quantity)
	assert.Equal(t, models.ItemStatusSkipped, *updated.ProductChanges[1].Status)
}

func TestParseEventAcceptsTimestamps(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event_type":"subscription.updated","subscription_id":"s","next_delivery_date":"2024-06-01T08:30:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", models.FormatDate(ev.(*SubscriptionUpdatedEvent).NextDeliveryDate.Time))
}

func TestParseCancelledEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"event_type":"subscription.cancelled","subscription_id":"seal_sub_123"}`))
	require.NoError(t, err)
	assert.IsType(t, &SubscriptionCancelledEvent{}, ev)
	assert.Equal(t, EventSubscriptionCancelled, ev.GetType())
}

func TestParseEventRejectsMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`not json`))
	assert.Equal(t, apierrors.ErrBadRequest, errors.Cause(err))

	_, err = ParseEvent([]byte(`{"subscription_id":"s"}`))
	assert.Equal(t, apierrors.ErrBadRequest, errors.Cause(err))

	_, err = ParseEvent([]byte(`{"event_type":"subscription.updated","subscription_id":"s","next_delivery_date":"06/01/2024"}`))
	assert.Equal(t, apierrors.ErrBadRequest, errors.Cause(err))

	_, err = ParseEvent([]byte(`{"event_type":"subscription.created","subscription_id":"s"}`))
	assert.Equal(t, ErrUnsupportedEvent, errors.Cause(err))

	_, err = ParseEvent([]byte(`{"event_type":"subscription.updated","subscription_id":"",
		"product_changes":[{"quantity":0,"status":"paused"}]}`))
	require.Error(t, err)
	verr, ok := err.(*apierrors.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "required", verr.Fields["subscription_id"])
	assert.Equal(t, "required", verr.Fields["product_changes[0].variant_id"])
	assert.Equal(t, "must be >= 1", verr.Fields["product_changes[0].quantity"])
	assert.Contains(t, verr.Fields, "product_changes[0].status")
}
