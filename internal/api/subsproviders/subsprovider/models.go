package subsprovider

import (
	"time"

	"github.com/shopspring/decimal"
)

const IntervalUnitMonth = "month"

type BillingInterval struct {
	Unit  string `json:"interval"`
	Count int    `json:"interval_count"`
}

type ProductLine struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`

	// Price is required on creation and never sent on update.
	Price *decimal.Decimal `json:"price,omitempty"`
}

type CreatePayload struct {
	CustomerID      string          `json:"customer_id"`
	BillingInterval BillingInterval `json:"billing_interval"`
	Products        []ProductLine   `json:"products"`
	NextBillingDate time.Time       `json:"next_billing_date"`
}

// UpdatePayload is a partial update: nil and empty fields are left out of the request body.
type UpdatePayload struct {
	NextDeliveryDate *string       `json:"next_delivery_date,omitempty"`
	Products         []ProductLine `json:"products,omitempty"`
	SkipNextDelivery *bool         `json:"skip_next_delivery,omitempty"`
}

func (p UpdatePayload) IsEmpty() bool {
	return p.NextDeliveryDate == nil && len(p.Products) == 0 && p.SkipNextDelivery == nil
}

type Subscription struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customer_id,omitempty"`
	Status          string           `json:"status,omitempty"`
	BillingInterval *BillingInterval `json:"billing_interval,omitempty"`
	Products        []ProductLine    `json:"products,omitempty"`
	NextBillingDate string           `json:"next_billing_date,omitempty"`
}
