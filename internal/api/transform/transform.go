package transform

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/shopspring/decimal"
)

const daysPerMonth = 30

var billingIntervals = map[string]subsprovider.BillingInterval{
	"monthly":   {Unit: subsprovider.IntervalUnitMonth, Count: 1},
	"bimonthly": {Unit: subsprovider.IntervalUnitMonth, Count: 2},
	"quarterly": {Unit: subsprovider.IntervalUnitMonth, Count: 3},
}

type Product struct {
	VariantID string
	Quantity  int
	Price     decimal.Decimal
}

// SubscriptionRecord is what gets exported from a local calendar.
type SubscriptionRecord struct {
	CustomerID      string
	BillingInterval string
	LastBillingDate *time.Time
	Products        []Product
}

func MapBillingInterval(label string) (subsprovider.BillingInterval, error) {
	interval, ok := billingIntervals[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return subsprovider.BillingInterval{}, &MappingError{
			Field:  "billing interval",
			Value:  label,
			Reason: "unknown label",
		}
	}

	return interval, nil
}

func MapProducts(products []Product) []subsprovider.ProductLine {
	ret := make([]subsprovider.ProductLine, 0, len(products))
	for _, p := range products {
		price := p.Price
		ret = append(ret, subsprovider.ProductLine{
			VariantID: p.VariantID,
			Quantity:  p.Quantity,
			Price:     &price,
		})
	}

	return ret
}

// NextBillingDate adds 30 days per interval month to last, or to now when
// there was no billing yet. Months are always 30 days long here.
func NextBillingDate(last *time.Time, interval subsprovider.BillingInterval, now time.Time) (time.Time, error) {
	if interval.Unit != subsprovider.IntervalUnitMonth {
		return time.Time{}, &MappingError{
			Field:  "billing interval unit",
			Value:  interval.Unit,
			Reason: "only month is supported",
		}
	}
	if interval.Count < 1 {
		return time.Time{}, &MappingError{
			Field:  "billing interval count",
			Value:  strconv.Itoa(interval.Count),
			Reason: "must be positive",
		}
	}

	anchor := now
	if last != nil {
		anchor = *last
	}

	return anchor.AddDate(0, 0, daysPerMonth*interval.Count), nil
}

func TransformSubscription(rec SubscriptionRecord, now time.Time) (*subsprovider.CreatePayload, error) {
	interval, err := MapBillingInterval(rec.BillingInterval)
	if err != nil {
		return nil, err
	}

	if len(rec.Products) == 0 {
		return nil, &MappingError{Field: "products", Reason: "no scheduled deliveries"}
	}
	for _, p := range rec.Products {
		if p.Quantity < 1 {
			return nil, &MappingError{
				Field:  "quantity of variant " + p.VariantID,
				Value:  strconv.Itoa(p.Quantity),
				Reason: "must be >= 1",
			}
		}
	}

	next, err := NextBillingDate(rec.LastBillingDate, interval, now)
	if err != nil {
		return nil, err
	}

	return &subsprovider.CreatePayload{
		CustomerID:      rec.CustomerID,
		BillingInterval: interval,
		Products:        MapProducts(rec.Products),
		NextBillingDate: next,
	}, nil
}

// RecordFromCalendar takes one product per variant from the scheduled items,
// using the quantity and price of its earliest delivery.
func RecordFromCalendar(c models.Calendar) SubscriptionRecord {
	var scheduled []models.CalendarItem
	for _, item := range c.Items {
		if item.Status == models.ItemStatusScheduled {
			scheduled = append(scheduled, item)
		}
	}
	sort.SliceStable(scheduled, func(i, j int) bool {
		return scheduled[i].DeliveryDate.Before(scheduled[j].DeliveryDate)
	})

	seen := map[string]bool{}
	var products []Product
	for _, item := range scheduled {
		if seen[item.ProductVariantID] {
			continue
		}
		seen[item.ProductVariantID] = true

		products = append(products, Product{
			VariantID: item.ProductVariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return SubscriptionRecord{
		CustomerID:      c.CustomerID,
		BillingInterval: c.BillingInterval,
		LastBillingDate: c.LastBillingDate,
		Products:        products,
	}
}
