package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemStatusScheduled ItemStatus = "scheduled"
	ItemStatusSkipped   ItemStatus = "skipped"
	ItemStatusProcessed ItemStatus = "processed"
	ItemStatusCancelled ItemStatus = "cancelled"
)

func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusScheduled, ItemStatusSkipped, ItemStatusProcessed, ItemStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether nothing in calsync moves an item out of this status.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusSkipped || s == ItemStatusProcessed || s == ItemStatusCancelled
}

// CanTransitionTo allows scheduled -> any and staying in the same status.
func (s ItemStatus) CanTransitionTo(to ItemStatus) bool {
	if s == to {
		return true
	}
	return s == ItemStatusScheduled && to.IsValid()
}

type CalendarItem struct {
	gorm.Model

	CalendarID       uint            `gorm:"not null"`
	DeliveryDate     time.Time       `gorm:"type:date;not null"`
	ProductVariantID string          `gorm:"type:varchar(255);not null"`
	Quantity         int             `gorm:"not null;default:1"`
	Price            decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Status           ItemStatus      `gorm:"type:varchar(20);not null;default:'scheduled'"`
}

func (i *CalendarItem) GoString() string {
	return fmt.Sprintf("{ID: %d, CalendarID: %d, Date: %s, Variant: %s, Qty: %d, Status: %s}",
		i.ID, i.CalendarID, FormatDate(i.DeliveryDate), i.ProductVariantID, i.Quantity, i.Status)
}
