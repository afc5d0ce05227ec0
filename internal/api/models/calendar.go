package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

// Calendar is one customer's delivery schedule. ProviderSubscriptionID is
// empty until the subscription was created in the provider.
type Calendar struct {
	gorm.Model

	CustomerID             string `gorm:"type:varchar(255);not null"`
	ProviderSubscriptionID string `gorm:"type:varchar(255);not null;default:''"`
	BillingInterval        string `gorm:"type:varchar(64);not null;default:''"`
	LastBillingDate        *time.Time

	Items []CalendarItem `gorm:"foreignkey:CalendarID"`
}

func (c *Calendar) GoString() string {
	return fmt.Sprintf("{ID: %d, CustomerID: %s, ProviderSubscriptionID: %q, Items: %d}",
		c.ID, c.CustomerID, c.ProviderSubscriptionID, len(c.Items))
}

func (c Calendar) IsMigrated() bool {
	return c.ProviderSubscriptionID != ""
}
