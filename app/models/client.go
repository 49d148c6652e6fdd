package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

// Client is the canonical billing record for one paying customer. The row is
// keyed by the provider customer id and fully overwritten on every billing
// update, which keeps webhook redeliveries idempotent.
type Client struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	CustomerID          string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_clients_customer_id" json:"customer_id"`
	AuthorID            string    `gorm:"type:varchar(191);not null;default:'';index" json:"author_id"`
	Provider            string    `gorm:"type:varchar(20);not null;default:'stripe'" json:"provider"`
	SubscriptionID      string    `gorm:"type:varchar(191);not null;default:'';index" json:"subscription_id"`
	SubscriptionEndDate int64     `gorm:"not null;default:0" json:"subscription_end_date"`
	SubscriptionValid   bool      `gorm:"default:false;index" json:"subscription_valid"`
	PlanKey             string    `gorm:"type:varchar(50);not null;default:'sub::unknown';index" json:"plan_key"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
