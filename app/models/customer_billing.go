package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription status vocabulary mirrored from Stripe. Stored as free text
// because Stripe owns the state machine; these constants cover the values we
// branch on locally.
const (
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusActive            = "active"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusPaused            = "paused"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
)

// CustomerBilling is the local replica of one customer's Stripe billing
// state. Exactly one row per customer; rows are never hard-deleted, a
// cancellation is a status change.
type CustomerBilling struct {
	ID                   string     `gorm:"type:char(36);primaryKey" json:"id"`
	CustomerID           int        `gorm:"not null;uniqueIndex:ux_customer_billings_customer_id" json:"customer_id"`
	StripeCustomerID     string     `gorm:"type:varchar(255);not null;index:ux_customer_billings_stripe_customer,unique" json:"stripe_customer_id"`
	StripeSubscriptionID *string    `gorm:"type:varchar(255);default:null;index:ux_customer_billings_stripe_sub,unique" json:"stripe_subscription_id,omitempty"`
	PriceID              *string    `gorm:"type:varchar(255);default:null" json:"price_id,omitempty"`
	Status               *string    `gorm:"type:varchar(50);default:null" json:"status,omitempty"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAt             *time.Time `gorm:"type:timestamp;default:null" json:"cancel_at,omitempty"`
	PausedFrom           *time.Time `gorm:"type:timestamp;default:null" json:"paused_from,omitempty"`
	PausedUntil          *time.Time `gorm:"type:timestamp;default:null" json:"paused_until,omitempty"`
	// LastEventAt carries the provider snapshot timestamp of the most recent
	// write. Webhook events older than this marker are skipped so a delayed
	// delivery cannot overwrite newer state.
	LastEventAt *time.Time `gorm:"type:timestamp;default:null" json:"last_event_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the row UUID when the caller did not.
func (b *CustomerBilling) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// HasStripeCustomer reports whether the row is provisioned at Stripe.
func (b *CustomerBilling) HasStripeCustomer() bool {
	return b != nil && b.StripeCustomerID != ""
}
