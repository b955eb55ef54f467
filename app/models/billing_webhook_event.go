package models

import "time"

// BillingWebhookEvent stores received Stripe webhook payloads with
// deduplication metadata. Stripe retries deliveries independently, so the
// unique event id lets processing short-circuit repeats of events that were
// already applied cleanly.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	StripeEventID   string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_webhook_events_event_id" json:"stripe_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
