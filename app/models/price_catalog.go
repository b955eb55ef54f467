package models

import "time"

// PriceCatalog caches Stripe's active price list for local lookups. The
// primary key is Stripe's price id; rows are only ever written by the price
// synchronizer.
type PriceCatalog struct {
	PriceID      string    `gorm:"type:varchar(255);primaryKey;column:price_id" json:"price_id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	UnitAmount   int64     `gorm:"not null;default:0" json:"unit_amount"`
	Currency     string    `gorm:"type:varchar(3);not null" json:"currency"`
	Interval     string    `gorm:"type:varchar(20);not null;default:'unknown'" json:"interval"`
	TrialDays    *int64    `gorm:"default:null" json:"trial_days,omitempty"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	LastSyncedAt time.Time `gorm:"type:timestamp" json:"last_synced_at"`
}
