package repository

import (
	"time"

	"github.com/haulbound/billing/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event repository backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) MarkProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
