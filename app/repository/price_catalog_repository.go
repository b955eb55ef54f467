package repository

import (
	"github.com/haulbound/billing/app/models"
	"gorm.io/gorm"
)

type priceCatalogRepository struct {
	db *gorm.DB
}

// NewPriceCatalogRepository creates a price cache repository backed by GORM.
func NewPriceCatalogRepository(db *gorm.DB) PriceCatalogRepository {
	return &priceCatalogRepository{db: db}
}

func (r *priceCatalogRepository) GetByPriceID(priceID string) (*models.PriceCatalog, error) {
	var price models.PriceCatalog
	err := r.db.Where("price_id = ?", priceID).First(&price).Error
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *priceCatalogRepository) ExistsByPriceID(priceID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.PriceCatalog{}).Where("price_id = ?", priceID).Count(&count).Error
	return count > 0, err
}

func (r *priceCatalogRepository) GetAll() ([]models.PriceCatalog, error) {
	var prices []models.PriceCatalog
	err := r.db.Find(&prices).Error
	return prices, err
}

func (r *priceCatalogRepository) GetActive() ([]models.PriceCatalog, error) {
	var prices []models.PriceCatalog
	err := r.db.Where("is_active = ?", true).Order("unit_amount asc").Find(&prices).Error
	return prices, err
}

// ApplySyncBatch writes one sync cycle's diff. Updates, inserts and removals
// land in a single transaction so a failed cycle never leaves a half-applied
// catalog.
func (r *priceCatalogRepository) ApplySyncBatch(updates, inserts, removals []models.PriceCatalog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for i := range updates {
			if err := tx.Save(&updates[i]).Error; err != nil {
				return err
			}
		}
		if len(inserts) > 0 {
			if err := tx.Create(&inserts).Error; err != nil {
				return err
			}
		}
		for i := range removals {
			if err := tx.Where("price_id = ?", removals[i].PriceID).Delete(&models.PriceCatalog{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
