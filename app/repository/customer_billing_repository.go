package repository

import (
	"github.com/haulbound/billing/app/models"
	"gorm.io/gorm"
)

type customerBillingRepository struct {
	db *gorm.DB
}

// NewCustomerBillingRepository creates a billing replica repository backed by GORM.
func NewCustomerBillingRepository(db *gorm.DB) CustomerBillingRepository {
	return &customerBillingRepository{db: db}
}

func (r *customerBillingRepository) Create(billing *models.CustomerBilling) error {
	return r.db.Create(billing).Error
}

func (r *customerBillingRepository) Save(billing *models.CustomerBilling) error {
	return r.db.Save(billing).Error
}

func (r *customerBillingRepository) GetByCustomerID(customerID int) (*models.CustomerBilling, error) {
	var billing models.CustomerBilling
	err := r.db.Where("customer_id = ?", customerID).First(&billing).Error
	if err != nil {
		return nil, err
	}
	return &billing, nil
}

func (r *customerBillingRepository) GetByStripeCustomerID(stripeCustomerID string) (*models.CustomerBilling, error) {
	var billing models.CustomerBilling
	err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).First(&billing).Error
	if err != nil {
		return nil, err
	}
	return &billing, nil
}

func (r *customerBillingRepository) GetByStripeSubscriptionID(subscriptionID string) (*models.CustomerBilling, error) {
	var billing models.CustomerBilling
	err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&billing).Error
	if err != nil {
		return nil, err
	}
	return &billing, nil
}

func (r *customerBillingRepository) ExistsByCustomerID(customerID int) (bool, error) {
	var count int64
	err := r.db.Model(&models.CustomerBilling{}).Where("customer_id = ?", customerID).Count(&count).Error
	return count > 0, err
}

func (r *customerBillingRepository) ExistsByStripeSubscriptionID(subscriptionID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.CustomerBilling{}).Where("stripe_subscription_id = ?", subscriptionID).Count(&count).Error
	return count > 0, err
}
