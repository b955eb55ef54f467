package repository

import (
	"github.com/haulbound/billing/app/models"
	"gorm.io/gorm"
)

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a read-only repository over the customer
// master table.
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(customerID int) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Where("customer_id = ?", customerID).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Exists(customerID int) (bool, error) {
	var count int64
	err := r.db.Model(&models.Customer{}).Where("customer_id = ?", customerID).Count(&count).Error
	return count > 0, err
}
