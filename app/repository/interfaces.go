package repository

import (
	"github.com/haulbound/billing/app/models"
	"gorm.io/gorm"
)

// CustomerRepository defines read access to the TMS customer master table.
// The table is owned upstream; there are no write methods on purpose.
type CustomerRepository interface {
	GetByID(customerID int) (*models.Customer, error)
	Exists(customerID int) (bool, error)
}

// CustomerBillingRepository defines the interface for billing replica rows.
type CustomerBillingRepository interface {
	Create(billing *models.CustomerBilling) error
	Save(billing *models.CustomerBilling) error
	GetByCustomerID(customerID int) (*models.CustomerBilling, error)
	GetByStripeCustomerID(stripeCustomerID string) (*models.CustomerBilling, error)
	GetByStripeSubscriptionID(subscriptionID string) (*models.CustomerBilling, error)
	ExistsByCustomerID(customerID int) (bool, error)
	ExistsByStripeSubscriptionID(subscriptionID string) (bool, error)
}

// PriceCatalogRepository defines the interface for the local price cache.
type PriceCatalogRepository interface {
	GetByPriceID(priceID string) (*models.PriceCatalog, error)
	ExistsByPriceID(priceID string) (bool, error)
	GetAll() ([]models.PriceCatalog, error)
	GetActive() ([]models.PriceCatalog, error)
	// ApplySyncBatch commits updates, inserts and removals in one transaction.
	ApplySyncBatch(updates, inserts, removals []models.PriceCatalog) error
}

// WebhookEventRepository defines the interface for webhook event bookkeeping.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless its Stripe event id is
	// already stored. Returns created=false with the stored row on duplicate.
	CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Customer        CustomerRepository
	CustomerBilling CustomerBillingRepository
	PriceCatalog    PriceCatalogRepository
	WebhookEvent    WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Customer:        NewCustomerRepository(db),
		CustomerBilling: NewCustomerBillingRepository(db),
		PriceCatalog:    NewPriceCatalogRepository(db),
		WebhookEvent:    NewWebhookEventRepository(db),
	}
}
