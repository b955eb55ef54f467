package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/haulbound/billing/app/models"
	"github.com/haulbound/billing/app/repository"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

type fakeCustomerRepo struct {
	customers map[int]*models.Customer
}

func (r *fakeCustomerRepo) GetByID(customerID int) (*models.Customer, error) {
	if c, ok := r.customers[customerID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepo) Exists(customerID int) (bool, error) {
	_, ok := r.customers[customerID]
	return ok, nil
}

type fakeBillingRepo struct {
	rows    map[string]*models.CustomerBilling
	seq     int
	saveErr error
}

func (r *fakeBillingRepo) Create(billing *models.CustomerBilling) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if billing.ID == "" {
		r.seq++
		billing.ID = fmt.Sprintf("cb-%d", r.seq)
	}
	copied := *billing
	r.rows[billing.ID] = &copied
	return nil
}

func (r *fakeBillingRepo) Save(billing *models.CustomerBilling) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	copied := *billing
	r.rows[billing.ID] = &copied
	return nil
}

func (r *fakeBillingRepo) GetByCustomerID(customerID int) (*models.CustomerBilling, error) {
	return r.find(func(b *models.CustomerBilling) bool { return b.CustomerID == customerID })
}

func (r *fakeBillingRepo) GetByStripeCustomerID(stripeCustomerID string) (*models.CustomerBilling, error) {
	return r.find(func(b *models.CustomerBilling) bool { return b.StripeCustomerID == stripeCustomerID })
}

func (r *fakeBillingRepo) GetByStripeSubscriptionID(subscriptionID string) (*models.CustomerBilling, error) {
	return r.find(func(b *models.CustomerBilling) bool {
		return b.StripeSubscriptionID != nil && *b.StripeSubscriptionID == subscriptionID
	})
}

func (r *fakeBillingRepo) ExistsByCustomerID(customerID int) (bool, error) {
	_, err := r.GetByCustomerID(customerID)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeBillingRepo) ExistsByStripeSubscriptionID(subscriptionID string) (bool, error) {
	_, err := r.GetByStripeSubscriptionID(subscriptionID)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeBillingRepo) find(match func(*models.CustomerBilling) bool) (*models.CustomerBilling, error) {
	for _, b := range r.rows {
		if match(b) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakePriceRepo struct {
	rows     map[string]models.PriceCatalog
	batchErr error
}

func (r *fakePriceRepo) GetByPriceID(priceID string) (*models.PriceCatalog, error) {
	if p, ok := r.rows[priceID]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePriceRepo) ExistsByPriceID(priceID string) (bool, error) {
	_, ok := r.rows[priceID]
	return ok, nil
}

func (r *fakePriceRepo) GetAll() ([]models.PriceCatalog, error) {
	out := make([]models.PriceCatalog, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitAmount < out[j].UnitAmount })
	return out, nil
}

func (r *fakePriceRepo) GetActive() ([]models.PriceCatalog, error) {
	all, _ := r.GetAll()
	out := all[:0]
	for _, p := range all {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePriceRepo) ApplySyncBatch(updates, inserts, removals []models.PriceCatalog) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	for _, p := range updates {
		r.rows[p.PriceID] = p
	}
	for _, p := range inserts {
		r.rows[p.PriceID] = p
	}
	for _, p := range removals {
		delete(r.rows, p.PriceID)
	}
	return nil
}

type fakeEventRepo struct {
	rows map[string]*models.BillingWebhookEvent
	seq  uint
}

func (r *fakeEventRepo) CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if stored, ok := r.rows[event.StripeEventID]; ok {
		copied := *stored
		return false, &copied, nil
	}
	r.seq++
	event.ID = r.seq
	copied := *event
	r.rows[event.StripeEventID] = &copied
	returned := *event
	return true, &returned, nil
}

func (r *fakeEventRepo) MarkProcessed(id uint, processingError string) error {
	for _, e := range r.rows {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeStripeClient struct {
	nextCustomerID    string
	createCustomerErr error
	createdCustomers  []CustomerParams

	nextSubscription  *SubscriptionSnapshot
	createSubErr      error
	capturedTrialEnd  *time.Time
	fetchSubscription *SubscriptionSnapshot
	fetchErr          error

	activePrices []PriceSnapshot
	listErr      error

	pausedIDs    []string
	canceledIDs  []string
	scheduledIDs []string
	resumedIDs   []string
	itemUpdates  map[string]string
	pmUpdates    map[string]string
}

func newFakeStripeClient() *fakeStripeClient {
	return &fakeStripeClient{
		nextCustomerID: "cus_test",
		itemUpdates:    map[string]string{},
		pmUpdates:      map[string]string{},
	}
}

func (f *fakeStripeClient) CreateCustomer(_ context.Context, params CustomerParams) (string, error) {
	if f.createCustomerErr != nil {
		return "", f.createCustomerErr
	}
	f.createdCustomers = append(f.createdCustomers, params)
	return f.nextCustomerID, nil
}

func (f *fakeStripeClient) CreateSubscription(_ context.Context, _, _ string, trialEnd *time.Time) (*SubscriptionSnapshot, error) {
	if f.createSubErr != nil {
		return nil, f.createSubErr
	}
	f.capturedTrialEnd = trialEnd
	return f.nextSubscription, nil
}

func (f *fakeStripeClient) GetSubscription(_ context.Context, _ string) (*SubscriptionSnapshot, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetchSubscription, nil
}

func (f *fakeStripeClient) UpdateSubscriptionItemPrice(_ context.Context, itemID, newPriceID string) error {
	f.itemUpdates[itemID] = newPriceID
	return nil
}

func (f *fakeStripeClient) PauseSubscription(_ context.Context, subscriptionID string) error {
	f.pausedIDs = append(f.pausedIDs, subscriptionID)
	return nil
}

func (f *fakeStripeClient) CancelSubscription(_ context.Context, subscriptionID string) error {
	f.canceledIDs = append(f.canceledIDs, subscriptionID)
	return nil
}

func (f *fakeStripeClient) ScheduleCancelAtPeriodEnd(_ context.Context, subscriptionID string) error {
	f.scheduledIDs = append(f.scheduledIDs, subscriptionID)
	return nil
}

func (f *fakeStripeClient) ResumeSubscription(_ context.Context, subscriptionID string) error {
	f.resumedIDs = append(f.resumedIDs, subscriptionID)
	return nil
}

func (f *fakeStripeClient) SetDefaultPaymentMethod(_ context.Context, subscriptionID, paymentMethodID string) error {
	f.pmUpdates[subscriptionID] = paymentMethodID
	return nil
}

func (f *fakeStripeClient) ListActivePrices(_ context.Context) ([]PriceSnapshot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.activePrices, nil
}

func (f *fakeStripeClient) CreateSetupIntent(_ context.Context, _ string) (*SetupIntentData, error) {
	return &SetupIntentData{ClientSecret: "seti_secret", EphemeralKey: "ek_secret"}, nil
}

type memoryPriceCache struct {
	prices        []models.PriceCatalog
	warm          bool
	invalidations int
}

func (c *memoryPriceCache) Get() ([]models.PriceCatalog, bool) {
	if !c.warm {
		return nil, false
	}
	return c.prices, true
}

func (c *memoryPriceCache) Set(prices []models.PriceCatalog) {
	c.prices = prices
	c.warm = true
}

func (c *memoryPriceCache) Invalidate() {
	c.prices = nil
	c.warm = false
	c.invalidations++
}

type testEnv struct {
	service   *Service
	customers *fakeCustomerRepo
	billings  *fakeBillingRepo
	prices    *fakePriceRepo
	events    *fakeEventRepo
	stripe    *fakeStripeClient
	cache     *memoryPriceCache
}

func newTestEnv() *testEnv {
	env := &testEnv{
		customers: &fakeCustomerRepo{customers: map[int]*models.Customer{}},
		billings:  &fakeBillingRepo{rows: map[string]*models.CustomerBilling{}},
		prices:    &fakePriceRepo{rows: map[string]models.PriceCatalog{}},
		events:    &fakeEventRepo{rows: map[string]*models.BillingWebhookEvent{}},
		stripe:    newFakeStripeClient(),
		cache:     &memoryPriceCache{},
	}
	repos := &repository.Repositories{
		Customer:        env.customers,
		CustomerBilling: env.billings,
		PriceCatalog:    env.prices,
		WebhookEvent:    env.events,
	}
	env.service = NewService(repos, env.stripe, env.cache, testWebhookSecret)
	return env
}

func (e *testEnv) addCustomer(id int) {
	e.customers.customers[id] = &models.Customer{
		CustomerID: id,
		Name1:      "Acme",
		Name2:      "Freight",
		Email:      "billing@acme.test",
		Phone:      "+1 555 0100",
		Address1:   "1 Dock Rd",
		City:       "Dayton",
		State:      "OH",
		ZipCode:    "45402",
		Country:    "US",
	}
}

func (e *testEnv) addPrice(id string, amount int64, trialDays *int64) {
	e.prices.rows[id] = models.PriceCatalog{
		PriceID:    id,
		Name:       "Plan " + id,
		UnitAmount: amount,
		Currency:   "usd",
		Interval:   "month",
		TrialDays:  trialDays,
		IsActive:   true,
	}
}
