package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haulbound/billing/app/models"
	"github.com/haulbound/billing/app/repository"
	"github.com/haulbound/billing/internal/pkg/env"
	"gorm.io/gorm"
)

// Service reconciles local billing state against Stripe. Every public method
// returns a tagged Result; no error value or panic escapes the service.
type Service struct {
	customers     repository.CustomerRepository
	billings      repository.CustomerBillingRepository
	prices        repository.PriceCatalogRepository
	events        repository.WebhookEventRepository
	stripe        StripeClient
	priceCache    PriceListCache
	webhookSecret string
}

// NewService creates a billing service with explicit collaborators.
func NewService(repos *repository.Repositories, client StripeClient, priceCache PriceListCache, webhookSecret string) *Service {
	return &Service{
		customers:     repos.Customer,
		billings:      repos.CustomerBilling,
		prices:        repos.PriceCatalog,
		events:        repos.WebhookEvent,
		stripe:        client,
		priceCache:    priceCache,
		webhookSecret: webhookSecret,
	}
}

// NewServiceFromDB wires the production service from a GORM handle and the
// environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(
		repository.NewRepositories(db),
		NewStripeClientFromEnv(),
		NewRedisPriceCache(),
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)
}

// EnsureStripeCustomer guarantees the customer has exactly one Stripe
// customer record and returns its id. The fast path (already provisioned) is
// a pure local read. NotFound means the master record is missing; Other
// means the Stripe call or a local write failed.
func (s *Service) EnsureStripeCustomer(ctx context.Context, customerID int) Result[string] {
	if customerID <= 0 {
		return Fail[string]("invalid customer id provided", ErrorValidation)
	}

	existing, err := s.billings.GetByCustomerID(customerID)
	if err == nil && existing.HasStripeCustomer() {
		return Success(existing.StripeCustomerID, "stripe customer already provisioned")
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Fail[string](fmt.Sprintf("error loading billing record: %v", err), ErrorOther)
	}

	customer, err := s.customers.GetByID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[string](fmt.Sprintf("customer with id %d not found", customerID), ErrorNotFound)
		}
		return Fail[string](fmt.Sprintf("error loading customer: %v", err), ErrorOther)
	}

	stripeCustomerID, err := s.stripe.CreateCustomer(ctx, CustomerParams{
		CustomerID: customerID,
		Name:       customer.FullName(),
		Email:      customer.Email,
		Phone:      customer.Phone,
		Address1:   customer.Address1,
		Address2:   customer.Address2,
		City:       customer.City,
		State:      customer.State,
		ZipCode:    customer.ZipCode,
		Country:    customer.Country,
	})
	if err != nil {
		return Fail[string](fmt.Sprintf("error creating stripe customer: %v", err), ErrorOther)
	}

	if existing != nil {
		existing.StripeCustomerID = stripeCustomerID
		err = s.billings.Save(existing)
	} else {
		err = s.billings.Create(&models.CustomerBilling{
			CustomerID:       customerID,
			StripeCustomerID: stripeCustomerID,
		})
	}
	if err != nil {
		return Fail[string](fmt.Sprintf("error persisting billing record: %v", err), ErrorOther)
	}

	return Created(stripeCustomerID, "stripe customer provisioned")
}

// Subscribe creates a Stripe subscription for the customer on the given
// price and mirrors the resulting state locally. Payment confirmation is
// deferred so the client can collect the first payment.
func (s *Service) Subscribe(ctx context.Context, customerID int, priceID string) Result[string] {
	if strings.TrimSpace(priceID) == "" {
		return Fail[string]("price id is required", ErrorValidation)
	}

	provisioned := s.EnsureStripeCustomer(ctx, customerID)
	if !provisioned.IsSuccess {
		return Fail[string](provisioned.Message, provisioned.Error)
	}
	stripeCustomerID := provisioned.Data

	if f := s.ensurePriceKnown(ctx, priceID); f != nil {
		return Fail[string](f.msg, f.kind)
	}

	price, err := s.prices.GetByPriceID(priceID)
	if err != nil {
		return Fail[string](fmt.Sprintf("error loading price: %v", err), ErrorOther)
	}

	var trialEnd *time.Time
	if price.TrialDays != nil && *price.TrialDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, int(*price.TrialDays))
		trialEnd = &t
	}

	snapshot, err := s.stripe.CreateSubscription(ctx, stripeCustomerID, priceID, trialEnd)
	if err != nil {
		return Fail[string](fmt.Sprintf("error creating subscription: %v", err), ErrorOther)
	}

	billing, err := s.billings.GetByCustomerID(customerID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[string](fmt.Sprintf("error loading billing record: %v", err), ErrorOther)
		}
		billing = &models.CustomerBilling{
			CustomerID:       customerID,
			StripeCustomerID: stripeCustomerID,
		}
	}
	applySnapshot(billing, snapshot)
	if billing.ID == "" {
		err = s.billings.Create(billing)
	} else {
		err = s.billings.Save(billing)
	}
	if err != nil {
		// The Stripe subscription exists; the replica stays stale until the
		// next webhook delivery corrects it.
		return Fail[string](fmt.Sprintf("error persisting billing record: %v", err), ErrorOther)
	}

	return Created(snapshot.ID, "subscription created successfully")
}

// SwapPlan moves an existing subscription's sole line item to a new price.
// Only the local price id changes here; status and period bounds are
// refreshed by the subsequent webhook.
func (s *Service) SwapPlan(ctx context.Context, subscriptionID, newPriceID string) Result[bool] {
	if strings.TrimSpace(subscriptionID) == "" || strings.TrimSpace(newPriceID) == "" {
		return Fail[bool]("subscription id and price id are required", ErrorValidation)
	}

	exists, err := s.billings.ExistsByStripeSubscriptionID(subscriptionID)
	if err != nil {
		return Fail[bool](fmt.Sprintf("error loading billing record: %v", err), ErrorOther)
	}
	if !exists {
		return Fail[bool](fmt.Sprintf("subscription with id %s not found", subscriptionID), ErrorNotFound)
	}

	if f := s.ensurePriceKnown(ctx, newPriceID); f != nil {
		return Fail[bool](f.msg, f.kind)
	}

	snapshot, err := s.stripe.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return Fail[bool](fmt.Sprintf("error fetching subscription: %v", err), ErrorOther)
	}
	if err := s.stripe.UpdateSubscriptionItemPrice(ctx, snapshot.ItemID, newPriceID); err != nil {
		return Fail[bool](fmt.Sprintf("error swapping plan: %v", err), ErrorOther)
	}

	billing, err := s.billings.GetByStripeSubscriptionID(subscriptionID)
	if err != nil {
		return Fail[bool](fmt.Sprintf("error loading billing record: %v", err), ErrorOther)
	}
	billing.PriceID = &newPriceID
	if err := s.billings.Save(billing); err != nil {
		return Fail[bool](fmt.Sprintf("error persisting billing record: %v", err), ErrorOther)
	}

	return Success(true, "plan swapped successfully")
}

// Pause asks Stripe to pause collection, keeping invoices as drafts. Only
// the pause start is recorded locally; the rest arrives via webhook.
func (s *Service) Pause(ctx context.Context, subscriptionID string) Result[bool] {
	if strings.TrimSpace(subscriptionID) == "" {
		return Fail[bool]("subscription id is required", ErrorValidation)
	}

	if err := s.stripe.PauseSubscription(ctx, subscriptionID); err != nil {
		return Fail[bool](fmt.Sprintf("error pausing subscription: %v", err), ErrorOther)
	}

	billing, err := s.billings.GetByStripeSubscriptionID(subscriptionID)
	if err == nil {
		now := time.Now().UTC()
		billing.PausedFrom = &now
		if err := s.billings.Save(billing); err != nil {
			return Fail[bool](fmt.Sprintf("error persisting billing record: %v", err), ErrorOther)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Fail[bool](fmt.Sprintf("error loading billing record: %v", err), ErrorOther)
	}

	return Success(true, "subscription paused successfully")
}

// Cancel ends a subscription. Immediate cancellation performs no local
// write (the webhook carries the final state); cancellation at period end
// reads back the refreshed period bound and persists it as CancelAt.
func (s *Service) Cancel(ctx context.Context, subscriptionID string, immediate bool) Result[bool] {
	if strings.TrimSpace(subscriptionID) == "" {
		return Fail[bool]("subscription id is required", ErrorValidation)
	}

	if immediate {
		if err := s.stripe.CancelSubscription(ctx, subscriptionID); err != nil {
			return Fail[bool](fmt.Sprintf("error canceling subscription: %v", err), ErrorOther)
		}
		return Success(true, "subscription canceled immediately")
	}

	if err := s.stripe.ScheduleCancelAtPeriodEnd(ctx, subscriptionID); err != nil {
		return Fail[bool](fmt.Sprintf("error canceling subscription: %v", err), ErrorOther)
	}

	billing, err := s.billings.GetByStripeSubscriptionID(subscriptionID)
	if err == nil {
		snapshot, err := s.stripe.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return Fail[bool](fmt.Sprintf("error fetching subscription: %v", err), ErrorOther)
		}
		billing.CancelAt = snapshot.CurrentPeriodEnd
		if err := s.billings.Save(billing); err != nil {
			return Fail[bool](fmt.Sprintf("error persisting billing record: %v", err), ErrorOther)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Fail[bool](fmt.Sprintf("error loading billing record: %v", err), ErrorOther)
	}

	return Success(true, "subscription will be canceled at period end")
}

// Reactivate clears a scheduled cancellation and resumes a paused
// subscription, locally and at Stripe.
func (s *Service) Reactivate(ctx context.Context, subscriptionID string) Result[bool] {
	if strings.TrimSpace(subscriptionID) == "" {
		return Fail[bool]("subscription id is required", ErrorValidation)
	}

	billing, err := s.billings.GetByStripeSubscriptionID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail[bool](fmt.Sprintf("subscription with id %s not found", subscriptionID), ErrorNotFound)
		}
		return Fail[bool](fmt.Sprintf("error loading billing record: %v", err), ErrorOther)
	}

	if err := s.stripe.ResumeSubscription(ctx, subscriptionID); err != nil {
		return Fail[bool](fmt.Sprintf("error reactivating subscription: %v", err), ErrorOther)
	}

	billing.CancelAt = nil
	billing.PausedFrom = nil
	billing.PausedUntil = nil
	if err := s.billings.Save(billing); err != nil {
		return Fail[bool](fmt.Sprintf("error persisting billing record: %v", err), ErrorOther)
	}

	return Success(true, "subscription reactivated successfully")
}

// UpdateDefaultPaymentMethod sets the subscription's default payment method
// at Stripe. Payment method identity is not mirrored locally.
func (s *Service) UpdateDefaultPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) Result[bool] {
	if strings.TrimSpace(subscriptionID) == "" || strings.TrimSpace(paymentMethodID) == "" {
		return Fail[bool]("subscription id and payment method id are required", ErrorValidation)
	}

	if err := s.stripe.SetDefaultPaymentMethod(ctx, subscriptionID, paymentMethodID); err != nil {
		return Fail[bool](fmt.Sprintf("error updating default payment method: %v", err), ErrorOther)
	}
	return Success(true, "default payment method updated successfully")
}

// CreateSetupIntent provisions the customer if needed and returns the
// client secret + ephemeral key for client-side card capture.
func (s *Service) CreateSetupIntent(ctx context.Context, customerID int) Result[*SetupIntentData] {
	provisioned := s.EnsureStripeCustomer(ctx, customerID)
	if !provisioned.IsSuccess {
		return Fail[*SetupIntentData](provisioned.Message, provisioned.Error)
	}

	data, err := s.stripe.CreateSetupIntent(ctx, provisioned.Data)
	if err != nil {
		return Fail[*SetupIntentData](fmt.Sprintf("error creating setup intent: %v", err), ErrorOther)
	}
	return Success(data, "setup intent created successfully")
}

// ListActivePrices returns the locally cached active price list.
func (s *Service) ListActivePrices(ctx context.Context) Result[[]models.PriceCatalog] {
	_ = ctx
	if s.priceCache != nil {
		if cached, ok := s.priceCache.Get(); ok {
			return Success(cached, "successfully retrieved active prices")
		}
	}

	prices, err := s.prices.GetActive()
	if err != nil {
		return Fail[[]models.PriceCatalog](fmt.Sprintf("error retrieving active prices: %v", err), ErrorOther)
	}
	if s.priceCache != nil {
		s.priceCache.Set(prices)
	}
	return Success(prices, "successfully retrieved active prices")
}

type failure struct {
	kind ErrorKind
	msg  string
}

// ensurePriceKnown checks the local catalog for the price and falls back to
// one synchronous resync before giving up.
func (s *Service) ensurePriceKnown(ctx context.Context, priceID string) *failure {
	exists, err := s.prices.ExistsByPriceID(priceID)
	if err != nil {
		return &failure{kind: ErrorOther, msg: fmt.Sprintf("error checking price: %v", err)}
	}
	if exists {
		return nil
	}

	syncResult := s.SyncPrices(ctx)
	if !syncResult.IsSuccess {
		return &failure{kind: ErrorOther, msg: "failed to sync prices from stripe, please try again later"}
	}

	exists, err = s.prices.ExistsByPriceID(priceID)
	if err != nil {
		return &failure{kind: ErrorOther, msg: fmt.Sprintf("error checking price: %v", err)}
	}
	if !exists {
		return &failure{kind: ErrorNotFound, msg: fmt.Sprintf("price %s not found in the catalog", priceID)}
	}
	return nil
}

// applySnapshot overwrites the replica's subscription fields from provider
// truth. LastEventAt is deliberately left alone: the marker orders webhook
// deliveries against each other, and a direct-call write must not make the
// change's own webhook look stale.
func applySnapshot(billing *models.CustomerBilling, snapshot *SubscriptionSnapshot) {
	subID := snapshot.ID
	billing.StripeSubscriptionID = &subID
	if snapshot.PriceID != "" {
		priceID := snapshot.PriceID
		billing.PriceID = &priceID
	}
	status := snapshot.Status
	billing.Status = &status
	billing.CurrentPeriodStart = snapshot.CurrentPeriodStart
	billing.CurrentPeriodEnd = snapshot.CurrentPeriodEnd
	billing.CancelAt = snapshot.CancelAt
}
