package billing

import (
	"context"
	"strconv"
	"time"

	"github.com/haulbound/billing/internal/pkg/env"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/ephemeralkey"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/setupintent"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/subscriptionitem"
)

// Stripe pins ephemeral keys to an API version; mobile SDKs expect this one.
const ephemeralKeyAPIVersion = "2022-11-15"

// StripeClient is the capability surface the billing service needs from
// Stripe. The production implementation wraps stripe-go; tests substitute a
// fake.
type StripeClient interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateSubscription(ctx context.Context, stripeCustomerID, priceID string, trialEnd *time.Time) (*SubscriptionSnapshot, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	UpdateSubscriptionItemPrice(ctx context.Context, itemID, newPriceID string) error
	PauseSubscription(ctx context.Context, subscriptionID string) error
	CancelSubscription(ctx context.Context, subscriptionID string) error
	ScheduleCancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	ResumeSubscription(ctx context.Context, subscriptionID string) error
	SetDefaultPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error
	ListActivePrices(ctx context.Context) ([]PriceSnapshot, error)
	CreateSetupIntent(ctx context.Context, stripeCustomerID string) (*SetupIntentData, error)
}

type stripeClient struct{}

// NewStripeClientFromEnv configures the global stripe-go key from the
// environment and returns the production client.
func NewStripeClientFromEnv() StripeClient {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
	return &stripeClient{}
}

func (c *stripeClient) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(p.Name),
		Email: stripe.String(p.Email),
		Phone: stripe.String(p.Phone),
		Address: &stripe.AddressParams{
			Line1:      stripe.String(p.Address1),
			Line2:      stripe.String(p.Address2),
			City:       stripe.String(p.City),
			State:      stripe.String(p.State),
			PostalCode: stripe.String(p.ZipCode),
			Country:    stripe.String(p.Country),
		},
	}
	params.Context = ctx
	params.AddMetadata("CustomerId", strconv.Itoa(p.CustomerID))

	cus, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (c *stripeClient) CreateSubscription(ctx context.Context, stripeCustomerID, priceID string, trialEnd *time.Time) (*SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(stripeCustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		// default_incomplete defers the first payment so the client can
		// confirm it with the setup-intent flow.
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	if trialEnd != nil {
		params.TrialEnd = stripe.Int64(trialEnd.Unix())
	}

	sub, err := subscription.New(params)
	if err != nil {
		return nil, err
	}
	return snapshotFromSubscription(sub), nil
}

func (c *stripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, err
	}
	return snapshotFromSubscription(sub), nil
}

func (c *stripeClient) UpdateSubscriptionItemPrice(ctx context.Context, itemID, newPriceID string) error {
	params := &stripe.SubscriptionItemParams{Price: stripe.String(newPriceID)}
	params.Context = ctx
	_, err := subscriptionitem.Update(itemID, params)
	return err
}

func (c *stripeClient) PauseSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		PauseCollection: &stripe.SubscriptionPauseCollectionParams{
			// keep_as_draft holds invoices instead of voiding them, so
			// resuming keeps the billing history intact.
			Behavior: stripe.String("keep_as_draft"),
		},
	}
	params.Context = ctx
	_, err := subscription.Update(subscriptionID, params)
	return err
}

func (c *stripeClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := subscription.Cancel(subscriptionID, params)
	return err
}

func (c *stripeClient) ScheduleCancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	_, err := subscription.Update(subscriptionID, params)
	return err
}

func (c *stripeClient) ResumeSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(false)}
	params.Context = ctx
	// Unsetting pause_collection resumes a paused subscription; stripe-go
	// only serializes the empty value through AddExtra.
	params.AddExtra("pause_collection", "")
	_, err := subscription.Update(subscriptionID, params)
	return err
}

func (c *stripeClient) SetDefaultPaymentMethod(ctx context.Context, subscriptionID, paymentMethodID string) error {
	params := &stripe.SubscriptionParams{DefaultPaymentMethod: stripe.String(paymentMethodID)}
	params.Context = ctx
	_, err := subscription.Update(subscriptionID, params)
	return err
}

func (c *stripeClient) ListActivePrices(ctx context.Context) ([]PriceSnapshot, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.AddExpand("data.product")

	var snapshots []PriceSnapshot
	iter := price.List(params)
	for iter.Next() {
		p := iter.Price()
		snapshot := PriceSnapshot{
			ID:          p.ID,
			ProductName: "Unknown Plan",
			UnitAmount:  p.UnitAmount,
			Currency:    string(p.Currency),
			Interval:    "unknown",
			Active:      p.Active,
		}
		if p.Product != nil && p.Product.Name != "" {
			snapshot.ProductName = p.Product.Name
		}
		if p.Recurring != nil {
			snapshot.Interval = string(p.Recurring.Interval)
			if p.Recurring.TrialPeriodDays > 0 {
				days := p.Recurring.TrialPeriodDays
				snapshot.TrialDays = &days
			}
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (c *stripeClient) CreateSetupIntent(ctx context.Context, stripeCustomerID string) (*SetupIntentData, error) {
	siParams := &stripe.SetupIntentParams{
		Customer:           stripe.String(stripeCustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	siParams.Context = ctx
	si, err := setupintent.New(siParams)
	if err != nil {
		return nil, err
	}

	ekParams := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(stripeCustomerID),
		StripeVersion: stripe.String(ephemeralKeyAPIVersion),
	}
	ekParams.Context = ctx
	ek, err := ephemeralkey.New(ekParams)
	if err != nil {
		return nil, err
	}

	return &SetupIntentData{ClientSecret: si.ClientSecret, EphemeralKey: ek.Secret}, nil
}

func snapshotFromSubscription(sub *stripe.Subscription) *SubscriptionSnapshot {
	snapshot := &SubscriptionSnapshot{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		snapshot.CustomerID = sub.Customer.ID
	}
	if sub.CancelAt > 0 {
		t := time.Unix(sub.CancelAt, 0).UTC()
		snapshot.CancelAt = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		snapshot.ItemID = item.ID
		if item.Price != nil {
			snapshot.PriceID = item.Price.ID
		}
		if item.CurrentPeriodStart > 0 {
			t := time.Unix(item.CurrentPeriodStart, 0).UTC()
			snapshot.CurrentPeriodStart = &t
		}
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			snapshot.CurrentPeriodEnd = &t
		}
	}
	return snapshot
}
