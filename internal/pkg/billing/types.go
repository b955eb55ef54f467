package billing

import "time"

// SubscriptionSnapshot is the provider-truth view of a subscription returned
// by the Stripe client facade.
type SubscriptionSnapshot struct {
	ID                 string
	CustomerID         string
	ItemID             string
	PriceID            string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAt           *time.Time
	CancelAtPeriodEnd  bool
}

// PriceSnapshot is one active price as reported by Stripe, with the parent
// product name expanded.
type PriceSnapshot struct {
	ID          string
	ProductName string
	UnitAmount  int64
	Currency    string
	Interval    string
	TrialDays   *int64
	Active      bool
}

// CustomerParams carries the master-record fields sent when creating the
// Stripe customer.
type CustomerParams struct {
	CustomerID int
	Name       string
	Email      string
	Phone      string
	Address1   string
	Address2   string
	City       string
	State      string
	ZipCode    string
	Country    string
}

// SetupIntentData is returned to clients for card capture.
type SetupIntentData struct {
	ClientSecret string `json:"client_secret"`
	EphemeralKey string `json:"ephemeral_key"`
}

// SyncSummary reports one price sync cycle.
type SyncSummary struct {
	Updated int `json:"updated"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
}
