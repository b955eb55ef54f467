package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/haulbound/billing/app/models"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

// webhookSubscription is the slice of the subscription event payload the
// replica needs. Full deserialization into stripe.Subscription is avoided so
// an API version drift in unrelated fields cannot break processing.
type webhookSubscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAt          int64  `json:"cancel_at"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	PauseCollection   *struct {
		Behavior  string `json:"behavior"`
		ResumesAt int64  `json:"resumes_at"`
	} `json:"pause_collection"`
	Items struct {
		Data []struct {
			ID    string `json:"id"`
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// HandleWebhook verifies, records and applies one Stripe webhook delivery.
// Apply failures are logged and recorded on the event row but still return
// success: Stripe retrying a delivery we already stored would only duplicate
// work, and the periodic resync repairs any missed state.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) Result[bool] {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Fail[bool](fmt.Sprintf("webhook signature verification failed: %v", err), ErrorValidation)
	}

	created, stored, err := s.events.CreateIfNotExists(&models.BillingWebhookEvent{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		PayloadJSON:   string(payload),
	})
	if err != nil {
		// Returning failure makes Stripe retry the delivery later.
		return Fail[bool](fmt.Sprintf("error recording webhook event: %v", err), ErrorOther)
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		return Success(true, "event already processed")
	}

	applyErr := s.applyEvent(ctx, event.ID, string(event.Type), time.Unix(event.Created, 0).UTC(), event.Data.Raw)

	errMsg := ""
	if applyErr != nil {
		errMsg = applyErr.Error()
		log.Errorf("webhook %s (%s) apply failed: %v", event.ID, event.Type, applyErr)
	}
	if err := s.events.MarkProcessed(stored.ID, errMsg); err != nil {
		log.Errorf("webhook %s: error marking event processed: %v", event.ID, err)
	}

	return Success(true, "event received")
}

func (s *Service) applyEvent(ctx context.Context, eventID, eventType string, eventTime time.Time, raw json.RawMessage) error {
	switch {
	case eventType == "customer.subscription.deleted":
		return s.applySubscriptionDeleted(raw, eventTime)
	case strings.HasPrefix(eventType, "customer.subscription."):
		return s.applySubscriptionEvent(raw, eventTime)
	case strings.HasPrefix(eventType, "price."):
		// Any price change invalidates the catalog; a full resync is cheap
		// and keeps the diff logic in one place.
		if result := s.SyncPrices(ctx); !result.IsSuccess {
			return fmt.Errorf("price sync triggered by %s failed: %s", eventID, result.Message)
		}
		return nil
	default:
		log.Debugf("webhook %s: ignoring event type %s", eventID, eventType)
		return nil
	}
}

// applySubscriptionEvent mirrors a subscription created/updated payload into
// the local replica. Deliveries older than the replica's event marker are
// dropped so out-of-order retries cannot roll state back.
func (s *Service) applySubscriptionEvent(raw json.RawMessage, eventTime time.Time) error {
	var sub webhookSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("error parsing subscription payload: %w", err)
	}
	if sub.ID == "" {
		return errors.New("subscription payload missing id")
	}

	billing, err := s.lookupBilling(sub)
	if err != nil {
		return err
	}
	if billing == nil {
		// Subscription for a customer this system never provisioned, e.g.
		// one created directly in the Stripe dashboard. Nothing to update.
		log.Debugf("webhook for unknown subscription %s dropped", sub.ID)
		return nil
	}

	if billing.LastEventAt != nil && eventTime.Before(*billing.LastEventAt) {
		log.Debugf("stale webhook for subscription %s dropped (event %s before marker %s)",
			sub.ID, eventTime.Format(time.RFC3339), billing.LastEventAt.Format(time.RFC3339))
		return nil
	}

	subID := sub.ID
	billing.StripeSubscriptionID = &subID
	status := sub.Status
	billing.Status = &status

	if len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price.ID != "" {
			priceID := item.Price.ID
			billing.PriceID = &priceID
		}
		billing.CurrentPeriodStart = unixPtr(item.CurrentPeriodStart)
		billing.CurrentPeriodEnd = unixPtr(item.CurrentPeriodEnd)
	}

	billing.CancelAt = unixPtr(sub.CancelAt)
	if sub.PauseCollection != nil {
		if billing.PausedFrom == nil {
			billing.PausedFrom = &eventTime
		}
		billing.PausedUntil = unixPtr(sub.PauseCollection.ResumesAt)
	} else {
		billing.PausedFrom = nil
		billing.PausedUntil = nil
	}

	billing.LastEventAt = &eventTime
	if err := s.billings.Save(billing); err != nil {
		return fmt.Errorf("error persisting billing record: %w", err)
	}
	return nil
}

// applySubscriptionDeleted marks the replica canceled as of the event time.
func (s *Service) applySubscriptionDeleted(raw json.RawMessage, eventTime time.Time) error {
	var sub webhookSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return fmt.Errorf("error parsing subscription payload: %w", err)
	}
	if sub.ID == "" {
		return errors.New("subscription payload missing id")
	}

	billing, err := s.lookupBilling(sub)
	if err != nil {
		return err
	}
	if billing == nil {
		log.Debugf("webhook for unknown subscription %s dropped", sub.ID)
		return nil
	}

	if billing.LastEventAt != nil && eventTime.Before(*billing.LastEventAt) {
		return nil
	}

	status := models.SubscriptionStatusCanceled
	billing.Status = &status
	billing.CancelAt = &eventTime
	billing.LastEventAt = &eventTime
	if err := s.billings.Save(billing); err != nil {
		return fmt.Errorf("error persisting billing record: %w", err)
	}
	return nil
}

// lookupBilling resolves the replica row by subscription id first and falls
// back to the Stripe customer id for the very first event of a subscription.
func (s *Service) lookupBilling(sub webhookSubscription) (*models.CustomerBilling, error) {
	billing, err := s.billings.GetByStripeSubscriptionID(sub.ID)
	if err == nil {
		return billing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error loading billing record: %w", err)
	}
	if sub.Customer == "" {
		return nil, nil
	}
	billing, err = s.billings.GetByStripeCustomerID(sub.Customer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading billing record: %w", err)
	}
	return billing, nil
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
