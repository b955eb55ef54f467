package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/haulbound/billing/internal/pkg/billing"
	"github.com/haulbound/billing/internal/pkg/database"
)

const serviceCallTimeout = 30 * time.Second

// billingService builds the service per request from the global DB handle.
// Overridable in tests.
var billingService = func() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB())
}

type provisionRequest struct {
	CustomerID int `json:"customer_id" validate:"required,gt=0"`
}

type subscribeRequest struct {
	CustomerID int    `json:"customer_id" validate:"required,gt=0"`
	PriceID    string `json:"price_id" validate:"required"`
}

type swapPlanRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type cancelRequest struct {
	Immediate bool `json:"immediate"`
}

type paymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

// HandleProvisionCustomer ensures the customer has a Stripe customer record.
func HandleProvisionCustomer(c *fiber.Ctx) error {
	var req provisionRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().EnsureStripeCustomer(ctx, req.CustomerID)
	return respondResult(c, result)
}

// HandleSubscribe creates a subscription for a customer on a price.
func HandleSubscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().Subscribe(ctx, req.CustomerID, req.PriceID)
	return respondResult(c, result)
}

// HandleSwapPlan moves a subscription to a different price.
func HandleSwapPlan(c *fiber.Ctx) error {
	var req swapPlanRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().SwapPlan(ctx, c.Params("subscriptionID"), req.PriceID)
	return respondResult(c, result)
}

// HandlePauseSubscription pauses invoice collection on a subscription.
func HandlePauseSubscription(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().Pause(ctx, c.Params("subscriptionID"))
	return respondResult(c, result)
}

// HandleCancelSubscription cancels a subscription, immediately or at period end.
func HandleCancelSubscription(c *fiber.Ctx) error {
	var req cancelRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &req); !ok {
			return err
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().Cancel(ctx, c.Params("subscriptionID"), req.Immediate)
	return respondResult(c, result)
}

// HandleReactivateSubscription clears a pending cancellation or pause.
func HandleReactivateSubscription(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().Reactivate(ctx, c.Params("subscriptionID"))
	return respondResult(c, result)
}

// HandleUpdatePaymentMethod sets the subscription's default payment method.
func HandleUpdatePaymentMethod(c *fiber.Ctx) error {
	var req paymentMethodRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().UpdateDefaultPaymentMethod(ctx, c.Params("subscriptionID"), req.PaymentMethodID)
	return respondResult(c, result)
}

// HandleCreateSetupIntent returns a client secret + ephemeral key for card capture.
func HandleCreateSetupIntent(c *fiber.Ctx) error {
	var req provisionRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().CreateSetupIntent(ctx, req.CustomerID)
	return respondResult(c, result)
}

// HandleListPrices returns the active price catalog.
func HandleListPrices(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().ListActivePrices(ctx)
	return respondResult(c, result)
}

// HandleSyncPrices triggers a catalog resync. Protected by the operator API key.
func HandleSyncPrices(c *fiber.Ctx) error {
	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().SyncPrices(ctx)
	return respondResult(c, result)
}

// HandleStripeWebhook receives webhook deliveries. The raw body is passed
// through untouched because signature verification covers the exact bytes.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	ctx, cancel := requestContext()
	defer cancel()

	result := billingService().HandleWebhook(ctx, rawBody, signature)
	return respondResult(c, result)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), serviceCallTimeout)
}
