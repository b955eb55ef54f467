package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/haulbound/billing/app/controllers"
	"github.com/haulbound/billing/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	b := v1.Group("/billing")

	b.Post("/customers/provision", controllers.HandleProvisionCustomer)
	b.Post("/setup-intent", controllers.HandleCreateSetupIntent)

	b.Post("/subscriptions", controllers.HandleSubscribe)
	b.Put("/subscriptions/:subscriptionID/plan", controllers.HandleSwapPlan)
	b.Post("/subscriptions/:subscriptionID/pause", controllers.HandlePauseSubscription)
	b.Post("/subscriptions/:subscriptionID/cancel", controllers.HandleCancelSubscription)
	b.Post("/subscriptions/:subscriptionID/reactivate", controllers.HandleReactivateSubscription)
	b.Put("/subscriptions/:subscriptionID/payment-method", controllers.HandleUpdatePaymentMethod)

	b.Get("/prices", controllers.HandleListPrices)
	b.Post("/prices/sync", middleware.OperatorKeyMiddleware(), controllers.HandleSyncPrices)

	// No limiter on the webhook path; Stripe bursts retries and rate
	// limiting them only delays convergence.
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
