package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hookd/subsync/app/controllers"
	"github.com/hookd/subsync/internal/pkg/billing"
)

type HttpRouter struct {
	webhooks *controllers.WebhookController
}

func NewHttpRouter(cfg billing.Config) *HttpRouter {
	return &HttpRouter{webhooks: controllers.NewWebhookController(cfg)}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/up", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Billing provider webhooks (signature-verified in controller)
	app.Post("/webhooks/stripe", h.webhooks.HandleStripeWebhook)
}
