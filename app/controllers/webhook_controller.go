package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hookd/subsync/app/models"
	"github.com/hookd/subsync/internal/pkg/billing"
	"github.com/hookd/subsync/internal/pkg/clients"
	"github.com/hookd/subsync/internal/pkg/database"
	"github.com/hookd/subsync/internal/pkg/tracking"
)

// WebhookController handles inbound Stripe webhooks. Signature verification
// is the authentication mechanism for this endpoint.
type WebhookController struct {
	cfg billing.Config
}

// NewWebhookController creates the webhook controller with config read at
// process start.
func NewWebhookController(cfg billing.Config) *WebhookController {
	return &WebhookController{cfg: cfg}
}

// HandleStripeWebhook verifies, records and dispatches one webhook
// delivery. Stripe redelivers on any non-2xx response, so the response is
// either a full acknowledgment or one uniform failure payload; the internal
// cause is never surfaced to the provider.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	// The raw bytes must reach the verifier untouched; fiber reuses its
	// buffers between requests, so take a copy.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	event, err := billing.VerifyWebhook(rawBody, signature, wc.cfg.WebhookSecret)
	if err != nil {
		log.Printf("stripe webhook rejected: %v", err)
		return webhookFailure(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	svc := billing.NewServiceFromDB(database.GetDB())
	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		log.Printf("stripe webhook persist failed: %v", err)
		return webhookFailure(c)
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		// Already handled successfully; acknowledge without re-dispatching.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	dispatcher := billing.NewDispatcher(
		wc.cfg,
		billing.NewStripeClient(wc.cfg),
		clients.NewServiceFromDB(database.GetDB()),
		tracking.NewClientFromEnv(),
	)

	dispatchErr := dispatcher.Dispatch(ctx, event)
	if err := svc.MarkWebhookProcessed(ctx, stored.ID, dispatchErr); err != nil {
		log.Printf("failed to mark webhook event %d processed: %v", stored.ID, err)
	}
	if dispatchErr != nil {
		log.Printf("stripe webhook %s (%s) failed: %v", event.ID, event.Type, dispatchErr)
		return webhookFailure(c)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// webhookFailure is the single failure shape returned to the provider.
func webhookFailure(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "webhook_failed"})
}
