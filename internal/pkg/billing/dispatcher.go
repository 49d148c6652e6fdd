package billing

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v76"

	"github.com/hookd/subsync/app/models"
	"github.com/hookd/subsync/internal/pkg/tracking"
)

// ClientService is the slice of the client record service consumed by the
// dispatcher. Every mutation is a full overwrite keyed by customer id, so
// redelivering the same event converges on the same stored state.
type ClientService interface {
	UpdateBillingByCustomerID(ctx context.Context, customerID string, record BillingRecord) (*models.Client, error)
	UpdateOnInvoicePaymentFailed(ctx context.Context, customerID string) error
	UpdateOnInvoicePaymentSuccess(ctx context.Context, customerID string, endDate int64) (*models.Client, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.Client, error)
}

// Tracker emits analytics events. Failures are best-effort telemetry and
// never change the webhook outcome.
type Tracker interface {
	Track(ctx context.Context, event tracking.Event) error
}

// Dispatcher classifies verified billing events and applies the per-type
// side effects in order: billing record mutation first, tracking after.
type Dispatcher struct {
	cfg      Config
	provider SubscriptionAPI
	clients  ClientService
	tracker  Tracker
}

// NewDispatcher wires the dispatcher from its collaborators.
func NewDispatcher(cfg Config, provider SubscriptionAPI, clients ClientService, tracker Tracker) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		provider: provider,
		clients:  clients,
		tracker:  tracker,
	}
}

// Dispatch applies the side effects for one verified event. Event types
// outside the handled vocabulary are acknowledged as no-ops so the provider
// does not keep redelivering them.
func (d *Dispatcher) Dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "customer.subscription.updated":
		return d.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return d.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_failed":
		return d.handleInvoicePaymentFailed(ctx, event)
	case "invoice.payment_succeeded":
		return d.handleInvoicePaymentSucceeded(ctx, event)
	default:
		log.Printf("ignoring unhandled stripe event type %s", event.Type)
		return nil
	}
}

func (d *Dispatcher) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	sub, err := parseSubscriptionObject(event.Data.Raw)
	if err != nil {
		return fmt.Errorf("parse subscription payload: %w", err)
	}

	record := BillingRecord{
		Provider:   models.BillingProviderStripe,
		CustomerID: sub.Customer,
		Subscription: SubscriptionRecord{
			ID:      sub.ID,
			EndDate: sub.CurrentPeriodEnd,
			Valid:   true,
			Key:     ResolvePlanKey(sub.Plan.ID, d.cfg.Prices),
		},
	}

	updated, err := d.clients.UpdateBillingByCustomerID(ctx, sub.Customer, record)
	if err != nil {
		return fmt.Errorf("update billing for %s: %w", sub.Customer, err)
	}

	d.track(ctx, "Updated Subscription", event.Data.Raw, authorID(updated))
	return nil
}

func (d *Dispatcher) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	deleted, err := parseSubscriptionObject(event.Data.Raw)
	if err != nil {
		return fmt.Errorf("parse subscription payload: %w", err)
	}

	// A deletion is a downgrade, not a goodbye: replace the subscription
	// with a free-tier one and persist that as the current record.
	created, err := d.provider.CreateFreeSubscription(ctx, deleted.Customer)
	if err != nil {
		return fmt.Errorf("create replacement free subscription for %s: %w", deleted.Customer, err)
	}

	customerID := created.CustomerID
	if customerID == "" {
		customerID = deleted.Customer
	}

	record := BillingRecord{
		Provider:   models.BillingProviderStripe,
		CustomerID: customerID,
		Subscription: SubscriptionRecord{
			ID:      created.ID,
			EndDate: created.CurrentPeriodEnd,
			Valid:   true,
			Key:     PlanFree,
		},
	}

	client, err := d.clients.UpdateBillingByCustomerID(ctx, customerID, record)
	if err != nil {
		return fmt.Errorf("update billing for %s: %w", customerID, err)
	}

	d.track(ctx, "Deleted Subscription", event.Data.Raw, authorID(client))
	d.track(ctx, "Created Subscription", created, authorID(client))
	return nil
}

func (d *Dispatcher) handleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) error {
	inv, err := parseInvoiceObject(event.Data.Raw)
	if err != nil {
		return fmt.Errorf("parse invoice payload: %w", err)
	}

	current, err := d.provider.RetrieveSubscription(ctx, inv.Subscription)
	if err != nil {
		return fmt.Errorf("retrieve subscription %s: %w", inv.Subscription, err)
	}

	// A failed invoice inside a grace period leaves the subscription
	// active; only a non-active status invalidates the client.
	if current.Status != "active" {
		if err := d.clients.UpdateOnInvoicePaymentFailed(ctx, inv.Customer); err != nil {
			return fmt.Errorf("invalidate client %s: %w", inv.Customer, err)
		}
	}

	userID := ""
	if client, err := d.clients.GetByCustomerID(ctx, inv.Customer); err != nil {
		log.Printf("client lookup for %s failed, tracking without user id: %v", inv.Customer, err)
	} else {
		userID = authorID(client)
	}

	d.track(ctx, "Failed Invoice Payment", event.Data.Raw, userID)
	return nil
}

func (d *Dispatcher) handleInvoicePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	inv, err := parseInvoiceObject(event.Data.Raw)
	if err != nil {
		return fmt.Errorf("parse invoice payload: %w", err)
	}

	sub, err := d.provider.RetrieveSubscription(ctx, inv.Subscription)
	if err != nil {
		return fmt.Errorf("retrieve subscription %s: %w", inv.Subscription, err)
	}

	client, err := d.clients.UpdateOnInvoicePaymentSuccess(ctx, inv.Customer, sub.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("extend billing period for %s: %w", inv.Customer, err)
	}

	d.track(ctx, "Successful Invoice Payment", event.Data.Raw, authorID(client))
	return nil
}

// track emits a tracking event and swallows any failure.
func (d *Dispatcher) track(ctx context.Context, name string, properties any, userID string) {
	if err := d.tracker.Track(ctx, tracking.Event{
		Name:       name,
		Properties: properties,
		UserID:     userID,
	}); err != nil {
		log.Printf("tracking event %q failed: %v", name, err)
	}
}

func authorID(client *models.Client) string {
	if client == nil {
		return ""
	}
	return client.AuthorID
}
