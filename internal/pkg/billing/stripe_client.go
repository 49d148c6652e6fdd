package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// SubscriptionAPI is the slice of the Stripe API the dispatcher needs:
// reading a subscription's authoritative state and creating the replacement
// free-tier subscription after a deletion.
type SubscriptionAPI interface {
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
	CreateFreeSubscription(ctx context.Context, customerID string) (*ProviderSubscription, error)
}

type stripeClient struct {
	api         *client.API
	freePriceID string
}

// NewStripeClient builds the provider boundary from the billing config.
func NewStripeClient(cfg Config) SubscriptionAPI {
	return &stripeClient{
		api:         client.New(cfg.APIKey, nil),
		freePriceID: cfg.Prices.Free,
	}
}

func (c *stripeClient) RetrieveSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscription id is required")
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription %s: %w", subscriptionID, err)
	}
	return providerSubscriptionFromStripe(sub), nil
}

func (c *stripeClient) CreateFreeSubscription(ctx context.Context, customerID string) (*ProviderSubscription, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id is required")
	}
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(c.freePriceID)},
		},
	}
	params.Context = ctx

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create free subscription for %s: %w", customerID, err)
	}
	return providerSubscriptionFromStripe(sub), nil
}

func providerSubscriptionFromStripe(sub *stripe.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{
		ID:               sub.ID,
		Status:           string(sub.Status),
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	return out
}
