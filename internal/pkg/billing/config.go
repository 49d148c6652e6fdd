package billing

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hookd/subsync/internal/pkg/env"
)

// PriceIDs holds the configured Stripe price identifiers for the three
// sellable tiers. Resolution order is growth, cheap, free.
type PriceIDs struct {
	Growth string `validate:"required"`
	Cheap  string `validate:"required"`
	Free   string `validate:"required"`
}

// Config carries the Stripe credentials and price identifiers. It is read
// once at process start and passed into the verifier/dispatcher explicitly
// instead of being consulted per request.
type Config struct {
	APIKey        string `validate:"required"`
	WebhookSecret string `validate:"required"`
	Prices        PriceIDs
}

// ConfigFromEnv builds the billing configuration from environment variables.
func ConfigFromEnv() Config {
	return Config{
		APIKey:        strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		Prices: PriceIDs{
			Growth: strings.TrimSpace(env.GetEnv("STRIPE_GROWTH_PLAN_PRICE_ID", "")),
			Cheap:  strings.TrimSpace(env.GetEnv("STRIPE_RIDICULOUSLY_CHEAP_PLAN_PRICE_ID", "")),
			Free:   strings.TrimSpace(env.GetEnv("STRIPE_FREE_PLAN_PRICE_ID", "")),
		},
	}
}

// Validate checks that all required keys are present.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("billing config is incomplete: %w", err)
	}
	if err := v.Struct(c.Prices); err != nil {
		return fmt.Errorf("billing price ids are incomplete: %w", err)
	}
	return nil
}
