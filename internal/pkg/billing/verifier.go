package billing

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrInvalidSignature covers every verification failure: missing body or
// header, wrong secret, tampered payload, or a timestamp outside the replay
// tolerance. The caller must not leak the specific cause to the provider.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifyWebhook checks that the raw payload was signed by Stripe with the
// given endpoint secret and returns the parsed event. The payload must be
// the untouched request body; any re-serialization before this point breaks
// the signature.
func VerifyWebhook(rawBody []byte, sigHeader, secret string) (*stripe.Event, error) {
	if len(rawBody) == 0 || sigHeader == "" {
		return nil, fmt.Errorf("%w: missing raw body or signature", ErrInvalidSignature)
	}

	// Accounts pinned to older API versions still deliver valid events;
	// the signature, not the version, is the authentication here.
	event, err := webhook.ConstructEventWithOptions(rawBody, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &event, nil
}
