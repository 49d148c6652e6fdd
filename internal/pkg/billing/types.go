package billing

import "encoding/json"

// SubscriptionRecord is the subscription slice of a client billing record.
type SubscriptionRecord struct {
	ID      string  `json:"id"`
	EndDate int64   `json:"endDate"`
	Valid   bool    `json:"valid"`
	Key     PlanKey `json:"key"`
}

// BillingRecord is the canonical billing state submitted to the client
// record service, keyed by provider customer id. Updates are full
// overwrites so that webhook redeliveries converge on the same state.
type BillingRecord struct {
	Provider     string             `json:"provider"`
	CustomerID   string             `json:"customerId"`
	Subscription SubscriptionRecord `json:"subscription"`
}

// ProviderSubscription is the provider-agnostic view of a Stripe
// subscription used by the dispatcher and the provider boundary.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd int64
}

// subscriptionObject is the wire shape of a subscription inside a webhook
// event. Parsed from the raw event payload rather than the typed SDK struct
// because the legacy top-level plan field is what carries the price id here.
type subscriptionObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Plan             struct {
		ID string `json:"id"`
	} `json:"plan"`
}

// invoiceObject is the wire shape of an invoice inside a webhook event.
type invoiceObject struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

func parseSubscriptionObject(raw json.RawMessage) (*subscriptionObject, error) {
	var sub subscriptionObject
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func parseInvoiceObject(raw json.RawMessage) (*invoiceObject, error) {
	var inv invoiceObject
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}
