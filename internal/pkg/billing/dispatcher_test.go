package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/hookd/subsync/app/models"
	"github.com/hookd/subsync/internal/pkg/tracking"
)

var testConfig = Config{
	APIKey:        "sk_test",
	WebhookSecret: "whsec_test",
	Prices: PriceIDs{
		Growth: "price_growth",
		Cheap:  "price_cheap",
		Free:   "price_free",
	},
}

type fakeProvider struct {
	retrieved    *ProviderSubscription
	retrieveErr  error
	retrievedIDs []string

	created       *ProviderSubscription
	createErr     error
	createdForIDs []string
}

func (f *fakeProvider) RetrieveSubscription(_ context.Context, subscriptionID string) (*ProviderSubscription, error) {
	f.retrievedIDs = append(f.retrievedIDs, subscriptionID)
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.retrieved, nil
}

func (f *fakeProvider) CreateFreeSubscription(_ context.Context, customerID string) (*ProviderSubscription, error) {
	f.createdForIDs = append(f.createdForIDs, customerID)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

type clientCall struct {
	name       string
	customerID string
	record     BillingRecord
	endDate    int64
}

type fakeClients struct {
	calls []clientCall

	client    *models.Client
	updateErr error
	failErr   error
	extendErr error
	getErr    error
}

func (f *fakeClients) UpdateBillingByCustomerID(_ context.Context, customerID string, record BillingRecord) (*models.Client, error) {
	f.calls = append(f.calls, clientCall{name: "updateBilling", customerID: customerID, record: record})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.client, nil
}

func (f *fakeClients) UpdateOnInvoicePaymentFailed(_ context.Context, customerID string) error {
	f.calls = append(f.calls, clientCall{name: "paymentFailed", customerID: customerID})
	return f.failErr
}

func (f *fakeClients) UpdateOnInvoicePaymentSuccess(_ context.Context, customerID string, endDate int64) (*models.Client, error) {
	f.calls = append(f.calls, clientCall{name: "paymentSuccess", customerID: customerID, endDate: endDate})
	if f.extendErr != nil {
		return nil, f.extendErr
	}
	return f.client, nil
}

func (f *fakeClients) GetByCustomerID(_ context.Context, customerID string) (*models.Client, error) {
	f.calls = append(f.calls, clientCall{name: "get", customerID: customerID})
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.client, nil
}

func (f *fakeClients) callNames() []string {
	names := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		names = append(names, call.name)
	}
	return names
}

type fakeTracker struct {
	events []tracking.Event
	err    error
}

func (f *fakeTracker) Track(_ context.Context, event tracking.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeTracker) names() []string {
	names := make([]string, 0, len(f.events))
	for _, event := range f.events {
		names = append(names, event.Name)
	}
	return names
}

func stripeEvent(eventType string, object string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

func newTestDispatcher() (*Dispatcher, *fakeProvider, *fakeClients, *fakeTracker) {
	provider := &fakeProvider{}
	clients := &fakeClients{client: &models.Client{CustomerID: "cus_1", AuthorID: "author_1"}}
	tracker := &fakeTracker{}
	return NewDispatcher(testConfig, provider, clients, tracker), provider, clients, tracker
}

func TestDispatchSubscriptionUpdated(t *testing.T) {
	d, _, clients, tracker := newTestDispatcher()

	event := stripeEvent("customer.subscription.updated",
		`{"customer":"cus_1","id":"sub_1","current_period_end":1700000000,"plan":{"id":"price_growth"}}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	require.Len(t, clients.calls, 1)
	call := clients.calls[0]
	assert.Equal(t, "updateBilling", call.name)
	assert.Equal(t, "cus_1", call.customerID)
	assert.Equal(t, BillingRecord{
		Provider:   "stripe",
		CustomerID: "cus_1",
		Subscription: SubscriptionRecord{
			ID:      "sub_1",
			EndDate: 1700000000,
			Valid:   true,
			Key:     PlanGrowth,
		},
	}, call.record)

	require.Equal(t, []string{"Updated Subscription"}, tracker.names())
	assert.Equal(t, "author_1", tracker.events[0].UserID)
}

func TestDispatchSubscriptionUpdatedUnknownPlan(t *testing.T) {
	d, _, clients, _ := newTestDispatcher()

	event := stripeEvent("customer.subscription.updated",
		`{"customer":"cus_1","id":"sub_1","current_period_end":1700000000,"plan":{"id":"price_mystery"}}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	require.Len(t, clients.calls, 1)
	assert.Equal(t, PlanUnknown, clients.calls[0].record.Subscription.Key)
}

func TestDispatchSubscriptionUpdatedIdempotent(t *testing.T) {
	d, _, clients, _ := newTestDispatcher()

	event := stripeEvent("customer.subscription.updated",
		`{"customer":"cus_1","id":"sub_1","current_period_end":1700000000,"plan":{"id":"price_growth"}}`)
	require.NoError(t, d.Dispatch(context.Background(), event))
	require.NoError(t, d.Dispatch(context.Background(), event))

	// Redelivery produces the same full-overwrite record both times.
	require.Len(t, clients.calls, 2)
	assert.Equal(t, clients.calls[0].record, clients.calls[1].record)
}

func TestDispatchSubscriptionUpdatedUpdateFailure(t *testing.T) {
	d, _, clients, tracker := newTestDispatcher()
	clients.updateErr = errors.New("db down")

	event := stripeEvent("customer.subscription.updated",
		`{"customer":"cus_1","id":"sub_1","plan":{"id":"price_growth"}}`)
	require.Error(t, d.Dispatch(context.Background(), event))
	assert.Empty(t, tracker.events, "no tracking after a failed primary call")
}

func TestDispatchTrackingFailureIsSwallowed(t *testing.T) {
	d, _, _, tracker := newTestDispatcher()
	tracker.err = errors.New("collector unreachable")

	event := stripeEvent("customer.subscription.updated",
		`{"customer":"cus_1","id":"sub_1","plan":{"id":"price_growth"}}`)
	require.NoError(t, d.Dispatch(context.Background(), event))
	require.Len(t, tracker.events, 1)
}

func TestDispatchSubscriptionDeleted(t *testing.T) {
	d, provider, clients, tracker := newTestDispatcher()
	provider.created = &ProviderSubscription{
		ID:               "sub_free_9",
		CustomerID:       "cus_1",
		Status:           "active",
		CurrentPeriodEnd: 1800000000,
	}

	event := stripeEvent("customer.subscription.deleted",
		`{"customer":"cus_1","id":"sub_old","current_period_end":1700000000,"plan":{"id":"price_growth"}}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	require.Equal(t, []string{"cus_1"}, provider.createdForIDs)

	// The persisted record reflects the replacement free subscription,
	// not the deleted one.
	require.Len(t, clients.calls, 1)
	assert.Equal(t, BillingRecord{
		Provider:   "stripe",
		CustomerID: "cus_1",
		Subscription: SubscriptionRecord{
			ID:      "sub_free_9",
			EndDate: 1800000000,
			Valid:   true,
			Key:     PlanFree,
		},
	}, clients.calls[0].record)

	require.Equal(t, []string{"Deleted Subscription", "Created Subscription"}, tracker.names())
	assert.Equal(t, "author_1", tracker.events[0].UserID)
	assert.Equal(t, provider.created, tracker.events[1].Properties)
}

func TestDispatchSubscriptionDeletedCreateFailure(t *testing.T) {
	d, provider, clients, tracker := newTestDispatcher()
	provider.createErr = errors.New("stripe unavailable")

	event := stripeEvent("customer.subscription.deleted", `{"customer":"cus_1","id":"sub_old"}`)
	require.Error(t, d.Dispatch(context.Background(), event))
	assert.Empty(t, clients.calls)
	assert.Empty(t, tracker.events)
}

func TestDispatchInvoicePaymentFailedNonActive(t *testing.T) {
	d, provider, clients, tracker := newTestDispatcher()
	provider.retrieved = &ProviderSubscription{ID: "sub_1", Status: "past_due"}

	event := stripeEvent("invoice.payment_failed", `{"customer":"cus_1","subscription":"sub_1"}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	require.Equal(t, []string{"sub_1"}, provider.retrievedIDs)
	assert.Equal(t, []string{"paymentFailed", "get"}, clients.callNames())
	require.Equal(t, []string{"Failed Invoice Payment"}, tracker.names())
}

func TestDispatchInvoicePaymentFailedStillActive(t *testing.T) {
	d, provider, clients, tracker := newTestDispatcher()
	provider.retrieved = &ProviderSubscription{ID: "sub_1", Status: "active"}

	event := stripeEvent("invoice.payment_failed", `{"customer":"cus_1","subscription":"sub_1"}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	// Grace period: the subscription is still active, so no invalidation.
	assert.Equal(t, []string{"get"}, clients.callNames())
	require.Equal(t, []string{"Failed Invoice Payment"}, tracker.names())
}

func TestDispatchInvoicePaymentFailedLookupFailure(t *testing.T) {
	d, provider, clients, tracker := newTestDispatcher()
	provider.retrieved = &ProviderSubscription{ID: "sub_1", Status: "canceled"}
	clients.getErr = errors.New("not found")

	event := stripeEvent("invoice.payment_failed", `{"customer":"cus_1","subscription":"sub_1"}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	// The tracking event still goes out, just without a user id.
	require.Len(t, tracker.events, 1)
	assert.Empty(t, tracker.events[0].UserID)
}

func TestDispatchInvoicePaymentSucceeded(t *testing.T) {
	d, provider, clients, tracker := newTestDispatcher()
	provider.retrieved = &ProviderSubscription{ID: "sub_1", Status: "active", CurrentPeriodEnd: 1800000000}

	event := stripeEvent("invoice.payment_succeeded", `{"customer":"cus_1","subscription":"sub_1"}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	require.Len(t, clients.calls, 1)
	assert.Equal(t, "paymentSuccess", clients.calls[0].name)
	assert.Equal(t, "cus_1", clients.calls[0].customerID)
	assert.Equal(t, int64(1800000000), clients.calls[0].endDate)
	require.Equal(t, []string{"Successful Invoice Payment"}, tracker.names())
}

func TestDispatchUnhandledEventIsNoOp(t *testing.T) {
	d, provider, clients, tracker := newTestDispatcher()

	event := stripeEvent("charge.refunded", `{"id":"ch_1"}`)
	require.NoError(t, d.Dispatch(context.Background(), event))

	assert.Empty(t, provider.retrievedIDs)
	assert.Empty(t, provider.createdForIDs)
	assert.Empty(t, clients.calls)
	assert.Empty(t, tracker.events)
}
