package clients

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hookd/subsync/app/models"
	"github.com/hookd/subsync/internal/pkg/billing"
	"github.com/hookd/subsync/internal/pkg/cache"
	"github.com/hookd/subsync/internal/pkg/env"
)

const (
	cacheKeyPrefix        = "clients:"
	cacheCleanChannel     = "cache.clean.clients"
	cacheExpiration       = 5 * time.Minute
	seedFileEnvKey        = "CLIENT_SEED_FILE"
	defaultSeedBatchLimit = 1000
)

// Service owns the canonical client billing records. Mutations are full
// overwrites keyed by customer id, which keeps webhook redeliveries
// idempotent, and every mutation publishes an explicit cache invalidation
// event instead of relying on a silent hook.
type Service struct {
	repo Repository
}

// NewService creates a client service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a client service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// UpdateBillingByCustomerID overwrites a client's billing state with the
// given record and returns the stored row.
func (s *Service) UpdateBillingByCustomerID(ctx context.Context, customerID string, record billing.BillingRecord) (*models.Client, error) {
	_ = ctx
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, errors.New("customer_id is required")
	}

	client := &models.Client{
		CustomerID:          id,
		Provider:            record.Provider,
		SubscriptionID:      record.Subscription.ID,
		SubscriptionEndDate: record.Subscription.EndDate,
		SubscriptionValid:   record.Subscription.Valid,
		PlanKey:             string(record.Subscription.Key),
	}
	if err := s.repo.UpsertByCustomerID(client); err != nil {
		return nil, err
	}
	s.invalidate(id)
	return client, nil
}

// UpdateOnInvoicePaymentFailed marks a client's subscription invalid.
func (s *Service) UpdateOnInvoicePaymentFailed(ctx context.Context, customerID string) error {
	_ = ctx
	id := strings.TrimSpace(customerID)
	if id == "" {
		return errors.New("customer_id is required")
	}
	if err := s.repo.UpdateColumnsByCustomerID(id, map[string]interface{}{
		"subscription_valid": false,
	}); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// UpdateOnInvoicePaymentSuccess extends the billing period and revalidates
// the subscription, returning the stored row.
func (s *Service) UpdateOnInvoicePaymentSuccess(ctx context.Context, customerID string, endDate int64) (*models.Client, error) {
	_ = ctx
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, errors.New("customer_id is required")
	}
	if err := s.repo.UpdateColumnsByCustomerID(id, map[string]interface{}{
		"subscription_end_date": endDate,
		"subscription_valid":    true,
	}); err != nil {
		return nil, err
	}
	s.invalidate(id)
	return s.repo.GetByCustomerID(id)
}

// GetByCustomerID resolves a client by provider customer id, read-through
// cached in redis.
func (s *Service) GetByCustomerID(ctx context.Context, customerID string) (*models.Client, error) {
	_ = ctx
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, errors.New("customer_id is required")
	}

	if cached, err := cache.Get(cacheKeyPrefix + id); err == nil && cached != "" {
		var client models.Client
		if err := json.Unmarshal([]byte(cached), &client); err == nil {
			return &client, nil
		}
	}

	client, err := s.repo.GetByCustomerID(id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(client); err == nil {
		if err := cache.Set(cacheKeyPrefix+id, string(encoded), cacheExpiration); err != nil {
			log.Printf("failed to cache client %s: %v", id, err)
		}
	}
	return client, nil
}

// SeedIfEmpty loads initial client records from the configured seed file
// when the clients table is empty. A missing seed file is not an error.
func (s *Service) SeedIfEmpty(ctx context.Context) error {
	_ = ctx
	count, err := s.repo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seedFile := strings.TrimSpace(env.GetEnv(seedFileEnvKey, ""))
	if seedFile == "" {
		return nil
	}

	log.Printf("The clients table is empty. Seeding from %s...", seedFile)
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return err
	}

	var seeds []models.Client
	if err := json.Unmarshal(data, &seeds); err != nil {
		return err
	}
	if len(seeds) > defaultSeedBatchLimit {
		seeds = seeds[:defaultSeedBatchLimit]
	}

	for i := range seeds {
		if err := s.repo.Create(&seeds[i]); err != nil {
			return err
		}
	}
	log.Printf("Seeding is done. Number of records: %d", len(seeds))
	return nil
}

// invalidate drops the cached copy and broadcasts the change to other
// instances.
func (s *Service) invalidate(customerID string) {
	if err := cache.Delete(cacheKeyPrefix + customerID); err != nil {
		log.Printf("failed to invalidate client cache for %s: %v", customerID, err)
	}
	if err := cache.Publish(cacheCleanChannel, customerID); err != nil {
		log.Printf("failed to publish cache invalidation for %s: %v", customerID, err)
	}
}
