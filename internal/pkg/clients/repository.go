package clients

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hookd/subsync/app/models"
)

// Repository provides DB operations used by the client record service.
type Repository interface {
	GetByCustomerID(customerID string) (*models.Client, error)
	UpsertByCustomerID(client *models.Client) error
	UpdateColumnsByCustomerID(customerID string, updates map[string]interface{}) error
	Count() (int64, error)
	Create(client *models.Client) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a client repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByCustomerID(customerID string) (*models.Client, error) {
	var client models.Client
	err := r.db.Where("customer_id = ?", customerID).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *gormRepository) UpsertByCustomerID(client *models.Client) error {
	// Full overwrite of the billing columns; author_id is owned by account
	// linking and is deliberately left untouched on conflict.
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "customer_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider",
			"subscription_id",
			"subscription_end_date",
			"subscription_valid",
			"plan_key",
			"updated_at",
		}),
	}).Create(client).Error; err != nil {
		return err
	}

	// Ensure ID and author are populated after upsert.
	return r.db.Where("customer_id = ?", client.CustomerID).First(client).Error
}

func (r *gormRepository) UpdateColumnsByCustomerID(customerID string, updates map[string]interface{}) error {
	return r.db.Model(&models.Client{}).Where("customer_id = ?", customerID).Updates(updates).Error
}

func (r *gormRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Client{}).Count(&count).Error
	return count, err
}

func (r *gormRepository) Create(client *models.Client) error {
	return r.db.Create(client).Error
}
