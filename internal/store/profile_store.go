package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"escrow-service/internal/models"
)

type ProfileStore struct {
	DB *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{DB: db}
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert writes a seller's payout details. Re-registration overwrites the
// stored recipient code.
func (s *ProfileStore) Upsert(ctx context.Context, profile *models.SellerProfile) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "bank_code", "account_number", "account_name", "recipient_code",
		}),
	}).Create(profile).Error
}
