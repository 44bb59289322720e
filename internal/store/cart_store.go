package store

import (
	"context"

	"gorm.io/gorm"

	"escrow-service/internal/models"
)

type CartStore struct {
	DB *gorm.DB
}

func NewCartStore(db *gorm.DB) *CartStore {
	return &CartStore{DB: db}
}

func (s *CartStore) ItemsForBuyer(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.DB.WithContext(ctx).Where("buyer_id = ?", buyerID).Find(&items).Error
	return items, err
}

// ClearForBuyer deletes a buyer's cart after a successful group checkout.
// Deleting an already-empty cart is a no-op, which keeps webhook replays
// harmless.
func (s *CartStore) ClearForBuyer(ctx context.Context, buyerID string) error {
	return s.DB.WithContext(ctx).Where("buyer_id = ?", buyerID).Delete(&models.CartItem{}).Error
}
