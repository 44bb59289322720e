package store

import (
	"context"

	"gorm.io/gorm"

	"escrow-service/internal/models"
)

type WebhookLogStore struct {
	DB *gorm.DB
}

func NewWebhookLogStore(db *gorm.DB) *WebhookLogStore {
	return &WebhookLogStore{DB: db}
}

func (s *WebhookLogStore) Log(ctx context.Context, entry *models.WebhookLog) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}
