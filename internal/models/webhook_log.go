package models

import (
	"time"
)

type WebhookLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Event     string    `gorm:"column:event;size:100" json:"event"`
	Reference string    `gorm:"column:reference;size:255;index" json:"reference"`
	Payload   string    `gorm:"column:payload;type:longtext" json:"payload"`
	Outcome   string    `gorm:"column:outcome;size:255" json:"outcome"`
	Status    int       `gorm:"column:status;default:0" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}
