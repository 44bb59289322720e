package models

import (
	"time"
)

type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerId   string    `gorm:"column:buyer_id;size:36;not null;index" json:"buyer_id"`
	ProductId string    `gorm:"column:product_id;size:36;not null" json:"product_id"`
	SellerId  string    `gorm:"column:seller_id;size:36;not null" json:"seller_id"`
	Price     float64   `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	Quantity  int       `gorm:"column:quantity;not null;default:1" json:"quantity"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
