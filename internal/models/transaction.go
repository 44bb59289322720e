package models

import (
	"time"
)

type TransactionStatus string

const (
	StatusPendingPayment TransactionStatus = "pending_payment"
	StatusPending        TransactionStatus = "pending"
	StatusCompleted      TransactionStatus = "completed"
	StatusCancelled      TransactionStatus = "cancelled"
	StatusRefunded       TransactionStatus = "refunded"
)

// Terminal reports whether no further status writes are permitted.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

type Transaction struct {
	ID                string            `gorm:"primaryKey;size:36" json:"id"`
	BuyerId           string            `gorm:"column:buyer_id;size:36;not null;index:idx_trx_buyer" json:"buyer_id"`
	SellerId          string            `gorm:"column:seller_id;size:36;not null;index:idx_trx_seller" json:"seller_id"`
	ProductId         *string           `gorm:"column:product_id;size:36" json:"product_id"`
	Amount            float64           `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Status            TransactionStatus `gorm:"column:status;size:30;not null;default:pending_payment;index" json:"status"`
	BuyerConfirmed    bool              `gorm:"column:buyer_confirmed;not null;default:false" json:"buyer_confirmed"`
	SellerConfirmed   bool              `gorm:"column:seller_confirmed;not null;default:false" json:"seller_confirmed"`
	PaystackReference string            `gorm:"column:paystack_reference;size:255;index" json:"paystack_reference"`
	PlatformFee       float64           `gorm:"column:platform_fee;type:decimal(20,2);default:0.00" json:"platform_fee"`
	PaymentFee        float64           `gorm:"column:payment_fee;type:decimal(20,2);default:0.00" json:"payment_fee"`
	ReleaseClaimed    bool              `gorm:"column:release_claimed;not null;default:false" json:"-"`
	ReleasedAt        *time.Time        `gorm:"column:released_at" json:"released_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
