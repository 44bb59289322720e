package models

import (
	"time"
)

// SellerProfile holds the payout identity a seller registers before funds
// can be released to them.
type SellerProfile struct {
	UserId        string    `gorm:"column:user_id;primaryKey;size:36" json:"user_id"`
	Email         string    `gorm:"column:email;size:255" json:"email"`
	BankCode      string    `gorm:"column:bank_code;size:20" json:"bank_code"`
	AccountNumber string    `gorm:"column:account_number;size:150" json:"account_number"`
	AccountName   string    `gorm:"column:account_name;size:250" json:"account_name"`
	RecipientCode string    `gorm:"column:recipient_code;size:150" json:"recipient_code"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SellerProfile) TableName() string {
	return "seller_profiles"
}
