package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"escrow-service/internal/models"
	"escrow-service/internal/paystack"
	"escrow-service/internal/util"
)

// RecipientService registers a seller's bank account with the gateway so
// escrow releases have somewhere to go. Re-registration overwrites the
// stored recipient code.
type RecipientService struct {
	Profiles ProfileStore
	Gateway  Gateway
	Logger   *zap.Logger
}

func NewRecipientService(profiles ProfileStore, gateway Gateway) *RecipientService {
	return &RecipientService{
		Profiles: profiles,
		Gateway:  gateway,
		Logger:   util.GetLogger(),
	}
}

func (s *RecipientService) Register(ctx context.Context, userID, bankCode, accountNumber, accountName string) (*models.SellerProfile, error) {
	code, err := s.Gateway.CreateRecipient(ctx, paystack.AccountDetails{
		Name:          accountName,
		AccountNumber: accountNumber,
		BankCode:      bankCode,
	})
	if err != nil {
		return nil, Dependency(400, "unable to register payout account: %v", err)
	}

	profile := &models.SellerProfile{
		UserId:        userID,
		BankCode:      bankCode,
		AccountNumber: accountNumber,
		AccountName:   accountName,
		RecipientCode: code,
	}

	// Keep the seller's email if a profile already exists; registration
	// only owns the bank fields.
	if existing, err := s.Profiles.Get(ctx, userID); err == nil {
		profile.Email = existing.Email
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.Profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	s.Logger.Info("payout recipient registered",
		zap.String("user_id", userID),
		zap.String("bank_code", bankCode))
	return profile, nil
}
