package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"escrow-service/internal/models"
	"escrow-service/internal/paystack"
	"escrow-service/internal/util"
)

type Party string

const (
	PartyBuyer  Party = "buyer"
	PartySeller Party = "seller"
)

// TransactionStore is the durable record of each purchase. Implementations
// must perform status-guarded, field-scoped updates; the state machine
// relies on affected-row counts for idempotency.
type TransactionStore interface {
	Create(ctx context.Context, trx *models.Transaction) error
	Get(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, id string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error)
	UpdateMany(ctx context.Context, ids []string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error)
	MarkPaid(ctx context.Context, ids []string, reference string) (int64, error)
	SetBuyerConfirmed(ctx context.Context, id string) (int64, error)
	SetSellerConfirmed(ctx context.Context, id string) (int64, error)
	ClaimRelease(ctx context.Context, id string) (bool, error)
	ResetReleaseClaim(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, platformFee, paymentFee float64, releasedAt time.Time) (int64, error)
	FindStalePendingPayment(ctx context.Context, before time.Time) ([]models.Transaction, error)
	FindReleasable(ctx context.Context) ([]string, error)
}

type CartStore interface {
	ItemsForBuyer(ctx context.Context, buyerID string) ([]models.CartItem, error)
	ClearForBuyer(ctx context.Context, buyerID string) error
}

type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.SellerProfile, error)
	Upsert(ctx context.Context, profile *models.SellerProfile) error
}

type WebhookLogStore interface {
	Log(ctx context.Context, entry *models.WebhookLog) error
}

// Gateway is the payment provider the escrow rides on. *paystack.Client
// satisfies it; tests substitute fakes.
type Gateway interface {
	InitializeSession(ctx context.Context, amountKobo int64, email string, metadata map[string]interface{}) (*paystack.Session, error)
	Transfer(ctx context.Context, amountKobo int64, recipientCode, reason, transactionID string) (*paystack.Transfer, error)
	CreateRecipient(ctx context.Context, details paystack.AccountDetails) (string, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.ChargeStatus, error)
}

// EventPublisher emits lifecycle events for downstream consumers. A nil
// publisher disables events; publish failures never fail the request path.
type EventPublisher interface {
	PaymentConfirmed(ctx context.Context, transactionIDs []string, reference string) error
	EscrowCompleted(ctx context.Context, trx *models.Transaction) error
	TransactionCancelled(ctx context.Context, trx *models.Transaction) error
	TransactionRefunded(ctx context.Context, trx *models.Transaction) error
}

// EscrowService is the state machine for a purchase: webhook-driven payment
// confirmation, dual-party delivery confirmation and fund release.
type EscrowService struct {
	Transactions TransactionStore
	Carts        CartStore
	Profiles     ProfileStore
	WebhookLogs  WebhookLogStore
	Gateway      Gateway
	Publisher    EventPublisher
	FeeRate      float64
	Logger       *zap.Logger
}

func NewEscrowService(transactions TransactionStore, carts CartStore, profiles ProfileStore, logs WebhookLogStore, gateway Gateway, publisher EventPublisher, feeRate float64) *EscrowService {
	return &EscrowService{
		Transactions: transactions,
		Carts:        carts,
		Profiles:     profiles,
		WebhookLogs:  logs,
		Gateway:      gateway,
		Publisher:    publisher,
		FeeRate:      feeRate,
		Logger:       util.GetLogger(),
	}
}

// Confirm applies one party's delivery confirmation and, when it completes
// the pair, drives the payout. Returns the transaction as it stands after
// the confirmation, plus any release error (the flag write survives a
// failed release; the row stays pending for retry).
func (s *EscrowService) Confirm(ctx context.Context, party Party, transactionID, userID string) (*models.Transaction, error) {
	trx, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("transaction not found")
		}
		return nil, err
	}

	switch party {
	case PartyBuyer:
		if trx.BuyerId != userID {
			return nil, Forbidden("you are not the buyer on this transaction")
		}
	case PartySeller:
		if trx.SellerId != userID {
			return nil, Forbidden("you are not the seller on this transaction")
		}
	default:
		return nil, Invalid("unknown party %q", party)
	}

	if trx.Status != models.StatusPending {
		return nil, Invalid("transaction is %s; delivery can only be confirmed while pending", trx.Status)
	}

	var rows int64
	if party == PartyBuyer {
		rows, err = s.Transactions.SetBuyerConfirmed(ctx, transactionID)
	} else {
		rows, err = s.Transactions.SetSellerConfirmed(ctx, transactionID)
	}
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Either this party already confirmed, or the row left pending
		// between the status check and the guarded write. Re-fetch so the
		// state-conflict message names what actually happened.
		current, err := s.Transactions.Get(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if current.Status != models.StatusPending {
			return nil, Invalid("transaction is %s; delivery can only be confirmed while pending", current.Status)
		}
		return nil, Invalid("%s has already confirmed delivery", party)
	}

	util.ConfirmationsTotal.WithLabelValues(string(party)).Inc()

	trx, err = s.Transactions.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if trx.BuyerConfirmed && trx.SellerConfirmed {
		released, err := s.ReleaseFunds(ctx, transactionID)
		if err != nil {
			s.Logger.Warn("fund release deferred",
				zap.String("transaction_id", transactionID),
				zap.Error(err))
			return trx, err
		}
		return released.Transaction, nil
	}

	return trx, nil
}

// ReleaseResult reports a successful payout: the completed row plus the
// gateway's view of the transfer.
type ReleaseResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Transfer    *paystack.Transfer  `json:"transfer"`
}

// ReleaseFunds pays the seller out of escrow. Preconditions: both parties
// confirmed, row not terminal, seller has a registered payout recipient.
// Exactly one caller wins the release claim; everyone else gets a conflict
// error. Failures after the claim reset it so the release stays retryable.
func (s *EscrowService) ReleaseFunds(ctx context.Context, transactionID string) (*ReleaseResult, error) {
	trx, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("transaction not found")
		}
		return nil, err
	}

	if trx.Status != models.StatusPending {
		return nil, Invalid("transaction is %s; funds can only be released from pending", trx.Status)
	}
	if !trx.BuyerConfirmed || !trx.SellerConfirmed {
		return nil, Invalid("both parties must confirm delivery before funds are released")
	}

	claimed, err := s.Transactions.ClaimRelease(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, Invalid("fund release is already in progress for this transaction")
	}

	// Past this point the claim is held. Reopen it on every failure that
	// happens before the transfer lands; once money has moved, the claim
	// stays set and operators reconcile against the gateway.
	var transfer *paystack.Transfer
	release := func() (resetClaim bool, err error) {
		profile, err := s.Profiles.Get(ctx, trx.SellerId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return true, Invalid("seller has no payout recipient registered")
			}
			return true, err
		}
		if profile.RecipientCode == "" {
			return true, Invalid("seller has no payout recipient registered")
		}

		amountKobo := ToKobo(trx.Amount)
		feeKobo := PlatformFeeKobo(amountKobo, s.FeeRate)
		payoutKobo := amountKobo - feeKobo
		if payoutKobo <= 0 {
			return true, Invalid("payout amount after fees is not positive")
		}

		reason := fmt.Sprintf("Escrow release for order %s", trx.ID)
		transfer, err = s.Gateway.Transfer(ctx, payoutKobo, profile.RecipientCode, reason, trx.ID)
		if err != nil {
			util.PayoutsTotal.WithLabelValues("failed").Inc()
			return true, Dependency(400, "payout failed: %v", err)
		}

		rows, err := s.Transactions.Complete(ctx, trx.ID, FromKobo(feeKobo), 0, time.Now())
		if err != nil {
			s.Logger.Error("transfer sent but completion write failed",
				zap.String("transaction_id", trx.ID),
				zap.String("transfer_code", transfer.TransferCode),
				zap.Error(err))
			return false, NewError(500, "transfer sent but completion write failed: %v", err)
		}
		if rows == 0 {
			s.Logger.Error("transfer sent but completion write matched no row",
				zap.String("transaction_id", trx.ID),
				zap.String("transfer_code", transfer.TransferCode))
			return false, NewError(500, "transaction state changed during release")
		}

		util.PayoutsTotal.WithLabelValues("success").Inc()
		s.Logger.Info("escrow released",
			zap.String("transaction_id", trx.ID),
			zap.Int64("payout_kobo", payoutKobo),
			zap.Int64("fee_kobo", feeKobo))
		return false, nil
	}

	if resetClaim, err := release(); err != nil {
		if resetClaim {
			if resetErr := s.Transactions.ResetReleaseClaim(ctx, transactionID); resetErr != nil {
				s.Logger.Error("failed to reset release claim",
					zap.String("transaction_id", transactionID),
					zap.Error(resetErr))
			}
		}
		return nil, err
	}

	updated, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		if err := s.Publisher.EscrowCompleted(ctx, updated); err != nil {
			s.Logger.Warn("failed to publish completion event", zap.Error(err))
		}
	}

	return &ReleaseResult{Transaction: updated, Transfer: transfer}, nil
}

// HandleChargeSuccess applies a verified charge.success webhook: moves the
// referenced transactions from pending_payment to pending and clears the
// buyer's cart for group checkouts. Replays match zero rows and change
// nothing.
func (s *EscrowService) HandleChargeSuccess(ctx context.Context, transactionIDs []string, reference, buyerID string, payload []byte) error {
	rows, err := s.Transactions.MarkPaid(ctx, transactionIDs, reference)
	if err != nil {
		s.logWebhook(ctx, "charge.success", reference, payload, "store update failed", 0)
		return NewError(500, "failed to update transactions: %v", err)
	}

	// Only the delivery that actually moved rows clears the cart; a replay
	// must not wipe a cart the buyer has started filling since.
	if rows > 0 && buyerID != "" {
		if err := s.Carts.ClearForBuyer(ctx, buyerID); err != nil {
			s.logWebhook(ctx, "charge.success", reference, payload, "cart clear failed", 0)
			return NewError(500, "failed to clear cart: %v", err)
		}
	}

	outcome := fmt.Sprintf("marked %d of %d transactions paid", rows, len(transactionIDs))
	s.logWebhook(ctx, "charge.success", reference, payload, outcome, 1)
	s.Logger.Info("charge confirmed",
		zap.String("reference", reference),
		zap.Int64("rows", rows),
		zap.Int("transactions", len(transactionIDs)))

	if rows > 0 && s.Publisher != nil {
		if err := s.Publisher.PaymentConfirmed(ctx, transactionIDs, reference); err != nil {
			s.Logger.Warn("failed to publish payment event", zap.Error(err))
		}
	}
	return nil
}

// Cancel is the administrative failure path; it bypasses confirmation but
// never touches a terminal row.
func (s *EscrowService) Cancel(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.terminate(ctx, transactionID, models.StatusCancelled)
}

// Refund marks a paid transaction refunded. Like Cancel, administrative.
func (s *EscrowService) Refund(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.terminate(ctx, transactionID, models.StatusRefunded)
}

func (s *EscrowService) terminate(ctx context.Context, transactionID string, to models.TransactionStatus) (*models.Transaction, error) {
	trx, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("transaction not found")
		}
		return nil, err
	}
	if trx.Status.Terminal() {
		return nil, Invalid("transaction is already %s", trx.Status)
	}

	rows, err := s.Transactions.Update(ctx, transactionID,
		map[string]interface{}{"status": to},
		models.StatusPendingPayment, models.StatusPending)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, Invalid("transaction can no longer be %s", to)
	}

	updated, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		var pubErr error
		if to == models.StatusCancelled {
			pubErr = s.Publisher.TransactionCancelled(ctx, updated)
		} else {
			pubErr = s.Publisher.TransactionRefunded(ctx, updated)
		}
		if pubErr != nil {
			s.Logger.Warn("failed to publish terminal event", zap.Error(pubErr))
		}
	}
	return updated, nil
}

// Get fetches a single transaction row.
func (s *EscrowService) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	trx, err := s.Transactions.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("transaction not found")
		}
		return nil, err
	}
	return trx, nil
}

// LogIgnoredWebhook records deliveries that were acknowledged without side
// effects (unhandled events, missing correlation metadata).
func (s *EscrowService) LogIgnoredWebhook(ctx context.Context, event, reference string, payload []byte, outcome string) {
	s.logWebhook(ctx, event, reference, payload, outcome, 0)
}

func (s *EscrowService) logWebhook(ctx context.Context, event, reference string, payload []byte, outcome string, status int) {
	if s.WebhookLogs == nil {
		return
	}
	entry := &models.WebhookLog{
		Event:     event,
		Reference: reference,
		Payload:   string(payload),
		Outcome:   outcome,
		Status:    status,
	}
	if err := s.WebhookLogs.Log(ctx, entry); err != nil {
		s.Logger.Warn("failed to write webhook log", zap.Error(err))
	}
}
