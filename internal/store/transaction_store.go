package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"escrow-service/internal/models"
)

// TransactionStore owns every write to the transactions table. All status
// mutations are conditional on the current status so that retried webhooks
// and racing confirmation calls cannot double-apply; callers inspect the
// affected-row count to distinguish "applied" from "already applied or
// illegal".
type TransactionStore struct {
	DB *gorm.DB
}

func NewTransactionStore(db *gorm.DB) *TransactionStore {
	return &TransactionStore{DB: db}
}

func (s *TransactionStore) Create(ctx context.Context, trx *models.Transaction) error {
	return s.DB.WithContext(ctx).Create(trx).Error
}

func (s *TransactionStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	var trx models.Transaction
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&trx).Error; err != nil {
		return nil, err
	}
	return &trx, nil
}

// Update applies a field patch to a single row. When expected statuses are
// given the patch only lands if the row is currently in one of them.
func (s *TransactionStore) Update(ctx context.Context, id string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id)
	if len(expected) > 0 {
		q = q.Where("status IN ?", expected)
	}
	res := q.Updates(patch)
	return res.RowsAffected, res.Error
}

// UpdateMany applies a field patch to every matching row, optionally guarded
// on current status.
func (s *TransactionStore) UpdateMany(ctx context.Context, ids []string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Transaction{}).Where("id IN ?", ids)
	if len(expected) > 0 {
		q = q.Where("status IN ?", expected)
	}
	res := q.Updates(patch)
	return res.RowsAffected, res.Error
}

// MarkPaid moves rows from pending_payment into pending and records the
// gateway reference. Replayed webhooks match zero rows the second time.
func (s *TransactionStore) MarkPaid(ctx context.Context, ids []string, reference string) (int64, error) {
	return s.UpdateMany(ctx, ids, map[string]interface{}{
		"status":             models.StatusPending,
		"paystack_reference": reference,
	}, models.StatusPendingPayment)
}

// SetBuyerConfirmed flips the buyer flag. The guard on the flag itself makes
// a duplicate confirmation a zero-row no-op.
func (s *TransactionStore) SetBuyerConfirmed(ctx context.Context, id string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ? AND buyer_confirmed = ?", id, models.StatusPending, false).
		Update("buyer_confirmed", true)
	return res.RowsAffected, res.Error
}

// SetSellerConfirmed flips the seller flag, symmetric to SetBuyerConfirmed.
func (s *TransactionStore) SetSellerConfirmed(ctx context.Context, id string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ? AND seller_confirmed = ?", id, models.StatusPending, false).
		Update("seller_confirmed", true)
	return res.RowsAffected, res.Error
}

// ClaimRelease is the compare-and-set that admits exactly one releaser per
// transaction. Both confirmation calls can observe both flags true at the
// same time; only the one that wins this claim may call the gateway.
func (s *TransactionStore) ClaimRelease(ctx context.Context, id string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ? AND buyer_confirmed = ? AND seller_confirmed = ? AND release_claimed = ?",
			id, models.StatusPending, true, true, false).
		Update("release_claimed", true)
	return res.RowsAffected == 1, res.Error
}

// ResetReleaseClaim reopens the claim after a failed transfer so a later
// retry can drive the release again.
func (s *TransactionStore) ResetReleaseClaim(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("release_claimed", false).Error
}

// Complete records a successful payout. Guarded on status and both flags so
// it can never fire twice or land on a terminal row.
func (s *TransactionStore) Complete(ctx context.Context, id string, platformFee, paymentFee float64, releasedAt time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ? AND buyer_confirmed = ? AND seller_confirmed = ?",
			id, models.StatusPending, true, true).
		Updates(map[string]interface{}{
			"status":       models.StatusCompleted,
			"platform_fee": platformFee,
			"payment_fee":  paymentFee,
			"released_at":  releasedAt,
		})
	return res.RowsAffected, res.Error
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, role string, page, limit int) ([]models.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	q := s.DB.WithContext(ctx).Model(&models.Transaction{})
	switch role {
	case "seller":
		q = q.Where("seller_id = ?", userID)
	case "buyer":
		q = q.Where("buyer_id = ?", userID)
	default:
		q = q.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []models.Transaction
	err := q.Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&transactions).Error
	return transactions, total, err
}

// FindStalePendingPayment returns rows still awaiting a gateway charge that
// were created before the cutoff.
func (s *TransactionStore) FindStalePendingPayment(ctx context.Context, before time.Time) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := s.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.StatusPendingPayment, before).
		Find(&transactions).Error
	return transactions, err
}

// FindReleasable returns ids of paid rows where both parties have confirmed
// but the payout has not been claimed, e.g. after a failed transfer or a
// late recipient registration.
func (s *TransactionStore) FindReleasable(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ? AND buyer_confirmed = ? AND seller_confirmed = ? AND release_claimed = ?",
			models.StatusPending, true, true, false).
		Pluck("id", &ids).Error
	return ids, err
}
