package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"escrow-service/internal/models"
	"escrow-service/internal/util"
)

// ReleaseEnqueuer hands a fund release to the background worker.
type ReleaseEnqueuer interface {
	EnqueueRelease(transactionID string) error
}

// ReconcileService sweeps for transactions the happy path left behind:
// checkout sessions whose webhook never arrived, abandoned sessions, and
// paid rows where both parties confirmed but the payout has not gone out
// (failed transfer, late recipient registration).
type ReconcileService struct {
	Transactions TransactionStore
	Gateway      Gateway
	Enqueuer     ReleaseEnqueuer
	VerifyAfter  time.Duration
	AbandonAfter time.Duration
	Logger       *zap.Logger
}

func NewReconcileService(transactions TransactionStore, gateway Gateway, enqueuer ReleaseEnqueuer, verifyAfter, abandonAfter time.Duration) *ReconcileService {
	return &ReconcileService{
		Transactions: transactions,
		Gateway:      gateway,
		Enqueuer:     enqueuer,
		VerifyAfter:  verifyAfter,
		AbandonAfter: abandonAfter,
		Logger:       util.GetLogger(),
	}
}

// StartScheduler runs the sweep every 10 minutes.
func (s *ReconcileService) StartScheduler() {
	c := cron.New()
	_, err := c.AddFunc("*/10 * * * *", func() {
		if err := s.Run(context.Background()); err != nil {
			s.Logger.Error("reconciliation sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		s.Logger.Error("failed to schedule reconciliation sweep", zap.Error(err))
		return
	}
	c.Start()
	s.Logger.Info("reconciliation scheduler started (every 10 minutes)")
}

// Run performs one sweep.
func (s *ReconcileService) Run(ctx context.Context) error {
	now := time.Now()

	stale, err := s.Transactions.FindStalePendingPayment(ctx, now.Add(-s.VerifyAfter))
	if err != nil {
		return err
	}

	for _, trx := range stale {
		if trx.PaystackReference != "" {
			status, err := s.Gateway.VerifyTransaction(ctx, trx.PaystackReference)
			if err != nil {
				s.Logger.Warn("gateway verify failed",
					zap.String("transaction_id", trx.ID),
					zap.Error(err))
			} else if status.Status == "success" {
				// Same idempotent path the webhook takes; a late delivery
				// after this promotion matches zero rows.
				if _, err := s.Transactions.MarkPaid(ctx, []string{trx.ID}, trx.PaystackReference); err != nil {
					s.Logger.Error("failed to promote verified charge",
						zap.String("transaction_id", trx.ID),
						zap.Error(err))
					continue
				}
				util.TransactionsReconciledTotal.WithLabelValues("promoted").Inc()
				s.Logger.Info("promoted gateway-verified charge",
					zap.String("transaction_id", trx.ID))
				continue
			}
		}

		if trx.CreatedAt.Before(now.Add(-s.AbandonAfter)) {
			rows, err := s.Transactions.Update(ctx, trx.ID,
				map[string]interface{}{"status": models.StatusCancelled},
				models.StatusPendingPayment)
			if err != nil {
				s.Logger.Error("failed to cancel abandoned checkout",
					zap.String("transaction_id", trx.ID),
					zap.Error(err))
				continue
			}
			if rows > 0 {
				util.TransactionsReconciledTotal.WithLabelValues("cancelled").Inc()
				s.Logger.Info("cancelled abandoned checkout",
					zap.String("transaction_id", trx.ID))
			}
		}
	}

	if s.Enqueuer != nil {
		releasable, err := s.Transactions.FindReleasable(ctx)
		if err != nil {
			return err
		}
		for _, id := range releasable {
			if err := s.Enqueuer.EnqueueRelease(id); err != nil {
				s.Logger.Error("failed to enqueue fund release",
					zap.String("transaction_id", id),
					zap.Error(err))
				continue
			}
			util.TransactionsReconciledTotal.WithLabelValues("release_enqueued").Inc()
		}
	}

	return nil
}
