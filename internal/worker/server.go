package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"escrow-service/internal/services"
)

type Worker struct {
	Escrow *services.EscrowService
}

func NewWorker(escrow *services.EscrowService) *Worker {
	return &Worker{Escrow: escrow}
}

// HandleFundRelease retries an escrow payout in the background. Gateway and
// store failures are returned plainly so asynq redelivers; failures a retry
// cannot fix (already completed, release claimed elsewhere, seller still
// has no recipient) skip further retries — the reconciliation sweeper will
// re-enqueue once conditions change.
func (w *Worker) HandleFundRelease(ctx context.Context, t *asynq.Task) error {
	var p FundReleasePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	if _, err := w.Escrow.ReleaseFunds(ctx, p.TransactionID); err != nil {
		if !services.Retryable(err) {
			return fmt.Errorf("fund release for %s not retryable: %v: %w", p.TransactionID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("fund release for %s failed: %w", p.TransactionID, err)
	}
	return nil
}

func StartWorker(redisOpt asynq.RedisClientOpt, escrow *services.EscrowService) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	worker := NewWorker(escrow)
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeFundRelease, worker.HandleFundRelease)

	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run worker server: %v", err)
	}
}
