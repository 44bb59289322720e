package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeFundRelease = "escrow:release"
)

type FundReleasePayload struct {
	TransactionID string `json:"transaction_id"`
}

func NewFundReleaseTask(transactionID string) (*asynq.Task, error) {
	data, err := json.Marshal(FundReleasePayload{TransactionID: transactionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFundRelease, data), nil
}

// ReleaseEnqueuer pushes fund releases onto the queue; it satisfies
// services.ReleaseEnqueuer.
type ReleaseEnqueuer struct {
	Client *asynq.Client
}

func NewReleaseEnqueuer(client *asynq.Client) *ReleaseEnqueuer {
	return &ReleaseEnqueuer{Client: client}
}

func (e *ReleaseEnqueuer) EnqueueRelease(transactionID string) error {
	task, err := NewFundReleaseTask(transactionID)
	if err != nil {
		return err
	}
	_, err = e.Client.Enqueue(task, asynq.MaxRetry(5))
	return err
}
