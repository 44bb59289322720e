package broker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"escrow-service/internal/models"
)

const (
	EventTypePaymentConfirmed     = "escrow.payment_confirmed"
	EventTypeEscrowCompleted      = "escrow.completed"
	EventTypeTransactionCancelled = "escrow.cancelled"
	EventTypeTransactionRefunded  = "escrow.refunded"
)

type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

type PaymentConfirmedEvent struct {
	BaseEvent
	TransactionIDs []string `json:"transaction_ids"`
	Reference      string   `json:"reference"`
}

type TransactionEvent struct {
	BaseEvent
	TransactionID string  `json:"transaction_id"`
	BuyerID       string  `json:"buyer_id"`
	SellerID      string  `json:"seller_id"`
	Amount        float64 `json:"amount"`
	PlatformFee   float64 `json:"platform_fee"`
	Status        string  `json:"status"`
}

// EventPublisher emits escrow lifecycle events for downstream consumers
// (notifications, analytics). It satisfies services.EventPublisher.
type EventPublisher struct {
	producer *Producer
}

func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBase(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func transactionEvent(eventType string, trx *models.Transaction) TransactionEvent {
	return TransactionEvent{
		BaseEvent:     newBase(eventType),
		TransactionID: trx.ID,
		BuyerID:       trx.BuyerId,
		SellerID:      trx.SellerId,
		Amount:        trx.Amount,
		PlatformFee:   trx.PlatformFee,
		Status:        string(trx.Status),
	}
}

func (ep *EventPublisher) PaymentConfirmed(ctx context.Context, transactionIDs []string, reference string) error {
	event := PaymentConfirmedEvent{
		BaseEvent:      newBase(EventTypePaymentConfirmed),
		TransactionIDs: transactionIDs,
		Reference:      reference,
	}
	return ep.producer.Publish(ctx, reference, event)
}

func (ep *EventPublisher) EscrowCompleted(ctx context.Context, trx *models.Transaction) error {
	return ep.producer.Publish(ctx, trx.ID, transactionEvent(EventTypeEscrowCompleted, trx))
}

func (ep *EventPublisher) TransactionCancelled(ctx context.Context, trx *models.Transaction) error {
	return ep.producer.Publish(ctx, trx.ID, transactionEvent(EventTypeTransactionCancelled, trx))
}

func (ep *EventPublisher) TransactionRefunded(ctx context.Context, trx *models.Transaction) error {
	return ep.producer.Publish(ctx, trx.ID, transactionEvent(EventTypeTransactionRefunded, trx))
}
