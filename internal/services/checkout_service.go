package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escrow-service/internal/models"
	"escrow-service/internal/util"
)

// CheckoutService creates transactions and opens the hosted payment session
// that funds them. Multi-seller carts settle as one transaction per
// distinct seller, all covered by a single charge correlated through
// metadata.
type CheckoutService struct {
	Transactions TransactionStore
	Carts        CartStore
	Gateway      Gateway
	Logger       *zap.Logger
}

func NewCheckoutService(transactions TransactionStore, carts CartStore, gateway Gateway) *CheckoutService {
	return &CheckoutService{
		Transactions: transactions,
		Carts:        carts,
		Gateway:      gateway,
		Logger:       util.GetLogger(),
	}
}

type CheckoutResult struct {
	AuthorizationUrl string               `json:"authorization_url"`
	Reference        string               `json:"reference"`
	Transactions     []models.Transaction `json:"transactions"`
}

// CheckoutSingle initiates payment for one listing.
func (s *CheckoutService) CheckoutSingle(ctx context.Context, buyerID, email, productID, sellerID string, amount float64) (*CheckoutResult, error) {
	if amount <= 0 {
		return nil, Invalid("amount must be positive")
	}
	if buyerID == sellerID {
		return nil, Invalid("you cannot buy your own listing")
	}

	trx := models.Transaction{
		ID:        uuid.NewString(),
		BuyerId:   buyerID,
		SellerId:  sellerID,
		ProductId: &productID,
		Amount:    amount,
		Status:    models.StatusPendingPayment,
	}
	if err := s.Transactions.Create(ctx, &trx); err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"transaction_id": trx.ID,
		"buyer_id":       buyerID,
	}
	session, err := s.Gateway.InitializeSession(ctx, ToKobo(amount), email, metadata)
	if err != nil {
		return nil, Dependency(400, "unable to initiate payment: %v", err)
	}

	if _, err := s.Transactions.UpdateMany(ctx, []string{trx.ID},
		map[string]interface{}{"paystack_reference": session.Reference},
		models.StatusPendingPayment); err != nil {
		return nil, err
	}
	trx.PaystackReference = session.Reference

	util.CheckoutsTotal.Inc()
	s.Logger.Info("payment session initiated",
		zap.String("transaction_id", trx.ID),
		zap.String("reference", session.Reference))

	return &CheckoutResult{
		AuthorizationUrl: session.AuthorizationUrl,
		Reference:        session.Reference,
		Transactions:     []models.Transaction{trx},
	}, nil
}

// CheckoutCart settles a buyer's whole cart: one pending_payment
// transaction per distinct seller, one gateway session over the grand
// total. The session metadata carries every transaction id so the webhook
// can promote the whole group.
func (s *CheckoutService) CheckoutCart(ctx context.Context, buyerID, email string) (*CheckoutResult, error) {
	items, err := s.Carts.ItemsForBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, Invalid("cart is empty")
	}

	// Group per seller, preserving the order sellers first appear in.
	totals := make(map[string]float64)
	var sellers []string
	for _, item := range items {
		if item.SellerId == buyerID {
			return nil, Invalid("you cannot buy your own listing")
		}
		if _, seen := totals[item.SellerId]; !seen {
			sellers = append(sellers, item.SellerId)
		}
		totals[item.SellerId] += item.Price * float64(item.Quantity)
	}

	var transactions []models.Transaction
	var ids []string
	var grandTotal float64
	for _, sellerID := range sellers {
		trx := models.Transaction{
			ID:       uuid.NewString(),
			BuyerId:  buyerID,
			SellerId: sellerID,
			Amount:   totals[sellerID],
			Status:   models.StatusPendingPayment,
		}
		if err := s.Transactions.Create(ctx, &trx); err != nil {
			return nil, err
		}
		transactions = append(transactions, trx)
		ids = append(ids, trx.ID)
		grandTotal += trx.Amount
	}

	metadata := map[string]interface{}{
		"cart_tx_ids": ids,
		"buyer_id":    buyerID,
	}
	session, err := s.Gateway.InitializeSession(ctx, ToKobo(grandTotal), email, metadata)
	if err != nil {
		// The rows stay pending_payment without a reference; the sweeper
		// cancels them once the abandonment window passes.
		return nil, Dependency(400, "unable to initiate payment: %v", err)
	}

	if _, err := s.Transactions.UpdateMany(ctx, ids,
		map[string]interface{}{"paystack_reference": session.Reference},
		models.StatusPendingPayment); err != nil {
		return nil, err
	}
	for i := range transactions {
		transactions[i].PaystackReference = session.Reference
	}

	util.CheckoutsTotal.Inc()
	s.Logger.Info("cart payment session initiated",
		zap.String("buyer_id", buyerID),
		zap.Int("sellers", len(sellers)),
		zap.String("reference", session.Reference))

	return &CheckoutResult{
		AuthorizationUrl: session.AuthorizationUrl,
		Reference:        session.Reference,
		Transactions:     transactions,
	}, nil
}
