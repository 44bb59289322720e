package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"escrow-service/internal/models"
	"escrow-service/internal/paystack"
)

// memoryTransactionStore mirrors the guarded-update semantics of the real
// store so the state machine can be exercised without a database.
type memoryTransactionStore struct {
	mu   sync.Mutex
	rows map[string]*models.Transaction
}

func newMemoryTransactionStore() *memoryTransactionStore {
	return &memoryTransactionStore{rows: make(map[string]*models.Transaction)}
}

func (s *memoryTransactionStore) put(trx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trx.CreatedAt.IsZero() {
		trx.CreatedAt = time.Now()
	}
	s.rows[trx.ID] = &trx
}

func (s *memoryTransactionStore) Create(ctx context.Context, trx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[trx.ID]; exists {
		return fmt.Errorf("duplicate id %s", trx.ID)
	}
	cp := *trx
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.rows[trx.ID] = &cp
	return nil
}

func (s *memoryTransactionStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *trx
	return &cp, nil
}

func statusMatches(status models.TransactionStatus, expected []models.TransactionStatus) bool {
	if len(expected) == 0 {
		return true
	}
	for _, e := range expected {
		if status == e {
			return true
		}
	}
	return false
}

func applyPatch(trx *models.Transaction, patch map[string]interface{}) {
	if v, ok := patch["status"]; ok {
		trx.Status = v.(models.TransactionStatus)
	}
	if v, ok := patch["paystack_reference"]; ok {
		trx.PaystackReference = v.(string)
	}
}

func (s *memoryTransactionStore) Update(ctx context.Context, id string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || !statusMatches(trx.Status, expected) {
		return 0, nil
	}
	applyPatch(trx, patch)
	return 1, nil
}

func (s *memoryTransactionStore) UpdateMany(ctx context.Context, ids []string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows int64
	for _, id := range ids {
		trx, ok := s.rows[id]
		if !ok || !statusMatches(trx.Status, expected) {
			continue
		}
		applyPatch(trx, patch)
		rows++
	}
	return rows, nil
}

func (s *memoryTransactionStore) MarkPaid(ctx context.Context, ids []string, reference string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows int64
	for _, id := range ids {
		trx, ok := s.rows[id]
		if !ok || trx.Status != models.StatusPendingPayment {
			continue
		}
		trx.Status = models.StatusPending
		trx.PaystackReference = reference
		rows++
	}
	return rows, nil
}

func (s *memoryTransactionStore) SetBuyerConfirmed(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || trx.Status != models.StatusPending || trx.BuyerConfirmed {
		return 0, nil
	}
	trx.BuyerConfirmed = true
	return 1, nil
}

func (s *memoryTransactionStore) SetSellerConfirmed(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || trx.Status != models.StatusPending || trx.SellerConfirmed {
		return 0, nil
	}
	trx.SellerConfirmed = true
	return 1, nil
}

func (s *memoryTransactionStore) ClaimRelease(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || trx.Status != models.StatusPending || !trx.BuyerConfirmed || !trx.SellerConfirmed || trx.ReleaseClaimed {
		return false, nil
	}
	trx.ReleaseClaimed = true
	return true, nil
}

func (s *memoryTransactionStore) ResetReleaseClaim(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trx, ok := s.rows[id]; ok {
		trx.ReleaseClaimed = false
	}
	return nil
}

func (s *memoryTransactionStore) Complete(ctx context.Context, id string, platformFee, paymentFee float64, releasedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || trx.Status != models.StatusPending || !trx.BuyerConfirmed || !trx.SellerConfirmed {
		return 0, nil
	}
	trx.Status = models.StatusCompleted
	trx.PlatformFee = platformFee
	trx.PaymentFee = paymentFee
	at := releasedAt
	trx.ReleasedAt = &at
	return 1, nil
}

func (s *memoryTransactionStore) FindStalePendingPayment(ctx context.Context, before time.Time) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, trx := range s.rows {
		if trx.Status == models.StatusPendingPayment && trx.CreatedAt.Before(before) {
			out = append(out, *trx)
		}
	}
	return out, nil
}

func (s *memoryTransactionStore) FindReleasable(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, trx := range s.rows {
		if trx.Status == models.StatusPending && trx.BuyerConfirmed && trx.SellerConfirmed && !trx.ReleaseClaimed {
			out = append(out, id)
		}
	}
	return out, nil
}

type memoryCartStore struct {
	mu      sync.Mutex
	items   map[string][]models.CartItem
	cleared []string
}

func newMemoryCartStore() *memoryCartStore {
	return &memoryCartStore{items: make(map[string][]models.CartItem)}
}

func (s *memoryCartStore) ItemsForBuyer(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[buyerID], nil
}

func (s *memoryCartStore) ClearForBuyer(ctx context.Context, buyerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, buyerID)
	s.cleared = append(s.cleared, buyerID)
	return nil
}

type memoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.SellerProfile
}

func newMemoryProfileStore() *memoryProfileStore {
	return &memoryProfileStore{profiles: make(map[string]*models.SellerProfile)}
}

func (s *memoryProfileStore) Get(ctx context.Context, userID string) (*models.SellerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memoryProfileStore) Upsert(ctx context.Context, profile *models.SellerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[profile.UserId] = &cp
	return nil
}

// fakeGateway records calls and returns canned responses; individual
// operations can be failed by setting the matching error.
type fakeGateway struct {
	mu sync.Mutex

	sessions       []map[string]interface{}
	sessionAmounts []int64
	sessionErr     error

	transfers    []fakeTransferCall
	transferErr  error
	recipientErr error

	verifyStatus map[string]string
	verifyErr    error
}

type fakeTransferCall struct {
	AmountKobo    int64
	RecipientCode string
	TransactionID string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{verifyStatus: make(map[string]string)}
}

func (g *fakeGateway) InitializeSession(ctx context.Context, amountKobo int64, email string, metadata map[string]interface{}) (*paystack.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.sessions = append(g.sessions, metadata)
	g.sessionAmounts = append(g.sessionAmounts, amountKobo)
	return &paystack.Session{
		AuthorizationUrl: "https://checkout.test/session",
		AccessCode:       "ac_test",
		Reference:        fmt.Sprintf("ref_%d", len(g.sessions)),
	}, nil
}

func (g *fakeGateway) Transfer(ctx context.Context, amountKobo int64, recipientCode, reason, transactionID string) (*paystack.Transfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	g.transfers = append(g.transfers, fakeTransferCall{
		AmountKobo:    amountKobo,
		RecipientCode: recipientCode,
		TransactionID: transactionID,
	})
	return &paystack.Transfer{
		Status:       "success",
		Reference:    transactionID + "_test",
		TransferCode: "TRF_test",
	}, nil
}

func (g *fakeGateway) CreateRecipient(ctx context.Context, details paystack.AccountDetails) (string, error) {
	if g.recipientErr != nil {
		return "", g.recipientErr
	}
	return "RCP_" + details.AccountNumber, nil
}

func (g *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.ChargeStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	status, ok := g.verifyStatus[reference]
	if !ok {
		status = "abandoned"
	}
	return &paystack.ChargeStatus{Status: status, Reference: reference}, nil
}

type recordedEvent struct {
	Type          string
	TransactionID string
	Reference     string
	IDs           []string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) record(e recordedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *fakePublisher) PaymentConfirmed(ctx context.Context, transactionIDs []string, reference string) error {
	p.record(recordedEvent{Type: "payment_confirmed", IDs: transactionIDs, Reference: reference})
	return nil
}

func (p *fakePublisher) EscrowCompleted(ctx context.Context, trx *models.Transaction) error {
	p.record(recordedEvent{Type: "completed", TransactionID: trx.ID})
	return nil
}

func (p *fakePublisher) TransactionCancelled(ctx context.Context, trx *models.Transaction) error {
	p.record(recordedEvent{Type: "cancelled", TransactionID: trx.ID})
	return nil
}

func (p *fakePublisher) TransactionRefunded(ctx context.Context, trx *models.Transaction) error {
	p.record(recordedEvent{Type: "refunded", TransactionID: trx.ID})
	return nil
}

type fakeEnqueuer struct {
	mu  sync.Mutex
	ids []string
}

func (e *fakeEnqueuer) EnqueueRelease(transactionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, transactionID)
	return nil
}
