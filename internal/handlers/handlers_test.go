package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"escrow-service/internal/models"
	"escrow-service/internal/paystack"
	"escrow-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubTransactionStore gives handler tests the same guarded-update contract
// the real store provides, over an in-memory map.
type stubTransactionStore struct {
	mu   sync.Mutex
	rows map[string]*models.Transaction
}

func newStubTransactionStore() *stubTransactionStore {
	return &stubTransactionStore{rows: make(map[string]*models.Transaction)}
}

func (s *stubTransactionStore) put(trx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[trx.ID] = &trx
}

func (s *stubTransactionStore) Create(ctx context.Context, trx *models.Transaction) error {
	s.put(*trx)
	return nil
}

func (s *stubTransactionStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *trx
	return &cp, nil
}

func (s *stubTransactionStore) matches(status models.TransactionStatus, expected []models.TransactionStatus) bool {
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

func (s *stubTransactionStore) Update(ctx context.Context, id string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || !s.matches(trx.Status, expected) {
		return 0, nil
	}
	if v, ok := patch["status"]; ok {
		trx.Status = v.(models.TransactionStatus)
	}
	return 1, nil
}

func (s *stubTransactionStore) UpdateMany(ctx context.Context, ids []string, patch map[string]interface{}, expected ...models.TransactionStatus) (int64, error) {
	var rows int64
	for _, id := range ids {
		n, _ := s.Update(ctx, id, patch, expected...)
		rows += n
	}
	return rows, nil
}

func (s *stubTransactionStore) MarkPaid(ctx context.Context, ids []string, reference string) (int64, error) {
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

func (s *stubTransactionStore) SetBuyerConfirmed(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || trx.Status != models.StatusPending || trx.BuyerConfirmed {
		return 0, nil
	}
	trx.BuyerConfirmed = true
	return 1, nil
}

func (s *stubTransactionStore) SetSellerConfirmed(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || trx.Status != models.StatusPending || trx.SellerConfirmed {
		return 0, nil
	}
	trx.SellerConfirmed = true
	return 1, nil
}

func (s *stubTransactionStore) ClaimRelease(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trx, ok := s.rows[id]
	if !ok || trx.Status != models.StatusPending || !trx.BuyerConfirmed || !trx.SellerConfirmed || trx.ReleaseClaimed {
		return false, nil
	}
	trx.ReleaseClaimed = true
	return true, nil
}

func (s *stubTransactionStore) ResetReleaseClaim(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trx, ok := s.rows[id]; ok {
		trx.ReleaseClaimed = false
	}
	return nil
}

func (s *stubTransactionStore) Complete(ctx context.Context, id string, platformFee, paymentFee float64, releasedAt time.Time) (int64, error) {
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

func (s *stubTransactionStore) FindStalePendingPayment(ctx context.Context, before time.Time) ([]models.Transaction, error) {
	return nil, nil
}

func (s *stubTransactionStore) FindReleasable(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *stubTransactionStore) ListByUser(ctx context.Context, userID, role string, page, limit int) ([]models.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, trx := range s.rows {
		switch role {
		case "buyer":
			if trx.BuyerId != userID {
				continue
			}
		case "seller":
			if trx.SellerId != userID {
				continue
			}
		default:
			if trx.BuyerId != userID && trx.SellerId != userID {
				continue
			}
		}
		out = append(out, *trx)
	}
	return out, int64(len(out)), nil
}

type stubCartStore struct {
	mu      sync.Mutex
	cleared []string
}

func (s *stubCartStore) ItemsForBuyer(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	return nil, nil
}

func (s *stubCartStore) ClearForBuyer(ctx context.Context, buyerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, buyerID)
	return nil
}

type stubProfileStore struct {
	profiles map[string]*models.SellerProfile
}

func (s *stubProfileStore) Get(ctx context.Context, userID string) (*models.SellerProfile, error) {
	if p, ok := s.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProfileStore) Upsert(ctx context.Context, profile *models.SellerProfile) error {
	if s.profiles == nil {
		s.profiles = make(map[string]*models.SellerProfile)
	}
	cp := *profile
	s.profiles[profile.UserId] = &cp
	return nil
}

type stubGateway struct{}

func (stubGateway) InitializeSession(ctx context.Context, amountKobo int64, email string, metadata map[string]interface{}) (*paystack.Session, error) {
	return &paystack.Session{AuthorizationUrl: "https://checkout.test", Reference: "ref_test"}, nil
}

func (stubGateway) Transfer(ctx context.Context, amountKobo int64, recipientCode, reason, transactionID string) (*paystack.Transfer, error) {
	return &paystack.Transfer{Status: "success", TransferCode: "TRF_test"}, nil
}

func (stubGateway) CreateRecipient(ctx context.Context, details paystack.AccountDetails) (string, error) {
	return "RCP_test", nil
}

func (stubGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.ChargeStatus, error) {
	return &paystack.ChargeStatus{Status: "success", Reference: reference}, nil
}

type stubDedup struct {
	mu     sync.Mutex
	marked map[string]bool
	forgot []string
}

func newStubDedup() *stubDedup {
	return &stubDedup{marked: make(map[string]bool)}
}

func (d *stubDedup) MarkProcessed(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.marked[reference] {
		return false, nil
	}
	d.marked[reference] = true
	return true, nil
}

func (d *stubDedup) Forget(ctx context.Context, reference string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.marked, reference)
	d.forgot = append(d.forgot, reference)
	return nil
}

func newTestEscrowService(store *stubTransactionStore, carts *stubCartStore) *services.EscrowService {
	return services.NewEscrowService(store, carts, &stubProfileStore{}, nil, stubGateway{}, nil, 0.03)
}
