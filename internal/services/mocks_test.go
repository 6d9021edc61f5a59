package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories/memory"
	"github.com/Jengeka/bingwa-sokoni/pkg/daraja"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testConfig() *config.Config {
	return &config.Config{
		Daraja: config.DarajaConfig{TimeoutSeconds: 1},
		Notifier: config.NotifierConfig{
			SupportNumber: "254700000000",
			MockGateway:   true,
		},
		Loyalty: config.LoyaltyConfig{
			RedeemThreshold:   200,
			RedeemPayout:      40,
			PointsPerPurchase: 5,
		},
		Airtime: config.AirtimeConfig{MinAmount: 5, MaxAmount: 10000},
		Catalog: config.CatalogConfig{
			Version: "test",
			Bundles: map[string]int{"1gb-daily": 99, "5gb-monthly": 500},
		},
		Sweep: config.SweepConfig{StalenessWindowMinutes: 30, IntervalMinutes: 5},
	}
}

// mockGateway implements daraja.Gateway with scriptable outcomes.
type mockGateway struct {
	mu     sync.Mutex
	calls  []daraja.InitiateRequest
	err    error
	reject bool
	reason string
}

func (g *mockGateway) Initiate(_ context.Context, req daraja.InitiateRequest) (*daraja.InitiateResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	if g.reject {
		return &daraja.InitiateResponse{Accepted: false, Reason: g.reason}, nil
	}
	return &daraja.InitiateResponse{Accepted: true, GatewayRef: "MOCK-" + req.IdempotencyKey}, nil
}

func (g *mockGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// mockNotifier records sent messages.
type mockNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *mockNotifier) Send(_ context.Context, destination, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, destination+": "+message)
	return nil
}

// failingNotifier rejects every send.
type failingNotifier struct{}

func (failingNotifier) Send(context.Context, string, string) error {
	return fmt.Errorf("whatsapp gateway down")
}

// flakyAccountRepo wraps an AccountRepository and fails the next N atomic
// updates before delegating.
type flakyAccountRepo struct {
	repositories.AccountRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyAccountRepo) AtomicUpdate(ctx context.Context, id primitive.ObjectID, mutate func(*models.Account) error) (*models.Account, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return nil, fmt.Errorf("ledger store unavailable")
	}
	r.mu.Unlock()
	return r.AccountRepository.AtomicUpdate(ctx, id, mutate)
}

// racingPurchaseRepo advances a Created request to GatewayAccepted right
// after its first lookup, imitating the orchestrator's acceptance write
// landing between the reconciler's read and its conditional transition.
type racingPurchaseRepo struct {
	repositories.PurchaseRepository
	once sync.Once
}

func (r *racingPurchaseRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.PurchaseRequest, error) {
	request, err := r.PurchaseRepository.FindByIdempotencyKey(ctx, key)
	if err == nil && request.State == models.PurchaseCreated {
		r.once.Do(func() {
			_, _ = r.PurchaseRepository.TransitionState(ctx, key, models.PurchaseCreated, models.PurchaseGatewayAccepted, "")
		})
	}
	return request, err
}

var phoneSeq atomic.Int64

func seedAccount(t *testing.T, repo repositories.AccountRepository, points int) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:  "Wanjiku Test",
		Phone: fmt.Sprintf("2547%08d", phoneSeq.Add(1)),
	}
	require.NoError(t, repo.Create(context.Background(), account))

	if points > 0 {
		var err error
		account, err = repo.AtomicUpdate(context.Background(), account.ID, func(a *models.Account) error {
			a.Points = points
			return nil
		})
		require.NoError(t, err)
	}
	return account
}

func seedAcceptedPurchase(t *testing.T, repo repositories.PurchaseRepository, account *models.Account, key string) *models.PurchaseRequest {
	t.Helper()

	request := &models.PurchaseRequest{
		AccountID:      account.ID,
		IdempotencyKey: key,
		Product:        models.ProductAirtime,
		Amount:         decimal.NewFromInt(100),
		Details:        "Airtime purchase of KSH 100",
		Phone:          account.Phone,
		State:          models.PurchaseCreated,
	}
	require.NoError(t, repo.Create(context.Background(), request))

	changed, err := repo.TransitionState(context.Background(), key, models.PurchaseCreated, models.PurchaseGatewayAccepted, "")
	require.NoError(t, err)
	require.True(t, changed)

	request.State = models.PurchaseGatewayAccepted
	return request
}

func newMemoryRepos() (*memory.AccountRepository, *memory.PurchaseRepository) {
	return memory.NewAccountRepository(), memory.NewPurchaseRepository()
}
