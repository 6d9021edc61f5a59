// Package memory provides in-memory repository implementations used by tests
// and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.AccountRepository = (*AccountRepository)(nil)
var _ repositories.PurchaseRepository = (*PurchaseRepository)(nil)

// AccountRepository is an in-memory implementation of
// repositories.AccountRepository. The store mutex makes every AtomicUpdate
// fully isolated, so ErrConflict never occurs here.
type AccountRepository struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]*models.Account
	byPhone  map[string]primitive.ObjectID
}

// NewAccountRepository creates an empty in-memory account store.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[primitive.ObjectID]*models.Account),
		byPhone:  make(map[string]primitive.ObjectID),
	}
}

func (r *AccountRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPhone[account.Phone]; exists {
		return repositories.ErrDuplicateKey
	}

	account.ID = primitive.NewObjectID()
	account.Version = 1
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	if account.Transactions == nil {
		account.Transactions = []models.Transaction{}
	}

	r.accounts[account.ID] = account.Clone()
	r.byPhone[account.Phone] = account.ID
	return nil
}

func (r *AccountRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return account.Clone(), nil
}

func (r *AccountRepository) FindByPhone(_ context.Context, phone string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byPhone[phone]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.accounts[id].Clone(), nil
}

func (r *AccountRepository) AtomicUpdate(_ context.Context, id primitive.ObjectID, mutate func(*models.Account) error) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	account := stored.Clone()
	if err := mutate(account); err != nil {
		return nil, err
	}

	account.Version++
	account.UpdatedAt = time.Now()
	r.accounts[id] = account.Clone()
	return account, nil
}

// PurchaseRepository is an in-memory implementation of
// repositories.PurchaseRepository.
type PurchaseRepository struct {
	mu    sync.Mutex
	byKey map[string]*models.PurchaseRequest
}

// NewPurchaseRepository creates an empty in-memory purchase request store.
func NewPurchaseRepository() *PurchaseRepository {
	return &PurchaseRepository{
		byKey: make(map[string]*models.PurchaseRequest),
	}
}

func (r *PurchaseRepository) Create(_ context.Context, request *models.PurchaseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[request.IdempotencyKey]; exists {
		return repositories.ErrDuplicateKey
	}

	request.ID = primitive.NewObjectID()
	if request.State == "" {
		request.State = models.PurchaseCreated
	}
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()

	cp := *request
	r.byKey[request.IdempotencyKey] = &cp
	return nil
}

func (r *PurchaseRepository) FindByIdempotencyKey(_ context.Context, key string) (*models.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, ok := r.byKey[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *request
	return &cp, nil
}

func (r *PurchaseRepository) FindByAccountID(_ context.Context, accountID primitive.ObjectID) ([]*models.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var requests []*models.PurchaseRequest
	for _, request := range r.byKey {
		if request.AccountID == accountID {
			cp := *request
			requests = append(requests, &cp)
		}
	}
	return requests, nil
}

func (r *PurchaseRepository) TransitionState(_ context.Context, key string, from, to models.PurchaseState, reason string) (bool, error) {
	if !models.IsValidTransition(from, to) {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	request, ok := r.byKey[key]
	if !ok || request.State != from {
		return false, nil
	}

	request.State = to
	if reason != "" {
		request.FailureReason = reason
	}
	request.UpdatedAt = time.Now()
	return true, nil
}

func (r *PurchaseRepository) FindStale(_ context.Context, states []models.PurchaseState, cutoff time.Time) ([]*models.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var requests []*models.PurchaseRequest
	for _, request := range r.byKey {
		if !request.CreatedAt.Before(cutoff) {
			continue
		}
		for _, state := range states {
			if request.State == state {
				cp := *request
				requests = append(requests, &cp)
				break
			}
		}
	}
	return requests, nil
}
