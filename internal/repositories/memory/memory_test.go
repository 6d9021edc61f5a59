package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create rejects duplicate phone", func(t *testing.T) {
		repo := NewAccountRepository()
		require.NoError(t, repo.Create(ctx, &models.Account{Name: "A", Phone: "254700000001"}))

		err := repo.Create(ctx, &models.Account{Name: "B", Phone: "254700000001"})
		assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

		existing, err := repo.FindByPhone(ctx, "254700000001")
		require.NoError(t, err)
		assert.Equal(t, "A", existing.Name)

		_, err = repo.FindByPhone(ctx, "254799999999")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("find by unknown id", func(t *testing.T) {
		repo := NewAccountRepository()
		_, err := repo.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("atomic update isolates concurrent increments", func(t *testing.T) {
		repo := NewAccountRepository()
		account := &models.Account{Name: "A", Phone: "254700000002"}
		require.NoError(t, repo.Create(ctx, account))

		const workers = 50
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AtomicUpdate(ctx, account.ID, func(a *models.Account) error {
					a.Points++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stored, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, workers, stored.Points)
		assert.Equal(t, int64(workers+1), stored.Version)
	})

	t.Run("mutation error leaves the stored account untouched", func(t *testing.T) {
		repo := NewAccountRepository()
		account := &models.Account{Name: "A", Phone: "254700000003"}
		require.NoError(t, repo.Create(ctx, account))

		sentinel := repositories.ErrConflict
		_, err := repo.AtomicUpdate(ctx, account.ID, func(a *models.Account) error {
			a.Points = 999
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		stored, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.Points)
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("returned accounts are copies", func(t *testing.T) {
		repo := NewAccountRepository()
		account := &models.Account{Name: "A", Phone: "254700000004"}
		require.NoError(t, repo.Create(ctx, account))

		first, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		first.Points = 500
		first.Transactions = append(first.Transactions, models.Transaction{Kind: models.TransactionPoints})

		stored, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.Points)
		assert.Empty(t, stored.Transactions)
	})
}

func TestPurchaseRepository(t *testing.T) {
	ctx := context.Background()

	newRequest := func(key string, state models.PurchaseState) *models.PurchaseRequest {
		return &models.PurchaseRequest{
			AccountID:      primitive.NewObjectID(),
			IdempotencyKey: key,
			Product:        models.ProductAirtime,
			Phone:          "254700000005",
			State:          state,
		}
	}

	t.Run("create rejects duplicate idempotency key", func(t *testing.T) {
		repo := NewPurchaseRepository()
		require.NoError(t, repo.Create(ctx, newRequest("k1", models.PurchaseCreated)))

		err := repo.Create(ctx, newRequest("k1", models.PurchaseCreated))
		assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
	})

	t.Run("transition applies only from the expected state", func(t *testing.T) {
		repo := NewPurchaseRepository()
		require.NoError(t, repo.Create(ctx, newRequest("k2", models.PurchaseCreated)))

		changed, err := repo.TransitionState(ctx, "k2", models.PurchaseCreated, models.PurchaseGatewayAccepted, "")
		require.NoError(t, err)
		assert.True(t, changed)

		// Same precondition again: the request has moved on.
		changed, err = repo.TransitionState(ctx, "k2", models.PurchaseCreated, models.PurchaseFailed, "late")
		require.NoError(t, err)
		assert.False(t, changed)

		stored, err := repo.FindByIdempotencyKey(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseGatewayAccepted, stored.State)
		assert.Empty(t, stored.FailureReason)
	})

	t.Run("transitions out of a terminal state are refused", func(t *testing.T) {
		repo := NewPurchaseRepository()
		require.NoError(t, repo.Create(ctx, newRequest("k3", models.PurchaseConfirmed)))

		changed, err := repo.TransitionState(ctx, "k3", models.PurchaseConfirmed, models.PurchaseFailed, "late failure")
		require.NoError(t, err)
		assert.False(t, changed)

		stored, err := repo.FindByIdempotencyKey(ctx, "k3")
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseConfirmed, stored.State)
	})

	t.Run("transition on unknown key is a no-op", func(t *testing.T) {
		repo := NewPurchaseRepository()
		changed, err := repo.TransitionState(ctx, "missing", models.PurchaseCreated, models.PurchaseFailed, "")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("find stale filters by state and age", func(t *testing.T) {
		repo := NewPurchaseRepository()
		require.NoError(t, repo.Create(ctx, newRequest("old-created", models.PurchaseCreated)))
		require.NoError(t, repo.Create(ctx, newRequest("old-confirmed", models.PurchaseConfirmed)))

		time.Sleep(5 * time.Millisecond)
		cutoff := time.Now()
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, repo.Create(ctx, newRequest("fresh-created", models.PurchaseCreated)))

		stale, err := repo.FindStale(ctx, []models.PurchaseState{models.PurchaseCreated, models.PurchaseGatewayAccepted}, cutoff)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, "old-created", stale[0].IdempotencyKey)
	})
}
