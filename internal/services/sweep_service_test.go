package services

import (
	"context"
	"testing"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()

	// A zero staleness window makes every non-terminal request immediately
	// eligible, which avoids faking clocks.
	expiredCfg := testConfig()
	expiredCfg.Sweep.StalenessWindowMinutes = 0

	t.Run("expires requests still waiting on the gateway", func(t *testing.T) {
		accountRepo, purchaseRepo := newMemoryRepos()
		account := seedAccount(t, accountRepo, 0)

		created := &models.PurchaseRequest{
			AccountID:      account.ID,
			IdempotencyKey: "sweep-created",
			Product:        models.ProductAirtime,
			Amount:         decimal.NewFromInt(50),
			Phone:          account.Phone,
			State:          models.PurchaseCreated,
		}
		require.NoError(t, purchaseRepo.Create(ctx, created))
		seedAcceptedPurchase(t, purchaseRepo, account, "sweep-accepted")

		svc := NewSweepService(accountRepo, purchaseRepo, expiredCfg)
		swept, err := svc.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, swept)

		for _, key := range []string{"sweep-created", "sweep-accepted"} {
			request, err := purchaseRepo.FindByIdempotencyKey(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, models.PurchaseFailed, request.State)
			assert.Equal(t, "timed out waiting for gateway confirmation", request.FailureReason)
		}
	})

	t.Run("completes a credited request instead of failing it", func(t *testing.T) {
		accountRepo, purchaseRepo := newMemoryRepos()
		account := seedAccount(t, accountRepo, 0)
		seedAcceptedPurchase(t, purchaseRepo, account, "sweep-credited")

		// The ledger credit committed but the confirmation write was lost.
		_, err := accountRepo.AtomicUpdate(ctx, account.ID, func(a *models.Account) error {
			a.Points += 5
			a.Transactions = append(a.Transactions,
				models.Transaction{Kind: models.TransactionAirtime, Amount: decimal.NewFromInt(100), PurchaseRef: "sweep-credited"},
				models.Transaction{Kind: models.TransactionPoints, Amount: decimal.NewFromInt(5), PurchaseRef: "sweep-credited"},
			)
			return nil
		})
		require.NoError(t, err)

		svc := NewSweepService(accountRepo, purchaseRepo, expiredCfg)
		swept, err := svc.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, swept)

		request, err := purchaseRepo.FindByIdempotencyKey(ctx, "sweep-credited")
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseConfirmed, request.State)
		assert.Empty(t, request.FailureReason)
	})

	t.Run("leaves terminal requests alone", func(t *testing.T) {
		accountRepo, purchaseRepo := newMemoryRepos()
		account := seedAccount(t, accountRepo, 0)

		seedAcceptedPurchase(t, purchaseRepo, account, "sweep-confirmed")
		changed, err := purchaseRepo.TransitionState(ctx, "sweep-confirmed", models.PurchaseGatewayAccepted, models.PurchaseConfirmed, "")
		require.NoError(t, err)
		require.True(t, changed)

		svc := NewSweepService(accountRepo, purchaseRepo, expiredCfg)
		swept, err := svc.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, swept)

		request, err := purchaseRepo.FindByIdempotencyKey(ctx, "sweep-confirmed")
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseConfirmed, request.State)
	})

	t.Run("leaves requests inside the window alone", func(t *testing.T) {
		accountRepo, purchaseRepo := newMemoryRepos()
		account := seedAccount(t, accountRepo, 0)
		seedAcceptedPurchase(t, purchaseRepo, account, "sweep-fresh")

		svc := NewSweepService(accountRepo, purchaseRepo, testConfig())
		swept, err := svc.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, swept)

		request, err := purchaseRepo.FindByIdempotencyKey(ctx, "sweep-fresh")
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseGatewayAccepted, request.State)
	})
}
