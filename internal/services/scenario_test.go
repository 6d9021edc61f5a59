package services

import (
	"context"
	"testing"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises the whole purchase-to-redemption lifecycle against one account:
// initiation, gateway confirmation, reaching the redemption threshold and
// cashing points out into the wallet.
func TestPurchaseToRedemptionLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	accountRepo, purchaseRepo := newMemoryRepos()
	gateway := &mockGateway{}
	notifier := &mockNotifier{}

	catalog := NewCatalog(cfg)
	purchases := NewPurchaseService(accountRepo, purchaseRepo, gateway, NewPurchaseValidator(cfg, catalog), cfg)
	callbacks := NewCallbackService(accountRepo, purchaseRepo, notifier, cfg)
	redemptions := NewRedemptionService(accountRepo, cfg)

	account := seedAccount(t, accountRepo, 198)

	// Buy airtime. Nothing is credited while the gateway confirmation is
	// outstanding.
	initiated, err := purchases.InitiatePurchase(ctx, account.ID, ProductSelection{Product: models.ProductAirtime, Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseGatewayAccepted, initiated.State)

	pending, err := accountRepo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 198, pending.Points)
	assert.Empty(t, pending.Transactions)

	// The gateway confirms: the purchase lands in the ledger and the award
	// pushes the account over the redemption threshold.
	result, err := callbacks.HandleCallback(ctx, initiated.IdempotencyKey, OutcomeSuccess, "")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, 203, result.Points)
	assert.True(t, result.CanRedeem)

	request, err := purchaseRepo.FindByIdempotencyKey(ctx, initiated.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseConfirmed, request.State)

	// Crossing the threshold never auto-redeems; the account holder asks.
	credited, err := accountRepo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, credited.WalletBalance.IsZero())

	redeemed, err := redemptions.Redeem(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, redeemed.Points)
	assert.Equal(t, "40", redeemed.WalletBalance.String())

	_, err = redemptions.Redeem(ctx, account.ID)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	// The ledger holds the purchase, the points award and the redemption.
	final, err := accountRepo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, final.Transactions, 3)
	assert.Equal(t, models.TransactionAirtime, final.Transactions[0].Kind)
	assert.Equal(t, models.TransactionPoints, final.Transactions[1].Kind)
	assert.Equal(t, models.TransactionRedemption, final.Transactions[2].Kind)
	assert.Equal(t, initiated.IdempotencyKey, final.Transactions[0].PurchaseRef)
}
