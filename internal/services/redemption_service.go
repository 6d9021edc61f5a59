package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure RedemptionServiceImpl implements RedemptionService
var _ RedemptionService = (*RedemptionServiceImpl)(nil)

// RedeemResult carries the balances after a successful redemption.
type RedeemResult struct {
	Points        int             `json:"points"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
}

type RedemptionServiceImpl struct {
	accountRepo repositories.AccountRepository
	loyalty     config.LoyaltyConfig
}

func NewRedemptionService(accountRepo repositories.AccountRepository, cfg *config.Config) *RedemptionServiceImpl {
	return &RedemptionServiceImpl{
		accountRepo: accountRepo,
		loyalty:     cfg.Loyalty,
	}
}

// Redeem converts exactly one block of points into wallet credit. The
// threshold check runs inside the atomic update, so of two concurrent calls
// against the same block exactly one succeeds. Callers redeem further blocks
// by calling again.
func (s *RedemptionServiceImpl) Redeem(ctx context.Context, accountID primitive.ObjectID) (*RedeemResult, error) {
	threshold := s.loyalty.RedeemThreshold
	payout := decimal.NewFromInt(int64(s.loyalty.RedeemPayout))

	updated, err := s.accountRepo.AtomicUpdate(ctx, accountID, func(account *models.Account) error {
		if account.Points < threshold {
			return ErrInsufficientPoints
		}
		account.Points -= threshold
		account.WalletBalance = account.WalletBalance.Add(payout)
		account.Transactions = append(account.Transactions, models.Transaction{
			Kind:    models.TransactionRedemption,
			Amount:  payout,
			Date:    time.Now(),
			Details: fmt.Sprintf("Redeemed %d points for KSH %s", threshold, payout.String()),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	slog.Info("Points redeemed",
		"accountId", accountID.Hex(),
		"points", updated.Points,
		"walletBalance", updated.WalletBalance.String(),
	)

	return &RedeemResult{
		Points:        updated.Points,
		WalletBalance: updated.WalletBalance,
	}, nil
}
