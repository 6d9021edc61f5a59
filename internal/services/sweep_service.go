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
)

// SweepService reconciles purchase requests that exceeded the staleness
// window without reaching a terminal state. A request whose ledger credit
// already committed is completed to Confirmed; one with no committed credit
// is marked Failed. This is the only way a non-terminal request gets
// "cancelled"; in-flight ledger mutations are never interrupted.
type SweepService struct {
	accountRepo  repositories.AccountRepository
	purchaseRepo repositories.PurchaseRepository
	window       time.Duration
	interval     time.Duration
}

func NewSweepService(accountRepo repositories.AccountRepository, purchaseRepo repositories.PurchaseRepository, cfg *config.Config) *SweepService {
	return &SweepService{
		accountRepo:  accountRepo,
		purchaseRepo: purchaseRepo,
		window:       time.Duration(cfg.Sweep.StalenessWindowMinutes) * time.Minute,
		interval:     time.Duration(cfg.Sweep.IntervalMinutes) * time.Minute,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *SweepService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SweepOnce(ctx); err != nil {
					slog.Error("Stale purchase sweep failed", "error", err)
				}
			}
		}
	}()
}

// SweepOnce moves all requests older than the staleness window that are
// still waiting on the gateway to a terminal state. It returns how many it
// moved.
func (s *SweepService) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.window)
	stale, err := s.purchaseRepo.FindStale(ctx, []models.PurchaseState{models.PurchaseCreated, models.PurchaseGatewayAccepted}, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to scan for stale requests: %w", err)
	}

	swept := 0
	for _, request := range stale {
		credited, err := s.creditCommitted(ctx, request)
		if err != nil {
			slog.Error("Failed to check ledger for stale purchase request", "error", err, "idempotencyKey", request.IdempotencyKey)
			continue
		}

		// The credit landed but the confirmation write was lost; finish the
		// transition instead of failing a paid-for purchase.
		if credited {
			changed, err := s.purchaseRepo.TransitionState(ctx, request.IdempotencyKey, request.State, models.PurchaseConfirmed, "")
			if err != nil {
				slog.Error("Failed to complete credited purchase request", "error", err, "idempotencyKey", request.IdempotencyKey)
				continue
			}
			if changed {
				swept++
				slog.Info("Completed credited stale purchase request", "idempotencyKey", request.IdempotencyKey, "previousState", request.State)
			}
			continue
		}

		changed, err := s.purchaseRepo.TransitionState(ctx, request.IdempotencyKey, request.State, models.PurchaseFailed, "timed out waiting for gateway confirmation")
		if err != nil {
			slog.Error("Failed to expire stale purchase request", "error", err, "idempotencyKey", request.IdempotencyKey)
			continue
		}
		if changed {
			swept++
			slog.Info("Expired stale purchase request", "idempotencyKey", request.IdempotencyKey, "previousState", request.State)
		}
	}
	return swept, nil
}

// creditCommitted reports whether the request's ledger credit is already in
// the account's transaction log.
func (s *SweepService) creditCommitted(ctx context.Context, request *models.PurchaseRequest) (bool, error) {
	account, err := s.accountRepo.FindByID(ctx, request.AccountID)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return account.HasTransactionFor(request.IdempotencyKey), nil
}
