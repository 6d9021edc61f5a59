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
	"github.com/Jengeka/bingwa-sokoni/pkg/daraja"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure PurchaseServiceImpl implements PurchaseService
var _ PurchaseService = (*PurchaseServiceImpl)(nil)

// InitiateResult reports that a purchase was initiated. The gateway confirms
// out of band, so the result deliberately says nothing about points or
// transactions: those exist only after the callback is reconciled.
type InitiateResult struct {
	IdempotencyKey string               `json:"idempotencyKey"`
	State          models.PurchaseState `json:"state"`
}

type PurchaseServiceImpl struct {
	accountRepo    repositories.AccountRepository
	purchaseRepo   repositories.PurchaseRepository
	gateway        daraja.Gateway
	validator      *PurchaseValidator
	gatewayTimeout time.Duration
}

func NewPurchaseService(accountRepo repositories.AccountRepository, purchaseRepo repositories.PurchaseRepository, gateway daraja.Gateway, validator *PurchaseValidator, cfg *config.Config) *PurchaseServiceImpl {
	timeout := time.Duration(cfg.Daraja.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PurchaseServiceImpl{
		accountRepo:    accountRepo,
		purchaseRepo:   purchaseRepo,
		gateway:        gateway,
		validator:      validator,
		gatewayTimeout: timeout,
	}
}

// InitiatePurchase validates the selection, persists a Created purchase
// request and asks the gateway to start the debit. The request is persisted
// before the external call so a crash mid-flight leaves an inspectable row.
// No ledger lock is held across the gateway round trip.
func (s *PurchaseServiceImpl) InitiatePurchase(ctx context.Context, accountID primitive.ObjectID, sel ProductSelection) (*InitiateResult, error) {
	priced, err := s.validator.Validate(sel)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}

	request := &models.PurchaseRequest{
		AccountID:      account.ID,
		IdempotencyKey: uuid.NewString(),
		Product:        priced.Product,
		Bundle:         priced.Bundle,
		Amount:         priced.Price,
		Details:        priced.Description,
		Phone:          account.Phone,
		State:          models.PurchaseCreated,
	}
	if err := s.purchaseRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to persist purchase request: %w", err)
	}

	slog.Info("Initiating purchase",
		"accountId", account.ID.Hex(),
		"idempotencyKey", request.IdempotencyKey,
		"product", request.Product,
		"amount", request.Amount.String(),
	)

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	resp, err := s.gateway.Initiate(gctx, daraja.InitiateRequest{
		IdempotencyKey: request.IdempotencyKey,
		Amount:         request.Amount,
		Phone:          request.Phone,
		Description:    request.Details,
	})
	if err != nil {
		s.failRequest(ctx, request, "gateway unreachable: "+err.Error())
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err)
	}
	if !resp.Accepted {
		s.failRequest(ctx, request, "gateway rejected: "+resp.Reason)
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, resp.Reason)
	}

	changed, err := s.purchaseRepo.TransitionState(ctx, request.IdempotencyKey, models.PurchaseCreated, models.PurchaseGatewayAccepted, "")
	if err != nil {
		return nil, fmt.Errorf("failed to record gateway acceptance: %w", err)
	}
	if !changed {
		// The callback can land before the accept response; the reconciler
		// already moved the request on. Nothing to do here.
		slog.Info("Purchase request advanced before acceptance was recorded", "idempotencyKey", request.IdempotencyKey)
	}

	return &InitiateResult{
		IdempotencyKey: request.IdempotencyKey,
		State:          models.PurchaseGatewayAccepted,
	}, nil
}

func (s *PurchaseServiceImpl) failRequest(ctx context.Context, request *models.PurchaseRequest, reason string) {
	if _, err := s.purchaseRepo.TransitionState(ctx, request.IdempotencyKey, models.PurchaseCreated, models.PurchaseFailed, reason); err != nil {
		slog.Error("Failed to mark purchase request as failed", "error", err, "idempotencyKey", request.IdempotencyKey)
	}
	slog.Warn("Purchase initiation failed", "idempotencyKey", request.IdempotencyKey, "reason", reason)
}
