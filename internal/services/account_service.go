package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"github.com/Jengeka/bingwa-sokoni/pkg/notifier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure AccountServiceImpl implements AccountService
var _ AccountService = (*AccountServiceImpl)(nil)

type AccountServiceImpl struct {
	accountRepo   repositories.AccountRepository
	notifier      notifier.Notifier
	supportNumber string
}

func NewAccountService(accountRepo repositories.AccountRepository, n notifier.Notifier, cfg *config.Config) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo:   accountRepo,
		notifier:      n,
		supportNumber: cfg.Notifier.SupportNumber,
	}
}

// Register creates a new account with zero balances.
func (s *AccountServiceImpl) Register(ctx context.Context, name, phone string) (*models.Account, error) {
	if phone == "" {
		return nil, &ValidationError{Field: "phone", Reason: "must not be empty"}
	}
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	account := &models.Account{
		Name:  name,
		Phone: phone,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("Account registered", "accountId", account.ID.Hex(), "phone", phone)
	return account, nil
}

// GetAccount looks up an account by ID.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// GetTransactions returns the account's transaction log.
func (s *AccountServiceImpl) GetTransactions(ctx context.Context, id primitive.ObjectID) ([]models.Transaction, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return account.Transactions, nil
}

// RequestHelp forwards a support request to the WhatsApp support line.
// Delivery is best effort: a gateway failure is logged, not surfaced.
func (s *AccountServiceImpl) RequestHelp(ctx context.Context, phone, message string) error {
	if message == "" {
		return &ValidationError{Field: "message", Reason: "must not be empty"}
	}

	if err := s.notifier.Send(ctx, s.supportNumber, fmt.Sprintf("Help request from %s: %s", phone, message)); err != nil {
		slog.Warn("Help request notification failed", "error", err, "phone", phone)
	}
	return nil
}
