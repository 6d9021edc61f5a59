package services

import (
	"context"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PurchaseService drives purchase initiation against the payment gateway.
// It never applies ledger effects; those belong to the CallbackService.
type PurchaseService interface {
	InitiatePurchase(ctx context.Context, accountID primitive.ObjectID, sel ProductSelection) (*InitiateResult, error)
}

// CallbackService reconciles asynchronous gateway callbacks with pending
// purchase requests and applies ledger effects exactly once per request.
type CallbackService interface {
	HandleCallback(ctx context.Context, reference string, outcome CallbackOutcome, reason string) (*CallbackResult, error)
}

// RedemptionService converts accumulated points into wallet credit.
type RedemptionService interface {
	Redeem(ctx context.Context, accountID primitive.ObjectID) (*RedeemResult, error)
}

// AccountService covers registration, lookups and the support channel.
type AccountService interface {
	Register(ctx context.Context, name, phone string) (*models.Account, error)
	GetAccount(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	GetTransactions(ctx context.Context, id primitive.ObjectID) ([]models.Transaction, error)
	RequestHelp(ctx context.Context, phone, message string) error
}
