package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PurchaseState is the lifecycle state of a purchase request.
type PurchaseState string

const (
	PurchaseCreated         PurchaseState = "CREATED"
	PurchaseGatewayAccepted PurchaseState = "GATEWAY_ACCEPTED"
	PurchaseConfirmed       PurchaseState = "CONFIRMED"
	PurchaseFailed          PurchaseState = "FAILED"
)

// Terminal reports whether no further transitions are permitted.
func (s PurchaseState) Terminal() bool {
	return s == PurchaseConfirmed || s == PurchaseFailed
}

// IsValidTransition checks if a state transition is allowed.
func IsValidTransition(from, to PurchaseState) bool {
	switch from {
	case PurchaseCreated:
		return to == PurchaseGatewayAccepted || to == PurchaseConfirmed || to == PurchaseFailed
	case PurchaseGatewayAccepted:
		return to == PurchaseConfirmed || to == PurchaseFailed
	default:
		// No transitions out of terminal states.
		return false
	}
}

// ProductKind identifies what a purchase buys.
type ProductKind string

const (
	ProductAirtime ProductKind = "airtime"
	ProductData    ProductKind = "data"
)

// PurchaseRequest tracks one purchase attempt from initiation through the
// gateway callback. The idempotency key is unique per attempt and is the
// handle the gateway uses when it reports the outcome. A request in a
// terminal state is never mutated again.
type PurchaseRequest struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AccountID      primitive.ObjectID `bson:"accountId" json:"accountId"`
	IdempotencyKey string             `bson:"idempotencyKey" json:"idempotencyKey"`
	Product        ProductKind        `bson:"product" json:"product"`
	Bundle         string             `bson:"bundle,omitempty" json:"bundle,omitempty"`
	Amount         decimal.Decimal    `bson:"amount" json:"amount"`
	Details        string             `bson:"details" json:"details"`
	Phone          string             `bson:"phone" json:"phone"`
	State          PurchaseState      `bson:"state" json:"state"`
	FailureReason  string             `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
