package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionKind identifies what a ledger entry records.
type TransactionKind string

const (
	TransactionAirtime    TransactionKind = "airtime"
	TransactionData       TransactionKind = "data"
	TransactionPoints     TransactionKind = "points"
	TransactionRedemption TransactionKind = "redemption"
)

// Transaction is one entry in an account's transaction log. The log is
// append-only: entries are never updated or removed once written.
type Transaction struct {
	Kind        TransactionKind `bson:"kind" json:"kind"`
	Amount      decimal.Decimal `bson:"amount" json:"amount"`
	Date        time.Time       `bson:"date" json:"date"`
	Details     string          `bson:"details" json:"details"`
	PurchaseRef string          `bson:"purchaseRef,omitempty" json:"purchaseRef,omitempty"`
}

// Account represents a subscriber account with its balance fields and
// embedded transaction log. All mutation goes through the account
// repository's atomic update; Version backs its optimistic locking.
type Account struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name          string             `bson:"name" json:"name"`
	Phone         string             `bson:"phone" json:"phone"`
	Points        int                `bson:"points" json:"points"`
	WalletBalance decimal.Decimal    `bson:"walletBalance" json:"walletBalance"`
	Transactions  []Transaction      `bson:"transactions" json:"transactions"`
	Version       int64              `bson:"version" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasTransactionFor reports whether the log already carries an entry for the
// given purchase reference. Used to keep replayed confirmations from
// crediting twice.
func (a *Account) HasTransactionFor(purchaseRef string) bool {
	if purchaseRef == "" {
		return false
	}
	for _, tx := range a.Transactions {
		if tx.PurchaseRef == purchaseRef {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the account, including the transaction log.
func (a *Account) Clone() *Account {
	cp := *a
	cp.Transactions = make([]Transaction, len(a.Transactions))
	copy(cp.Transactions, a.Transactions)
	return &cp
}
