package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when a unique constraint (phone,
	// idempotency key) is violated on insert.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConflict is returned by AtomicUpdate when concurrent writers kept
	// winning for the whole retry budget.
	ErrConflict = errors.New("concurrent update conflict")
)

// AccountRepository defines the interface for account storage. Balances and
// the transaction log are only ever mutated through AtomicUpdate.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	FindByPhone(ctx context.Context, phone string) (*models.Account, error)

	// AtomicUpdate loads the account, applies mutate to a private copy and
	// persists the result only if no concurrent write happened in between,
	// retrying a bounded number of times before giving up with ErrConflict.
	// An error returned by mutate aborts the update without retrying and is
	// passed through unchanged; the stored account is not touched.
	AtomicUpdate(ctx context.Context, id primitive.ObjectID, mutate func(*models.Account) error) (*models.Account, error)
}

// PurchaseRepository defines the interface for purchase request storage.
type PurchaseRepository interface {
	Create(ctx context.Context, request *models.PurchaseRequest) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.PurchaseRequest, error)
	FindByAccountID(ctx context.Context, accountID primitive.ObjectID) ([]*models.PurchaseRequest, error)

	// TransitionState moves the request identified by key from `from` to
	// `to` as a single conditional write. It returns false when the request
	// was no longer in `from` (which is how concurrent transitions lose) or
	// when the state machine does not permit the transition.
	TransitionState(ctx context.Context, key string, from, to models.PurchaseState, reason string) (bool, error)

	// FindStale returns requests sitting in one of the given states since
	// before the cutoff. Used by the staleness sweep.
	FindStale(ctx context.Context, states []models.PurchaseState, cutoff time.Time) ([]*models.PurchaseRequest, error)
}
