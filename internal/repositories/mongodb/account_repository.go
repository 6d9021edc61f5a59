package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure AccountRepository implements the interface
var _ repositories.AccountRepository = (*AccountRepository)(nil)

// atomicUpdateAttempts bounds how often AtomicUpdate retries after losing the
// version race before surfacing ErrConflict.
const atomicUpdateAttempts = 5

// AccountRepository handles MongoDB operations for Account
type AccountRepository struct {
	collection *mongo.Collection
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		collection: db.Collection("accounts"),
	}
}

// EnsureIndexes creates the unique phone index.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	account.ID = primitive.NewObjectID()
	account.Version = 1
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	if account.Transactions == nil {
		account.Transactions = []models.Transaction{}
	}
	_, err := r.collection.InsertOne(ctx, account)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateKey
	}
	return err
}

// FindByID finds an account by ID
func (r *AccountRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var account models.Account
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByPhone finds an account by phone number
func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	var account models.Account
	err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AtomicUpdate applies mutate under optimistic locking on the account's
// version field. The replace only matches when the version is unchanged
// since the read, so a lost race just reloads and tries again.
func (r *AccountRepository) AtomicUpdate(ctx context.Context, id primitive.ObjectID, mutate func(*models.Account) error) (*models.Account, error) {
	for attempt := 0; attempt < atomicUpdateAttempts; attempt++ {
		account, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := mutate(account); err != nil {
			return nil, err
		}

		previous := account.Version
		account.Version++
		account.UpdatedAt = time.Now()

		res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": id, "version": previous}, account)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return account, nil
		}
		// Another writer bumped the version first; retry with fresh state.
	}
	return nil, repositories.ErrConflict
}
