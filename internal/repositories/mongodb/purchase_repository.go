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

// Compile-time check to ensure PurchaseRepository implements the interface
var _ repositories.PurchaseRepository = (*PurchaseRepository)(nil)

// PurchaseRepository handles MongoDB operations for PurchaseRequest
type PurchaseRepository struct {
	collection *mongo.Collection
}

// NewPurchaseRepository creates a new PurchaseRepository
func NewPurchaseRepository(db *mongo.Database) *PurchaseRepository {
	return &PurchaseRepository{
		collection: db.Collection("purchase_requests"),
	}
}

// EnsureIndexes creates the unique idempotency key index and the sweep index.
func (r *PurchaseRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "state", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	})
	return err
}

// Create inserts a new purchase request
func (r *PurchaseRepository) Create(ctx context.Context, request *models.PurchaseRequest) error {
	request.ID = primitive.NewObjectID()
	if request.State == "" {
		request.State = models.PurchaseCreated
	}
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, request)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateKey
	}
	return err
}

// FindByIdempotencyKey finds a purchase request by its idempotency key
func (r *PurchaseRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.PurchaseRequest, error) {
	var request models.PurchaseRequest
	err := r.collection.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&request)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByAccountID finds purchase requests for an account, newest first
func (r *PurchaseRepository) FindByAccountID(ctx context.Context, accountID primitive.ObjectID) ([]*models.PurchaseRequest, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"accountId": accountID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*models.PurchaseRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// TransitionState performs a conditional state transition. The filter matches
// on the current state, so of two racing transitions exactly one sees
// MatchedCount == 1.
func (r *PurchaseRepository) TransitionState(ctx context.Context, key string, from, to models.PurchaseState, reason string) (bool, error) {
	if !models.IsValidTransition(from, to) {
		return false, nil
	}

	set := bson.M{"state": to, "updatedAt": time.Now()}
	if reason != "" {
		set["failureReason"] = reason
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"idempotencyKey": key, "state": from}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// FindStale finds requests stuck in one of the given states since before cutoff
func (r *PurchaseRepository) FindStale(ctx context.Context, states []models.PurchaseState, cutoff time.Time) ([]*models.PurchaseRequest, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"state":     bson.M{"$in": states},
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*models.PurchaseRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}
