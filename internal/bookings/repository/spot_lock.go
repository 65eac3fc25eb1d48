package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/pkg/config"
	"spotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const SpotLockCollectionName = "Spot_locks"

// SpotLockRepository provides advisory locks keyed by spot. A unique _id
// insert makes acquisition atomic; the expires_at TTL index reaps locks
// abandoned by crashed processes.
type SpotLockRepository interface {
	Acquire(ctx context.Context, spotID string) (*model.SpotLock, error)
	Release(ctx context.Context, lockID string) error
}

type mongoSpotLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSpotLockRepository(cfg *config.Config) SpotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSpotLockRepository{
		cfg:        cfg,
		collection: db.Collection(SpotLockCollectionName),
	}
}

func LockID(spotID string) string {
	return "spot_lock_" + spotID
}

func (r *mongoSpotLockRepository) Acquire(ctx context.Context, spotID string) (*model.SpotLock, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock := &model.SpotLock{
		ID:        LockID(spotID),
		ExpiresAt: now.Add(r.cfg.SpotLockTTL),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookingserrors.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire spot lock: %w", err)
	}

	return lock, nil
}

func (r *mongoSpotLockRepository) Release(ctx context.Context, lockID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	if err != nil {
		return fmt.Errorf("failed to release spot lock: %w", err)
	}
	return nil
}
