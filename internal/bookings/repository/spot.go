package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/pkg/config"
	"spotbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const SpotCollectionName = "Spots"

type SpotRepository interface {
	FindByID(ctx context.Context, id string) (*model.Spot, error)
}

type mongoSpotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSpotRepository(cfg *config.Config) SpotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSpotRepository{
		cfg:        cfg,
		collection: db.Collection(SpotCollectionName),
	}
}

func (r *mongoSpotRepository) FindByID(ctx context.Context, id string) (*model.Spot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var spot model.Spot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&spot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrSpotNotFound
		}
		return nil, fmt.Errorf("failed to find spot: %w", err)
	}

	return &spot, nil
}

func (r *mongoSpotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
