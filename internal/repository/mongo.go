package repository

import (
	"context"

	mongoInfra "github.com/RishiKendai/dupcheck/internal/infra/mongo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	db *mongo.Database
}

func NewMongoRepository(client *mongoInfra.Client) *MongoRepository {
	return &MongoRepository{
		db: client.Database,
	}
}

func (r *MongoRepository) ReplaceOne(ctx context.Context, collection string, filter, document interface{}, opts ...*options.ReplaceOptions) error {
	_, err := r.db.Collection(collection).ReplaceOne(ctx, filter, document, opts...)
	return err
}

func (r *MongoRepository) FindOne(ctx context.Context, collection string, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return r.db.Collection(collection).FindOne(ctx, filter, opts...)
}

