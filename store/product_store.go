package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"go-freshmart/models"
)

// MongoProductStore mutates product stock counters. Decrements are guarded
// server-side so stock can never go negative, even under concurrent orders
// for the same product.
type MongoProductStore struct {
	collection *mongo.Collection
}

func NewMongoProductStore(m *Mongo) *MongoProductStore {
	return &MongoProductStore{collection: m.database.Collection("products")}
}

func (s *MongoProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// AdjustStock applies a single atomic $inc to the stock counter. For a
// negative delta the filter requires enough stock to remain non-negative;
// a filtered miss on an existing product reports ErrInsufficientStock.
func (s *MongoProductStore) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["count_in_stock"] = bson.M{"$gte": -delta}
	}
	res, err := s.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"count_in_stock": delta},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, ferr := s.FindByID(ctx, id); ferr != nil {
			return ferr
		}
		return ErrInsufficientStock
	}
	return nil
}
