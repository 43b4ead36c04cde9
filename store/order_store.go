package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-freshmart/models"
)

// MongoOrderStore persists orders in the "orders" collection. Every state
// transition is a single conditional update so that exactly one of two
// racing writers wins; the loser observes ErrConflict instead of silently
// overwriting payment metadata.
type MongoOrderStore struct {
	collection *mongo.Collection
}

func NewMongoOrderStore(m *Mongo) *MongoOrderStore {
	return &MongoOrderStore{collection: m.database.Collection("orders")}
}

func (s *MongoOrderStore) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.CreatedAt = time.Now().UTC()
	res, err := s.collection.InsertOne(ctx, order)
	if err != nil {
		return nil, err
	}
	order.ID = res.InsertedID.(primitive.ObjectID)
	return order, nil
}

func (s *MongoOrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoOrderStore) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

func (s *MongoOrderStore) FindAll(ctx context.Context) ([]models.Order, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoOrderStore) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkPaid sets the paid flags and payment result, but only while the order
// is still unpaid and not canceled.
func (s *MongoOrderStore) MarkPaid(ctx context.Context, id primitive.ObjectID, result *models.PaymentResult, paidAt time.Time) (*models.Order, error) {
	filter := bson.M{"_id": id, "is_paid": false, "is_canceled": false}
	update := bson.M{"$set": bson.M{
		"is_paid":        true,
		"paid_at":        paidAt,
		"payment_result": result,
	}}
	return s.conditionalUpdate(ctx, id, filter, update)
}

// MarkDelivered requires the order to be paid and not yet delivered.
func (s *MongoOrderStore) MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, error) {
	filter := bson.M{"_id": id, "is_paid": true, "is_delivered": false}
	update := bson.M{"$set": bson.M{
		"is_delivered": true,
		"delivered_at": deliveredAt,
	}}
	return s.conditionalUpdate(ctx, id, filter, update)
}

// MarkCanceled requires the order to be neither paid, delivered nor
// already canceled.
func (s *MongoOrderStore) MarkCanceled(ctx context.Context, id primitive.ObjectID, canceledAt time.Time) (*models.Order, error) {
	filter := bson.M{"_id": id, "is_paid": false, "is_delivered": false, "is_canceled": false}
	update := bson.M{"$set": bson.M{
		"is_canceled": true,
		"canceled_at": canceledAt,
	}}
	return s.conditionalUpdate(ctx, id, filter, update)
}

func (s *MongoOrderStore) conditionalUpdate(ctx context.Context, id primitive.ObjectID, filter, update bson.M) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish a missing order from a lost race / wrong state.
		if _, ferr := s.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
