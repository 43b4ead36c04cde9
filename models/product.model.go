package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the catalog entity as far as order processing is concerned:
// the stock counter is decremented on order creation and restored on
// cancellation. Catalog lifecycle (create/update/delete) lives elsewhere.
type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Image        string             `bson:"image" json:"image"`
	Price        float64            `bson:"price" json:"price"`
	CountInStock int                `bson:"count_in_stock" json:"countInStock"`
}
