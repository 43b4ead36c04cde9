package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment methods a customer can choose at checkout. The method decides
// which confirmation path is allowed to mark the order paid later.
const (
	PaymentMethodPayPal       = "PayPal"
	PaymentMethodPaystack     = "Paystack"
	PaymentMethodCreditCard   = "CreditCard"
	PaymentMethodBankTransfer = "BankTransfer"
)

// OrderItem is a snapshot of a product taken at order-creation time.
// Catalog changes after checkout never alter a placed order.
type OrderItem struct {
	Name    string             `bson:"name" json:"name"`
	Qty     int                `bson:"qty" json:"qty"`
	Image   string             `bson:"image" json:"image"`
	Price   float64            `bson:"price" json:"price"`
	Product primitive.ObjectID `bson:"product" json:"product"`
}

// ShippingAddress holds the delivery details collected at checkout.
type ShippingAddress struct {
	FullName    string `bson:"full_name" json:"fullName"`
	PhoneNumber string `bson:"phone_number" json:"phoneNumber"`
	Address     string `bson:"address" json:"address"`
	City        string `bson:"city" json:"city"`
	PostalCode  string `bson:"postal_code" json:"postalCode"`
	Country     string `bson:"country" json:"country"`
}

// PaymentResult records the gateway's confirmation of a payment. It is
// populated exactly once, when the order transitions to paid.
type PaymentResult struct {
	ID         string  `bson:"id,omitempty" json:"id,omitempty"`
	Status     string  `bson:"status,omitempty" json:"status,omitempty"`
	UpdateTime string  `bson:"update_time,omitempty" json:"update_time,omitempty"`
	Email      string  `bson:"email_address,omitempty" json:"email_address,omitempty"`
	Channel    string  `bson:"channel,omitempty" json:"channel,omitempty"`
	Currency   string  `bson:"currency,omitempty" json:"currency,omitempty"`
	Amount     float64 `bson:"amount,omitempty" json:"amount,omitempty"`
	Reference  string  `bson:"reference,omitempty" json:"reference,omitempty"`
	// ConfirmedBy is set only for manual confirmations by an admin.
	ConfirmedBy string `bson:"confirmed_by,omitempty" json:"confirmed_by,omitempty"`
}

// Order represents a placed purchase tracked through payment and delivery.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string             `bson:"payment_method" json:"paymentMethod"`
	PaymentResult   *PaymentResult     `bson:"payment_result,omitempty" json:"paymentResult,omitempty"`
	ItemsPrice      float64            `bson:"items_price" json:"itemsPrice"`
	TaxPrice        float64            `bson:"tax_price" json:"taxPrice"`
	ShippingPrice   float64            `bson:"shipping_price" json:"shippingPrice"`
	TotalPrice      float64            `bson:"total_price" json:"totalPrice"`
	IsPaid          bool               `bson:"is_paid" json:"isPaid"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	IsDelivered     bool               `bson:"is_delivered" json:"isDelivered"`
	DeliveredAt     *time.Time         `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	IsCanceled      bool               `bson:"is_canceled" json:"isCanceled"`
	CanceledAt      *time.Time         `bson:"canceled_at,omitempty" json:"canceledAt,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
}

// TotalInSubunits returns the persisted order total in minor currency units
// (kobo/cents). Gateways report amounts in minor units, so reconciliation
// happens in that representation.
func (o *Order) TotalInSubunits() int64 {
	return int64(math.Round(o.TotalPrice * 100))
}
