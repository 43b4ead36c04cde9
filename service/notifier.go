package service

import (
	"time"

	"go-freshmart/models"
)

// Event names pushed to clients viewing an order.
const (
	EventPaymentSuccess = "paymentSuccess"
	EventOrderCanceled  = "orderCanceled"
)

// Notifier fans a state-change event out to whoever is watching the order.
// Delivery is best-effort and must never block or fail a state transition;
// the store stays the source of truth.
type Notifier interface {
	Publish(orderID string, event string, payload any)
}

// PaymentSuccessEvent is the paymentSuccess payload.
type PaymentSuccessEvent struct {
	OrderID       string                `json:"orderId"`
	IsPaid        bool                  `json:"isPaid"`
	PaidAt        *time.Time            `json:"paidAt"`
	PaymentResult *models.PaymentResult `json:"paymentResult"`
}

// OrderCanceledEvent is the orderCanceled payload.
type OrderCanceledEvent struct {
	OrderID    string     `json:"orderId"`
	IsCanceled bool       `json:"isCanceled"`
	CanceledAt *time.Time `json:"canceledAt"`
}
