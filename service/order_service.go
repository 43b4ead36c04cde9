package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-freshmart/models"
	"go-freshmart/store"
)

// OrderStore is the persistence contract the lifecycle engine runs on.
// Transition methods are conditional updates: they succeed only from the
// required state and return store.ErrConflict when another writer won.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, result *models.PaymentResult, paidAt time.Time) (*models.Order, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, error)
	MarkCanceled(ctx context.Context, id primitive.ObjectID, canceledAt time.Time) (*models.Order, error)
}

// ProductStore adjusts catalog stock counters.
type ProductStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error
}

// Mailer sends customer notifications. Sending is fire-and-forget; a nil
// Mailer disables email entirely.
type Mailer interface {
	SendOrderConfirmation(to string, order *models.Order) error
	SendPaymentReceipt(to string, order *models.Order) error
	SendOrderCanceled(to string, order *models.Order) error
}

// Requester identifies the authenticated caller of a mutating operation.
type Requester struct {
	UserID primitive.ObjectID
	Name   string
	Email  string
	Admin  bool
}

// CreateOrderInput carries the already-validated checkout payload.
type CreateOrderInput struct {
	Items           []models.OrderItem
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	ItemsPrice      float64
	TaxPrice        float64
	ShippingPrice   float64
	TotalPrice      float64
}

// ManualPaymentID marks payment results recorded by an admin override.
const ManualPaymentID = "MANUAL_PAYMENT"

// OrderService is the order lifecycle engine. All collaborators are
// injected at construction; there are no package-level singletons.
type OrderService struct {
	orders   OrderStore
	products ProductStore
	notifier Notifier
	mailer   Mailer
	logger   *zap.Logger
}

func NewOrderService(orders OrderStore, products ProductStore, notifier Notifier, mailer Mailer, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:   orders,
		products: products,
		notifier: notifier,
		mailer:   mailer,
		logger:   logger,
	}
}

// Create places a new order and decrements stock for every line item.
// Each decrement is atomic and guarded; if any item cannot be covered the
// decrements already applied for earlier items are rolled back and the
// order is not persisted.
func (s *OrderService) Create(ctx context.Context, requester Requester, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var applied []models.OrderItem
	for _, item := range input.Items {
		if err := s.products.AdjustStock(ctx, item.Product, -item.Qty); err != nil {
			s.rollbackStock(ctx, applied)
			if errors.Is(err, store.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w for product %s", ErrInsufficientStock, item.Name)
			}
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", item.Product.Hex(), ErrNotFound)
			}
			return nil, err
		}
		applied = append(applied, item)
	}

	order := &models.Order{
		UserID:          requester.UserID,
		Items:           input.Items,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		ItemsPrice:      input.ItemsPrice,
		TaxPrice:        input.TaxPrice,
		ShippingPrice:   input.ShippingPrice,
		TotalPrice:      input.TotalPrice,
	}

	created, err := s.orders.Insert(ctx, order)
	if err != nil {
		s.rollbackStock(ctx, applied)
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", created.ID.Hex()),
		zap.String("user_id", requester.UserID.Hex()),
		zap.Float64("total_price", created.TotalPrice))

	s.sendMail(func() error { return s.mailer.SendOrderConfirmation(requester.Email, created) }, requester.Email)

	return created, nil
}

func (s *OrderService) rollbackStock(ctx context.Context, applied []models.OrderItem) {
	for _, item := range applied {
		if err := s.products.AdjustStock(ctx, item.Product, item.Qty); err != nil {
			s.logger.Error("stock rollback failed",
				zap.String("product_id", item.Product.Hex()),
				zap.Int("qty", item.Qty),
				zap.Error(err))
		}
	}
}

// Get returns a single order. Ownership is the caller's concern.
func (s *OrderService) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return order, err
}

// ListForUser returns the orders belonging to one user.
func (s *OrderService) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.FindByUser(ctx, userID)
}

// ListAll returns every order. Admin read path.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.FindAll(ctx)
}

// MarkPaid transitions Created -> Paid. Confirming an already-paid order is
// an idempotent no-op reported as ErrAlreadyPaid with the existing order;
// no second event is emitted and the stored payment result is untouched.
func (s *OrderService) MarkPaid(ctx context.Context, id primitive.ObjectID, result *models.PaymentResult) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.IsCanceled {
		return nil, fmt.Errorf("%w: order is canceled", ErrInvalidTransition)
	}
	if order.IsPaid {
		return order, ErrAlreadyPaid
	}

	paidAt := time.Now().UTC()
	updated, err := s.orders.MarkPaid(ctx, id, result, paidAt)
	if errors.Is(err, store.ErrConflict) {
		// Lost the race against a concurrent confirmation. Report the
		// winner's state as an idempotent no-op.
		current, ferr := s.Get(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		if current.IsPaid {
			return current, ErrAlreadyPaid
		}
		return nil, fmt.Errorf("%w: order is canceled", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("order paid",
		zap.String("order_id", id.Hex()),
		zap.String("transaction_id", result.ID),
		zap.String("reference", result.Reference))

	s.publish(id.Hex(), EventPaymentSuccess, PaymentSuccessEvent{
		OrderID:       id.Hex(),
		IsPaid:        true,
		PaidAt:        updated.PaidAt,
		PaymentResult: updated.PaymentResult,
	})

	if result.Email != "" {
		s.sendMail(func() error { return s.mailer.SendPaymentReceipt(result.Email, updated) }, result.Email)
	}

	return updated, nil
}

// MarkPaidManually is the admin override for offline methods like bank
// transfer: it records a synthetic payment result naming the confirming
// admin and flows through the same MarkPaid gates.
func (s *OrderService) MarkPaidManually(ctx context.Context, id primitive.ObjectID, admin Requester) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &models.PaymentResult{
		ID:          ManualPaymentID,
		Status:      "Completed",
		UpdateTime:  time.Now().UTC().Format(time.RFC3339),
		Email:       admin.Email,
		ConfirmedBy: admin.Name,
	}
	result.Channel = order.PaymentMethod
	return s.MarkPaid(ctx, id, result)
}

// MarkDelivered transitions Paid -> Delivered.
func (s *OrderService) MarkDelivered(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case order.IsCanceled:
		return nil, fmt.Errorf("%w: order is canceled", ErrInvalidTransition)
	case !order.IsPaid:
		return nil, fmt.Errorf("%w: cannot deliver an unpaid order", ErrInvalidTransition)
	case order.IsDelivered:
		return nil, fmt.Errorf("%w: order is already delivered", ErrInvalidTransition)
	}

	updated, err := s.orders.MarkDelivered(ctx, id, time.Now().UTC())
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: order is already delivered", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("order delivered", zap.String("order_id", id.Hex()))
	return updated, nil
}

// Cancel transitions Created -> Canceled and compensates the stock
// decrement done at creation. Only the owner or an admin may cancel, and
// only while the order is unpaid and undelivered.
func (s *OrderService) Cancel(ctx context.Context, id primitive.ObjectID, requester Requester) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Admin && order.UserID != requester.UserID {
		return nil, ErrUnauthorized
	}
	switch {
	case order.IsPaid:
		return nil, fmt.Errorf("%w: cannot cancel an order that has already been paid", ErrInvalidTransition)
	case order.IsDelivered:
		return nil, fmt.Errorf("%w: cannot cancel an order that has already been delivered", ErrInvalidTransition)
	case order.IsCanceled:
		return nil, fmt.Errorf("%w: order is already canceled", ErrInvalidTransition)
	}

	updated, err := s.orders.MarkCanceled(ctx, id, time.Now().UTC())
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: order state changed concurrently", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	// Restock every line item. A product deleted since checkout is logged
	// and skipped; one missing product must not trap the order in an
	// un-cancelable state.
	for _, item := range updated.Items {
		if err := s.products.AdjustStock(ctx, item.Product, item.Qty); err != nil {
			s.logger.Warn("restock failed during cancellation",
				zap.String("order_id", id.Hex()),
				zap.String("product_id", item.Product.Hex()),
				zap.Int("qty", item.Qty),
				zap.Error(err))
		}
	}

	s.logger.Info("order canceled",
		zap.String("order_id", id.Hex()),
		zap.String("requested_by", requester.UserID.Hex()))

	s.publish(id.Hex(), EventOrderCanceled, OrderCanceledEvent{
		OrderID:    id.Hex(),
		IsCanceled: true,
		CanceledAt: updated.CanceledAt,
	})

	s.sendMail(func() error { return s.mailer.SendOrderCanceled(requester.Email, updated) }, requester.Email)

	return updated, nil
}

// publish emits after the authoritative write committed. Notifier failure
// never rolls back or blocks the transition.
func (s *OrderService) publish(orderID, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(orderID, event, payload)
}

func (s *OrderService) sendMail(send func() error, to string) {
	if s.mailer == nil || to == "" {
		return
	}
	go func() {
		if err := send(); err != nil {
			s.logger.Warn("email delivery failed", zap.String("to", to), zap.Error(err))
		}
	}()
}
