package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-freshmart/models"
	"go-freshmart/store"
)

type recordedEvent struct {
	OrderID string
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Publish(orderID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{OrderID: orderID, Event: event, Payload: payload})
}

func (n *recordingNotifier) recorded() []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedEvent(nil), n.events...)
}

type fixture struct {
	svc      *OrderService
	orders   *store.MemoryOrderStore
	products *store.MemoryProductStore
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:   store.NewMemoryOrderStore(),
		products: store.NewMemoryProductStore(),
		notifier: &recordingNotifier{},
	}
	f.svc = NewOrderService(f.orders, f.products, f.notifier, nil, nil)
	return f
}

func (f *fixture) seedProduct(t *testing.T, name string, stock int, price float64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, CountInStock: stock}
	f.products.Put(p)
	return p
}

func (f *fixture) stockOf(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.CountInStock
}

func owner() Requester {
	return Requester{UserID: primitive.NewObjectID(), Name: "Ada Buyer", Email: "ada@example.com"}
}

func admin() Requester {
	return Requester{UserID: primitive.NewObjectID(), Name: "Sam Admin", Email: "admin@example.com", Admin: true}
}

func checkoutInput(items ...models.OrderItem) CreateOrderInput {
	var itemsPrice float64
	for _, it := range items {
		itemsPrice += it.Price * float64(it.Qty)
	}
	return CreateOrderInput{
		Items: items,
		ShippingAddress: models.ShippingAddress{
			FullName:    "Ada Buyer",
			PhoneNumber: "08000000000",
			Address:     "1 Market Road",
			City:        "Lagos",
			PostalCode:  "100001",
			Country:     "NG",
		},
		PaymentMethod: models.PaymentMethodPaystack,
		ItemsPrice:    itemsPrice,
		TaxPrice:      itemsPrice * 0.1,
		ShippingPrice: 50,
		TotalPrice:    itemsPrice + itemsPrice*0.1 + 50,
	}
}

func TestCreateOrderDecrementsStock(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)

	input := checkoutInput(models.OrderItem{Name: p.Name, Qty: 2, Price: p.Price, Product: p.ID})
	order, err := f.svc.Create(context.Background(), owner(), input)
	require.NoError(t, err)

	assert.False(t, order.ID.IsZero())
	assert.Equal(t, 2000.0, order.ItemsPrice)
	assert.Equal(t, input.TotalPrice, order.TotalPrice)
	assert.False(t, order.IsPaid)
	assert.Equal(t, 3, f.stockOf(t, p.ID))
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), owner(), checkoutInput())
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	first := f.seedProduct(t, "Mangoes", 5, 1000)
	second := f.seedProduct(t, "Berries", 1, 500)

	input := checkoutInput(
		models.OrderItem{Name: first.Name, Qty: 3, Price: first.Price, Product: first.ID},
		models.OrderItem{Name: second.Name, Qty: 2, Price: second.Price, Product: second.ID},
	)
	_, err := f.svc.Create(context.Background(), owner(), input)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The decrement applied for the first item must have been compensated.
	assert.Equal(t, 5, f.stockOf(t, first.ID))
	assert.Equal(t, 1, f.stockOf(t, second.ID))

	orders, err := f.orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)
	buyer := owner()

	order, err := f.svc.Create(context.Background(), buyer, checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 2, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)
	require.Equal(t, 3, f.stockOf(t, p.ID))

	canceled, err := f.svc.Cancel(context.Background(), order.ID, buyer)
	require.NoError(t, err)

	assert.True(t, canceled.IsCanceled)
	assert.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, 5, f.stockOf(t, p.ID))

	events := f.notifier.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderCanceled, events[0].Event)
	assert.Equal(t, order.ID.Hex(), events[0].OrderID)
}

func TestCancelPaidOrderRejected(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)
	buyer := owner()

	order, err := f.svc.Create(context.Background(), buyer, checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 2, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)
	paid, err := f.svc.MarkPaid(context.Background(), order.ID, &models.PaymentResult{ID: "txn-1", Status: "success"})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), order.ID, admin())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Nothing changed: still paid, not canceled, stock untouched.
	current, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, current.IsPaid)
	assert.False(t, current.IsCanceled)
	assert.Nil(t, current.CanceledAt)
	assert.Equal(t, paid.PaymentResult, current.PaymentResult)
	assert.Equal(t, 3, f.stockOf(t, p.ID))
}

func TestCancelDeliveredOrderRejected(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)
	buyer := owner()

	order, err := f.svc.Create(context.Background(), buyer, checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 1, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)
	_, err = f.svc.MarkPaid(context.Background(), order.ID, &models.PaymentResult{ID: "txn-1", Status: "success"})
	require.NoError(t, err)
	_, err = f.svc.MarkDelivered(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), order.ID, admin())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelRequiresOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)
	buyer := owner()

	order, err := f.svc.Create(context.Background(), buyer, checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 1, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)

	stranger := Requester{UserID: primitive.NewObjectID(), Email: "other@example.com"}
	_, err = f.svc.Cancel(context.Background(), order.ID, stranger)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Admin may cancel anyone's order.
	_, err = f.svc.Cancel(context.Background(), order.ID, admin())
	assert.NoError(t, err)
}

func TestCancelSkipsMissingProductDuringRestock(t *testing.T) {
	f := newFixture(t)
	kept := f.seedProduct(t, "Mangoes", 5, 1000)
	deleted := f.seedProduct(t, "Berries", 5, 500)
	buyer := owner()

	order, err := f.svc.Create(context.Background(), buyer, checkoutInput(
		models.OrderItem{Name: kept.Name, Qty: 2, Price: kept.Price, Product: kept.ID},
		models.OrderItem{Name: deleted.Name, Qty: 1, Price: deleted.Price, Product: deleted.ID},
	))
	require.NoError(t, err)

	// Catalog deletes one product between checkout and cancellation.
	f.products.Delete(deleted.ID)

	canceled, err := f.svc.Cancel(context.Background(), order.ID, buyer)
	require.NoError(t, err)

	assert.True(t, canceled.IsCanceled)
	// The surviving product is still restocked.
	assert.Equal(t, 5, f.stockOf(t, kept.ID))
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)
	buyer := owner()

	order, err := f.svc.Create(context.Background(), buyer, checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 1, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)

	first := &models.PaymentResult{ID: "txn-1", Status: "success", Reference: "ref-1"}
	paid, err := f.svc.MarkPaid(context.Background(), order.ID, first)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)

	// A second confirmation, even with different details, is a no-op.
	second := &models.PaymentResult{ID: "txn-2", Status: "success", Reference: "ref-2"}
	again, err := f.svc.MarkPaid(context.Background(), order.ID, second)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	require.NotNil(t, again)
	assert.Equal(t, "txn-1", again.PaymentResult.ID)

	events := f.notifier.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, EventPaymentSuccess, events[0].Event)
	payload, ok := events[0].Payload.(PaymentSuccessEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID.Hex(), payload.OrderID)
	assert.True(t, payload.IsPaid)
	assert.Equal(t, "txn-1", payload.PaymentResult.ID)
}

func TestMarkPaidCanceledOrderRejected(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)
	buyer := owner()

	order, err := f.svc.Create(context.Background(), buyer, checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 1, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), order.ID, buyer)
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(context.Background(), order.ID, &models.PaymentResult{ID: "txn-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	current, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, current.IsPaid)
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.MarkPaid(context.Background(), primitive.NewObjectID(), &models.PaymentResult{ID: "txn-1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkPaidManuallyRecordsAdmin(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)

	order, err := f.svc.Create(context.Background(), owner(), checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 1, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)

	confirming := admin()
	paid, err := f.svc.MarkPaidManually(context.Background(), order.ID, confirming)
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaymentResult)
	assert.Equal(t, ManualPaymentID, paid.PaymentResult.ID)
	assert.Equal(t, confirming.Name, paid.PaymentResult.ConfirmedBy)
	assert.Equal(t, confirming.Email, paid.PaymentResult.Email)
}

func TestMarkDeliveredRequiresPaid(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 5, 1000)

	order, err := f.svc.Create(context.Background(), owner(), checkoutInput(
		models.OrderItem{Name: p.Name, Qty: 1, Price: p.Price, Product: p.ID},
	))
	require.NoError(t, err)

	_, err = f.svc.MarkDelivered(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.MarkPaid(context.Background(), order.ID, &models.PaymentResult{ID: "txn-1"})
	require.NoError(t, err)

	delivered, err := f.svc.MarkDelivered(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
	assert.NotNil(t, delivered.DeliveredAt)

	// Delivered is terminal.
	_, err = f.svc.MarkDelivered(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForUserFiltersByOwner(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "Mangoes", 50, 1000)
	first := owner()
	second := owner()

	for _, buyer := range []Requester{first, first, second} {
		_, err := f.svc.Create(context.Background(), buyer, checkoutInput(
			models.OrderItem{Name: p.Name, Qty: 1, Price: p.Price, Product: p.ID},
		))
		require.NoError(t, err)
	}

	mine, err := f.svc.ListForUser(context.Background(), first.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
