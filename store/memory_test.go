package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-freshmart/models"
)

func seedOrder(t *testing.T, s *MemoryOrderStore) *models.Order {
	t.Helper()
	order, err := s.Insert(context.Background(), &models.Order{
		UserID:     primitive.NewObjectID(),
		Items:      []models.OrderItem{{Name: "Mangoes", Qty: 1, Price: 1000, Product: primitive.NewObjectID()}},
		TotalPrice: 1000,
	})
	require.NoError(t, err)
	return order
}

func TestMarkPaidWinnerTakesAll(t *testing.T) {
	s := NewMemoryOrderStore()
	order := seedOrder(t, s)
	now := time.Now().UTC()

	_, err := s.MarkPaid(context.Background(), order.ID, &models.PaymentResult{ID: "txn-1"}, now)
	require.NoError(t, err)

	// The losing writer of a race observes a conflict, never an overwrite.
	_, err = s.MarkPaid(context.Background(), order.ID, &models.PaymentResult{ID: "txn-2"}, now)
	assert.ErrorIs(t, err, ErrConflict)

	current, err := s.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "txn-1", current.PaymentResult.ID)
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	s := NewMemoryOrderStore()

	_, err := s.MarkPaid(context.Background(), primitive.NewObjectID(), &models.PaymentResult{ID: "txn-1"}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkCanceledRejectsPaidOrder(t *testing.T) {
	s := NewMemoryOrderStore()
	order := seedOrder(t, s)

	_, err := s.MarkPaid(context.Background(), order.ID, &models.PaymentResult{ID: "txn-1"}, time.Now())
	require.NoError(t, err)

	_, err = s.MarkCanceled(context.Background(), order.ID, time.Now())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMarkDeliveredRequiresPaid(t *testing.T) {
	s := NewMemoryOrderStore()
	order := seedOrder(t, s)

	_, err := s.MarkDelivered(context.Background(), order.ID, time.Now())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAdjustStockGuardsAgainstOverselling(t *testing.T) {
	s := NewMemoryProductStore()
	p := &models.Product{Name: "Mangoes", CountInStock: 3}
	s.Put(p)

	require.NoError(t, s.AdjustStock(context.Background(), p.ID, -3))

	err := s.AdjustStock(context.Background(), p.ID, -1)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	current, err := s.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.CountInStock)

	// Restock is never guarded.
	require.NoError(t, s.AdjustStock(context.Background(), p.ID, 3))
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	s := NewMemoryProductStore()
	err := s.AdjustStock(context.Background(), primitive.NewObjectID(), -1)
	assert.ErrorIs(t, err, ErrNotFound)
}
