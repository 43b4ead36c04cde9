// controllers/order.go
package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-freshmart/middleware"
	"go-freshmart/models"
	"go-freshmart/service"
)

// OrderController handles order-related requests
type OrderController struct {
	Orders *service.OrderService
	Logger *zap.Logger
}

// NewOrderController creates a new OrderController
func NewOrderController(orders *service.OrderService, logger *zap.Logger) *OrderController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderController{Orders: orders, Logger: logger}
}

// CreateOrder places a new order from the already-validated checkout payload.
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		OrderItems      []models.OrderItem     `json:"orderItems"`
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
		PaymentMethod   string                 `json:"paymentMethod"`
		ItemsPrice      float64                `json:"itemsPrice"`
		TaxPrice        float64                `json:"taxPrice"`
		ShippingPrice   float64                `json:"shippingPrice"`
		TotalPrice      float64                `json:"totalPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := oc.Orders.Create(r.Context(), requester, service.CreateOrderInput{
		Items:           body.OrderItems,
		ShippingAddress: body.ShippingAddress,
		PaymentMethod:   body.PaymentMethod,
		ItemsPrice:      body.ItemsPrice,
		TaxPrice:        body.TaxPrice,
		ShippingPrice:   body.ShippingPrice,
		TotalPrice:      body.TotalPrice,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

// GetOrderByID returns one order to its owner or an admin.
func (oc *OrderController) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := orderIDFrom(w, r)
	if !ok {
		return
	}

	order, err := oc.Orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !requester.Admin && order.UserID != requester.UserID {
		http.Error(w, "Not authorized to view this order", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// GetMyOrders lists the authenticated user's orders.
func (oc *OrderController) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := oc.Orders.ListForUser(r.Context(), requester.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// GetOrders lists every order. Admin only; the router enforces the gate.
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := oc.Orders.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// PayOrder is the client-capture confirmation path: the authenticated
// owner submits the capture receipt handed back by the gateway SDK. The
// caller must own the order, and a canceled or already-paid order is
// never re-confirmed.
func (oc *OrderController) PayOrder(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := orderIDFrom(w, r)
	if !ok {
		return
	}

	var capture struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		UpdateTime string `json:"update_time"`
		Email      string `json:"email_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&capture); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := oc.Orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !requester.Admin && order.UserID != requester.UserID {
		http.Error(w, "Not authorized to pay this order", http.StatusUnauthorized)
		return
	}

	updated, err := oc.Orders.MarkPaid(r.Context(), id, &models.PaymentResult{
		ID:         capture.ID,
		Status:     capture.Status,
		UpdateTime: capture.UpdateTime,
		Email:      capture.Email,
	})
	if errors.Is(err, service.ErrAlreadyPaid) {
		// Idempotent no-op: report the paid order as success.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// PayOrderManually records payment confirmed out of band (cash, bank
// transfer). Admin only.
func (oc *OrderController) PayOrderManually(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := orderIDFrom(w, r)
	if !ok {
		return
	}

	updated, err := oc.Orders.MarkPaidManually(r.Context(), id, requester)
	if errors.Is(err, service.ErrAlreadyPaid) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// DeliverOrder marks a paid order delivered. Admin only.
func (oc *OrderController) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDFrom(w, r)
	if !ok {
		return
	}

	updated, err := oc.Orders.MarkDelivered(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// CancelOrder cancels an unpaid order and restores its stock.
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := orderIDFrom(w, r)
	if !ok {
		return
	}

	updated, err := oc.Orders.Cancel(r.Context(), id, requester)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func requesterFrom(r *http.Request) (service.Requester, bool) {
	claims, ok := middleware.ClaimsFrom(r)
	if !ok {
		return service.Requester{}, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return service.Requester{}, false
	}
	return service.Requester{
		UserID: userID,
		Name:   claims.Name,
		Email:  claims.Email,
		Admin:  claims.IsAdmin(),
	}, true
}

func orderIDFrom(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, ok := parseOrderID(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

func parseOrderID(hex string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(hex)
	return id, err == nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
