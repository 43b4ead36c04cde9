// controllers/paystack.go
package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"go-freshmart/gateway/paystack"
	"go-freshmart/models"
	"go-freshmart/service"
)

// PaystackController handles the Paystack payment flow: starting a hosted
// checkout and consuming the asynchronous confirmation webhook.
type PaystackController struct {
	Orders      *service.OrderService
	Gateway     *paystack.Client
	FrontendURL string
	Logger      *zap.Logger
}

func NewPaystackController(orders *service.OrderService, gateway *paystack.Client, frontendURL string, logger *zap.Logger) *PaystackController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaystackController{
		Orders:      orders,
		Gateway:     gateway,
		FrontendURL: frontendURL,
		Logger:      logger,
	}
}

// InitializePayment starts a Paystack transaction for an order. The order
// id travels in the transaction metadata so the webhook can resolve the
// order without trusting the request path.
func (pc *PaystackController) InitializePayment(w http.ResponseWriter, r *http.Request) {
	requester, ok := requesterFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := orderIDFrom(w, r)
	if !ok {
		return
	}

	var body struct {
		Amount int64  `json:"amount"` // minor units (kobo)
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Amount <= 0 {
		http.Error(w, "Amount is required and must be a positive number", http.StatusBadRequest)
		return
	}
	if body.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	order, err := pc.Orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !requester.Admin && order.UserID != requester.UserID {
		http.Error(w, "Not authorized to pay this order", http.StatusUnauthorized)
		return
	}
	if order.IsCanceled {
		http.Error(w, "Order is canceled", http.StatusBadRequest)
		return
	}
	if order.IsPaid {
		http.Error(w, "Order has already been paid", http.StatusBadRequest)
		return
	}
	if expected := order.TotalInSubunits(); body.Amount != expected {
		http.Error(w, fmt.Sprintf("Amount mismatch. Expected %d, received %d", expected, body.Amount), http.StatusBadRequest)
		return
	}

	data, err := pc.Gateway.Initialize(r.Context(), paystack.InitializeRequest{
		Amount:      body.Amount,
		Email:       body.Email,
		CallbackURL: fmt.Sprintf("%s/order/%s", pc.FrontendURL, id.Hex()),
		Metadata:    paystack.Metadata{OrderID: id.Hex()},
	})
	if err != nil {
		pc.Logger.Error("paystack initialize failed",
			zap.String("order_id", id.Hex()),
			zap.Error(err))
		http.Error(w, "Paystack initialization failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":            "success",
		"authorization_url": data.AuthorizationURL,
		"access_code":       data.AccessCode,
		"reference":         data.Reference,
		"message":           "Paystack transaction initialized successfully",
	})
}

// Webhook consumes Paystack's server-to-server confirmation. The gates run
// in a fixed order and each failure stops processing: signature over the
// raw body, event filter, order resolution from metadata, idempotence,
// independent verification against the Paystack API, and amount
// reconciliation. Only then is the order marked paid.
func (pc *PaystackController) Webhook(w http.ResponseWriter, r *http.Request) {
	// The signature covers the wire bytes; capture them before parsing.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Unable to read request body", http.StatusBadRequest)
		return
	}

	if !pc.Gateway.ValidSignature(body, r.Header.Get(paystack.SignatureHeader)) {
		pc.Logger.Warn("webhook signature mismatch")
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	var event paystack.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Malformed event payload", http.StatusBadRequest)
		return
	}

	switch {
	case event.Event == paystack.EventChargeSuccess && event.Data.Status == "success":
		pc.handleChargeSuccess(w, r, &event)
	case event.Event == paystack.EventChargeFailed:
		pc.Logger.Warn("payment failed",
			zap.String("reference", event.Data.Reference),
			zap.String("gateway_response", event.Data.GatewayResponse))
		respondJSON(w, http.StatusOK, map[string]string{"message": "Payment failed, but received webhook."})
	default:
		// Acknowledge unhandled events so the gateway stops retrying.
		respondJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Webhook received for unhandled event type: %s", event.Event),
		})
	}
}

func (pc *PaystackController) handleChargeSuccess(w http.ResponseWriter, r *http.Request, event *paystack.WebhookEvent) {
	reference := event.Data.Reference

	if event.Data.Metadata.OrderID == "" {
		pc.Logger.Warn("webhook missing order reference", zap.String("reference", reference))
		http.Error(w, "Order ID not found in metadata", http.StatusBadRequest)
		return
	}
	id, ok := parseOrderID(event.Data.Metadata.OrderID)
	if !ok {
		http.Error(w, "Invalid order ID in metadata", http.StatusBadRequest)
		return
	}

	order, err := pc.Orders.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		pc.Logger.Warn("webhook for unknown order",
			zap.String("order_id", id.Hex()),
			zap.String("reference", reference))
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Retry storms are normal gateway behavior; a paid order is simply
	// acknowledged again.
	if order.IsPaid {
		respondJSON(w, http.StatusOK, map[string]string{"message": "Order already paid."})
		return
	}
	if order.IsCanceled {
		http.Error(w, "Order is canceled", http.StatusBadRequest)
		return
	}

	// Never trust the webhook payload's amount or status; confirm the
	// transaction with the gateway directly.
	verified, err := pc.Gateway.Verify(r.Context(), reference)
	if errors.Is(err, paystack.ErrVerificationDeclined) {
		pc.Logger.Warn("transaction verification declined",
			zap.String("reference", reference),
			zap.Error(err))
		http.Error(w, fmt.Sprintf("Payment verification failed for reference %s", reference), http.StatusBadRequest)
		return
	}
	if err != nil {
		pc.Logger.Error("transaction verification failed",
			zap.String("reference", reference),
			zap.Error(err))
		http.Error(w, "Error verifying payment with Paystack", http.StatusBadGateway)
		return
	}
	if verified.Status != "success" {
		pc.Logger.Warn("verified transaction not successful",
			zap.String("reference", reference),
			zap.String("status", verified.Status))
		http.Error(w, fmt.Sprintf("Payment verification failed for reference %s", reference), http.StatusBadRequest)
		return
	}

	if verified.Amount != order.TotalInSubunits() {
		pc.Logger.Warn("webhook amount mismatch",
			zap.String("order_id", id.Hex()),
			zap.Int64("expected", order.TotalInSubunits()),
			zap.Int64("received", verified.Amount))
		http.Error(w, "Amount mismatch after verification.", http.StatusBadRequest)
		return
	}

	updated, err := pc.Orders.MarkPaid(r.Context(), id, &models.PaymentResult{
		ID:         fmt.Sprintf("%d", verified.ID),
		Status:     verified.Status,
		UpdateTime: verified.PaidAt,
		Email:      verified.Customer.Email,
		Channel:    verified.Channel,
		Currency:   verified.Currency,
		Amount:     float64(verified.Amount) / 100,
		Reference:  verified.Reference,
	})
	if errors.Is(err, service.ErrAlreadyPaid) {
		respondJSON(w, http.StatusOK, map[string]string{"message": "Order already paid."})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Payment confirmed and order updated.",
		"order":   updated,
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
