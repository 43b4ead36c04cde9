// routes/routes.go
package routes

import (
	"github.com/gorilla/mux"

	"go-freshmart/controllers"
	"go-freshmart/middleware"
	"go-freshmart/notifier"
)

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, orderController *controllers.OrderController, paystackController *controllers.PaystackController, hub *notifier.Hub) {
	// Public routes: the gateway's servers call the webhook, browsers open
	// the event stream. Neither carries a session.
	router.HandleFunc("/api/orders/paystack/webhook", paystackController.Webhook).Methods("POST")
	router.HandleFunc("/ws", hub.ServeWS).Methods("GET")

	// Protected order routes
	orders := router.PathPrefix("/api/orders").Subrouter()
	orders.Use(middleware.AuthMiddleware)
	orders.HandleFunc("", orderController.CreateOrder).Methods("POST")
	orders.HandleFunc("/myorders", orderController.GetMyOrders).Methods("GET")
	orders.HandleFunc("/{id}", orderController.GetOrderByID).Methods("GET")
	orders.HandleFunc("/{id}/pay", orderController.PayOrder).Methods("PUT")
	orders.HandleFunc("/{id}/cancel", orderController.CancelOrder).Methods("PUT")
	orders.HandleFunc("/{id}/paystack/initialize", paystackController.InitializePayment).Methods("POST")

	// Admin routes
	admin := router.PathPrefix("/api/orders").Subrouter()
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("", orderController.GetOrders).Methods("GET")
	admin.HandleFunc("/{id}/pay-manually", orderController.PayOrderManually).Methods("PUT")
	admin.HandleFunc("/{id}/deliver", orderController.DeliverOrder).Methods("PUT")
}
