package service

import "errors"

var (
	// ErrNotFound means the referenced order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrUnauthorized means the requester is neither the order's owner
	// nor an admin.
	ErrUnauthorized = errors.New("not authorized to act on this order")
	// ErrInvalidTransition means the requested state change violates the
	// order lifecycle.
	ErrInvalidTransition = errors.New("invalid order state transition")
	// ErrEmptyOrder means order creation was attempted with no line items.
	ErrEmptyOrder = errors.New("no order items")
	// ErrInsufficientStock means a line item's quantity exceeds the
	// product's remaining stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAlreadyPaid is the idempotence short-circuit: the order is paid
	// and the confirmation is a no-op. Callers treat it as success.
	ErrAlreadyPaid = errors.New("order already paid")
)
