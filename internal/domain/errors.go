package domain

import "errors"

// Failure kinds returned by the cart and order core. Handlers map these to
// HTTP statuses with errors.Is; nothing here is fatal to the process.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrItemNotFound      = errors.New("menu item not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidStatus     = errors.New("unrecognized order status")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrNotFound          = errors.New("order not found")
	ErrUnavailable       = errors.New("item unavailable")
	ErrQuantityCap       = errors.New("quantity cap reached")
)
