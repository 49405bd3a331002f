package service

import "errors"

// Error kinds surfaced to callers. Transports map each one to a stable code.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("order belongs to another user")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrOrderNotPending   = errors.New("order is not awaiting payment")
	ErrGatewayTimeout    = errors.New("payment gateway timed out")
	ErrGatewayError      = errors.New("payment gateway error")
)
