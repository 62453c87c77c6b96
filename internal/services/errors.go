package services

import "errors"

// Validation and business rule failures; handlers answer these with 400.
var (
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrShippingAddressRequired = errors.New("shipping address is required")
	ErrInvalidPaymentMethod    = errors.New("unsupported payment method")
	ErrProductNotFound         = errors.New("product not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrOrderNotCancellable     = errors.New("order cannot be cancelled in its current status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrPaymentProofNotAllowed  = errors.New("payment proof is only accepted for bank transfer orders")
	ErrAddressLimitReached     = errors.New("maximum of 3 addresses reached")
	ErrAlreadyPaid             = errors.New("order already paid")
	ErrOrderNotPayable         = errors.New("order cannot be paid in its current status")
	ErrNoTransaction           = errors.New("no payment transaction found")
	ErrEmptyMessage            = errors.New("message is required")
	ErrEmailTaken              = errors.New("email already registered")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidOAuthState       = errors.New("invalid or expired oauth state")
)

// Ownership failures; handlers answer these with 404.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrUserNotFound     = errors.New("user not found")
)

// Authentication failures; handlers answer these with 401.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSignature   = errors.New("invalid signature")
)

// Upstream failures; handlers answer these with 502.
var (
	ErrPaymentGateway       = errors.New("payment gateway error")
	ErrAssistantUnavailable = errors.New("assistant unavailable")
)
