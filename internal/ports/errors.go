package ports

import "errors"

// Sentinel errors shared across the application. Adapters wrap the
// underlying infrastructure failure with one of these so callers can
// branch with errors.Is without importing adapter packages.
var (
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")
)

// Trading-path errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance for trade entry")
	ErrOrderSubmission     = errors.New("order submission failed")
	ErrDataFetch           = errors.New("failed to fetch market data")
)

// Exchange adapter errors, mapped from provider-specific codes.
var (
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrInsufficientFunds    = errors.New("insufficient funds on the exchange")
	ErrOrderNotFound        = errors.New("order not found on the exchange")
)

// Candle store errors.
var (
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
