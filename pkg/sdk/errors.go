package spendguard

import "github.com/kailas-cloud/spendguard/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrUnauthorized      = domain.ErrUnauthorized
	ErrInvalidUpdate     = domain.ErrInvalidUpdate
	ErrLimitExceeded     = domain.ErrLimitExceeded
	ErrAccountNotFound   = domain.ErrAccountNotFound
	ErrInsufficientFunds = domain.ErrInsufficientFunds
	ErrInvalidAmount     = domain.ErrInvalidAmount
	ErrInvalidRequest    = domain.ErrInvalidRequest
)
