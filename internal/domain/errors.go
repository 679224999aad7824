package domain

import "errors"

var (
	// ErrUnauthorized signals an administration or transfer call not signed by the account owner.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidUpdate signals removal of a spending limit that is missing or already disabled.
	ErrInvalidUpdate = errors.New("invalid update")
	// ErrLimitExceeded signals a spend denied by the daily allowance.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrAccountNotFound signals an unknown account address.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientFunds signals a transfer larger than the account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount signals a malformed or out-of-range amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidRequest signals malformed call parameters.
	ErrInvalidRequest = errors.New("invalid request")
)
