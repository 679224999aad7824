package chi

import "time"

// ErrorCode is the machine-readable error class of an API response.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeInvalidAmount     ErrorCode = "invalid_amount"
	ErrorCodeUnauthenticated   ErrorCode = "unauthenticated"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeInvalidUpdate     ErrorCode = "invalid_update"
	ErrorCodeLimitExceeded     ErrorCode = "limit_exceeded"
	ErrorCodeInsufficientFunds ErrorCode = "insufficient_funds"
	ErrorCodeAccountNotFound   ErrorCode = "account_not_found"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DeployAccountRequest is the body of POST /api/v1/accounts.
type DeployAccountRequest struct {
	Owner string `json:"owner"`
	Salt  string `json:"salt,omitempty"` // 0x-hex, up to 32 bytes
}

// AccountResponse describes a deployed account.
type AccountResponse struct {
	Address   string    `json:"address"`
	Owner     string    `json:"owner"`
	Salt      string    `json:"salt"`
	Nonce     uint64    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
}

// FundRequest is the body of POST /api/v1/accounts/{account}/fund.
type FundRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// BalanceResponse is the balance of one asset.
type BalanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// LimitResponse is an allowance record as stored.
type LimitResponse struct {
	Asset     string     `json:"asset"`
	Limit     string     `json:"limit"`
	Available string     `json:"available"`
	ResetTime int64      `json:"reset_time"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
	Enabled   bool       `json:"enabled"`
	// Spendable is what could be spent right now, replenishment applied. Absent when disabled.
	Spendable *string `json:"spendable,omitempty"`
}

// LimitListResponse lists every record of an account.
type LimitListResponse struct {
	Items []LimitResponse `json:"items"`
}

// SetLimitRequest is the body of PUT /api/v1/accounts/{account}/limits/{asset}.
type SetLimitRequest struct {
	Limit     string `json:"limit"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// RemoveLimitRequest is the body of DELETE /api/v1/accounts/{account}/limits/{asset}.
type RemoveLimitRequest struct {
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// TransferRequest is the body of POST /api/v1/accounts/{account}/transfers.
type TransferRequest struct {
	Asset     string `json:"asset"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// TransferResponse is the receipt of a committed transfer.
type TransferResponse struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	Asset     string        `json:"asset"`
	Amount    string        `json:"amount"`
	Nonce     uint64        `json:"nonce"`
	Balance   string        `json:"balance"`
	Internal  bool          `json:"internal"`
	Allowance LimitResponse `json:"allowance"`
}

// ActivityResponse holds today's spend decision counters.
type ActivityResponse struct {
	Account    string    `json:"account"`
	Day        string    `json:"day"`
	Authorized int64     `json:"authorized"`
	Denied     int64     `json:"denied"`
	ResetsAt   time.Time `json:"resets_at"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
