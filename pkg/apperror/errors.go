package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet (WAL) ----

func ErrWalletNotFound() *AppError {
	return New("WAL_001", "Wallet not found", http.StatusNotFound)
}

func ErrDuplicateWallet() *AppError {
	return New("WAL_002", "Wallet already tracked", http.StatusConflict)
}

func ErrInvalidAddress(address string) *AppError {
	return New("WAL_003", fmt.Sprintf("Invalid Bitcoin address: %s", address), http.StatusBadRequest)
}

// ---- Synchronization (SYNC) ----

// ErrSyncInProgress is returned when a wallet already has a queued or
// running job. The existing job id is embedded so callers can poll it.
func ErrSyncInProgress(jobID string) *AppError {
	return New("SYNC_001", fmt.Sprintf("Sync already in progress (job %s)", jobID), http.StatusConflict)
}

func ErrJobNotFound() *AppError {
	return New("SYNC_002", "Sync job not found", http.StatusNotFound)
}

func ErrQueueFull() *AppError {
	return New("SYNC_003", "Sync queue is full, try again later", http.StatusServiceUnavailable)
}

// ---- Provider (PROV) ----

// ErrProviderUnavailable signals a transient provider failure that
// survived the bounded retry policy (timeouts, 5xx, persistent 429).
func ErrProviderUnavailable(err error) *AppError {
	return Wrap("PROV_001", "Blockchain data provider unavailable", http.StatusBadGateway, err)
}

// ErrProviderRequest signals a non-retryable provider rejection (4xx
// other than rate limiting, typically a malformed address).
func ErrProviderRequest(err error) *AppError {
	return Wrap("PROV_002", "Provider rejected the request", http.StatusBadRequest, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("WAL_003", message, http.StatusBadRequest)
}
