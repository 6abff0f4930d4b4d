package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable error category callers branch on.
type Kind string

const (
	KindAlreadyInitialized      Kind = "AlreadyInitialized"
	KindNotInitialized          Kind = "NotInitialized"
	KindAlreadyRegistered       Kind = "AlreadyRegistered"
	KindNotAuthorized           Kind = "NotAuthorized"
	KindNotFound                Kind = "NotFound"
	KindInvalidAmount           Kind = "InvalidAmount"
	KindInvalidInvoiceStatus    Kind = "InvalidInvoiceStatus"
	KindInvalidFeeConfiguration Kind = "InvalidFeeConfiguration"
	KindTokenNotFound           Kind = "TokenNotFound"
	KindInsufficientBalance     Kind = "InsufficientBalance"
	KindAccountRestricted       Kind = "AccountRestricted"
	KindNoWithdrawalAddress     Kind = "NoWithdrawalAddress"
	KindTransferFailed          Kind = "TransferFailed"
	KindValidation              Kind = "Validation"
	KindUnauthenticated         Kind = "Unauthenticated"
	KindRateLimited             Kind = "RateLimited"
	KindInternal                Kind = "Internal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Kind       Kind   `json:"error_kind"`
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
func New(code string, kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// ---- Ledger lifecycle (LED) ----

func ErrAlreadyInitialized() *AppError {
	return New("LED_001", KindAlreadyInitialized, "Ledger is already initialized", http.StatusConflict)
}

func ErrNotInitialized() *AppError {
	return New("LED_002", KindNotInitialized, "Ledger is not initialized", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_004", KindNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Access control (ACL) ----

func ErrNotAuthorized() *AppError {
	return New("ACL_001", KindNotAuthorized, "Caller is not authorized for this operation", http.StatusForbidden)
}

// ---- Merchant registry (MER) ----

func ErrAlreadyRegistered() *AppError {
	return New("MER_001", KindAlreadyRegistered, "Address is already registered as a merchant", http.StatusConflict)
}

// ---- Payment & invoices (PAY, INV) ----

func ErrInsufficientBalance() *AppError {
	return New("PAY_001", KindInsufficientBalance, "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", KindInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

func ErrInvalidInvoiceStatus() *AppError {
	return New("INV_001", KindInvalidInvoiceStatus, "Invoice is not pending", http.StatusConflict)
}

func ErrInvalidFeeConfiguration() *AppError {
	return New("INV_002", KindInvalidFeeConfiguration, "Configured fee exceeds invoice amount", http.StatusUnprocessableEntity)
}

// ---- Balances (BAL) ----

func ErrTokenNotFound() *AppError {
	return New("BAL_001", KindTokenNotFound, "Token is not tracked by this account", http.StatusNotFound)
}

func ErrAccountRestricted() *AppError {
	return New("BAL_002", KindAccountRestricted, "Account is restricted", http.StatusForbidden)
}

// ErrNoWithdrawalAddress is returned when a withdrawal would pay the merchant
// address back to itself.
func ErrNoWithdrawalAddress() *AppError {
	return New("BAL_003", KindNoWithdrawalAddress, "Withdrawal address must differ from the merchant address", http.StatusUnprocessableEntity)
}

// ---- Token transfer (TRF) ----

func ErrTransferFailed(err error) *AppError {
	return Wrap("TRF_001", KindTransferFailed, "Token transfer failed", http.StatusBadGateway, err)
}

// ---- Security & Authentication (SEC, AUTH) ----

func ErrMissingCredentials() *AppError {
	return New("SEC_001", KindUnauthenticated, "Missing request credentials", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", KindUnauthenticated, "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", KindUnauthenticated, "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", KindUnauthenticated, "Nonce has already been used", http.StatusForbidden)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", KindUnauthenticated, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", KindRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", KindInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", KindValidation, message, http.StatusBadRequest)
}

func ErrPayloadTooLarge() *AppError {
	return New("VAL_002", KindValidation, "Request body too large", http.StatusRequestEntityTooLarge)
}
