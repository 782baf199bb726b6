package apperror

import (
	"errors"
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

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Signature (SEC) ----

const CodeInvalidSignature = "SEC_001"

// ErrInvalidSignature is returned for every signature failure, whatever the cause.
func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid signature", http.StatusUnauthorized)
}

// ---- Validation (VAL) ----

const (
	CodeValidation       = "VAL_001"
	CodeMalformedPayload = "VAL_002"
	CodeUnrecognizedType = "VAL_003"
	CodeBodyTooLarge     = "VAL_004"
)

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrMalformedPayload(reason string) *AppError {
	return New(CodeMalformedPayload, "Malformed payload: "+reason, http.StatusBadRequest)
}

func ErrBodyTooLarge() *AppError {
	return New(CodeBodyTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}

func ErrUnrecognizedEvent(eventType string, httpStatus int) *AppError {
	return New(CodeUnrecognizedType, fmt.Sprintf("Unrecognized event type %q", eventType), httpStatus)
}

// ---- Event log storage (STO) ----

const CodeStorage = "STO_001"

func ErrStorage(err error) *AppError {
	return Wrap(CodeStorage, "Event log storage failure", http.StatusInternalServerError, err)
}

// ---- Payment provider (PRV) ----

const (
	CodeProviderUnavailable = "PRV_001"
	CodeProviderRejected    = "PRV_002"
	CodeSandboxOnly         = "PRV_003"
	CodeNotFound            = "PRV_004"
)

// ErrProviderUnavailable covers network failures and 5xx answers from the provider.
func ErrProviderUnavailable(err error) *AppError {
	return Wrap(CodeProviderUnavailable, "Payment provider unavailable", http.StatusBadGateway, err)
}

func ErrProviderRejected(message string) *AppError {
	return New(CodeProviderRejected, "Payment provider rejected the request: "+message, http.StatusUnprocessableEntity)
}

func ErrSandboxOnly() *AppError {
	return New(CodeSandboxOnly, "Payment simulation is only available for dev mode charges", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Export (EXP) ----

const CodeExport = "EXP_001"

func ErrExport(message string, err error) *AppError {
	return Wrap(CodeExport, message, http.StatusInternalServerError, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
