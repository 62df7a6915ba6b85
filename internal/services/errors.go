package services

import (
	"errors"
	"net/http"
)

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindValidation     Kind = "ValidationError"
	KindAuthentication Kind = "AuthenticationError"
	KindAuthorization  Kind = "AuthorizationError"
	KindBusinessRule   Kind = "BusinessRuleError"
	KindNotFound       Kind = "NotFoundError"
	KindPersistence    Kind = "PersistenceError"
	KindThrottled      Kind = "ThrottledError"
)

// Error is a domain failure with a stable code and the HTTP status it maps to.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Details map[string]string
}

func newError(kind Kind, code, message string, status int) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Status: status}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so copies made by WithMessage and WithDetails still
// satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

func (e *Error) WithDetails(details map[string]string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

var (
	ErrInvalidInput = newError(KindValidation, "INVALID_INPUT", "validation failed", http.StatusBadRequest)
	ErrInvalidBody  = newError(KindValidation, "INVALID_BODY", "invalid request body", http.StatusBadRequest)

	ErrDuplicateUsername = newError(KindBusinessRule, "DUPLICATE_USERNAME", "username already exists", http.StatusBadRequest)
	ErrNegativeBalance   = newError(KindBusinessRule, "NEGATIVE_BALANCE", "balance cannot be negative", http.StatusBadRequest)
	ErrInvalidAmount     = newError(KindBusinessRule, "INVALID_AMOUNT", "amount must be positive with at most two decimal places", http.StatusBadRequest)
	ErrSelfTransfer      = newError(KindBusinessRule, "SELF_TRANSFER", "cannot transfer to yourself", http.StatusBadRequest)
	ErrInsufficientFunds = newError(KindBusinessRule, "INSUFFICIENT_FUNDS", "insufficient balance", http.StatusBadRequest)
	ErrAdminHasNoAccount = newError(KindBusinessRule, "ADMIN_NO_ACCOUNT", "admin has no balance", http.StatusBadRequest)

	ErrInvalidCredentials    = newError(KindAuthentication, "INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized)
	ErrUnauthenticated       = newError(KindAuthentication, "UNAUTHENTICATED", "authorization token is required", http.StatusUnauthorized)
	ErrTokenExpired          = newError(KindAuthentication, "TOKEN_EXPIRED", "token has expired", http.StatusUnauthorized)
	ErrTokenMalformed        = newError(KindAuthentication, "TOKEN_MALFORMED", "invalid token", http.StatusUnauthorized)
	ErrTokenInvalidSignature = newError(KindAuthentication, "TOKEN_INVALID_SIGNATURE", "invalid token signature", http.StatusUnauthorized)

	ErrForbidden = newError(KindAuthorization, "FORBIDDEN", "admin access required", http.StatusForbidden)

	ErrNotFound          = newError(KindNotFound, "NOT_FOUND", "user not found", http.StatusNotFound)
	ErrRecipientNotFound = newError(KindNotFound, "RECIPIENT_NOT_FOUND", "recipient not found", http.StatusNotFound)

	ErrTooManyAttempts = newError(KindThrottled, "TOO_MANY_ATTEMPTS", "too many attempts, try again later", http.StatusTooManyRequests)

	ErrInternal = newError(KindPersistence, "INTERNAL", "internal error", http.StatusInternalServerError)
)
