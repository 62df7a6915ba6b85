package services

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Success bool              `json:"success" example:"false"`
	Error   string            `json:"error" example:"insufficient balance"` // Error message
	Details map[string]string `json:"details,omitempty"`                    // Validation details
}

// SendJSON writes body with the given status.
func SendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, details map[string]string) {
	SendJSON(w, statusCode, ErrorResponse{Error: message, Details: details})
}

// SendError writes err as an error envelope. Errors that are not *Error are
// reported as a generic internal error.
func SendError(w http.ResponseWriter, err error) {
	svcErr := AsError(err)
	SendErrorResponse(w, svcErr.Message, svcErr.Status, svcErr.Details)
}

// AsError extracts the *Error in err's chain, or ErrInternal.
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return ErrInternal
}
