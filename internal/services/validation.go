package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Reasons []string          `json:"reasons,omitempty"` // Violated business constraints
	Details map[string]string `json:"details,omitempty"` // Field validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// WriteEngineError maps engine errors to HTTP responses. Validation errors
// carry every violated constraint so a UI can show all of them at once.
func WriteEngineError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if ve, ok := AsValidationError(err); ok {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "validation failed", Reasons: ve.Reasons})
		return
	}

	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInsufficientFunds):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientShares), errors.Is(err, ErrConcurrencyConflict), errors.Is(err, ErrDistributionInProgress):
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrProjectNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "internal error"})
		return
	}

	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}
