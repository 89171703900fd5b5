package utils

import (
	"encoding/json"
	"net/http"

	"travellog/pkg/logger"
)

const (
	// Request Error Codes
	ErrRequestInvalid           = "request/invalid_parameters"
	ErrRequestBadRequest        = "request/bad_request"
	ErrRequestRateLimitExceeded = "request/rate_limit_exceeded"
	ErrRequestBodyTooLarge      = "request/body_too_large"

	// Auth Error Codes
	ErrAuthRequired        = "auth/authentication_required"
	ErrAuthInvalid         = "auth/invalid_credentials"
	ErrAuthRateLimitExceed = "auth/rate_limit_exceeded"

	// Server Error Codes
	ErrServerInternal = "server/internal_error"

	// Validation & Resource Error Codes
	ErrValidationInvalidFormat = "validation/invalid_format"
	ErrResourceNotFound        = "resource/not_found"

	// Image
	ErrImageProcessingFailed = "image/processing_failed"
)

type APIError struct {
	Code    string            `json:"code"`             // e.g., "request/invalid_parameters"
	Message string            `json:"message"`          // User-friendly message
	Status  int               `json:"status"`           // HTTP Status Code
	Fields  map[string]string `json:"fields,omitempty"` // Per-field validation messages
}

// WriteError sends a JSON formatted error response
func WriteError(w http.ResponseWriter, status int, code string, message string) {
	writeAPIError(w, APIError{Code: code, Message: message, Status: status})
}

// WriteValidationError sends a 400 listing every rejected field.
func WriteValidationError(w http.ResponseWriter, message string, fields map[string]string) {
	writeAPIError(w, APIError{
		Code:    ErrValidationInvalidFormat,
		Message: message,
		Status:  http.StatusBadRequest,
		Fields:  fields,
	})
}

func writeAPIError(w http.ResponseWriter, apiErr APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.LogDebug("%s: %s", apiErr.Code, apiErr.Message)
	}
	WriteJSON(w, apiErr.Status, apiErr)
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.LogWarn("Failed to encode JSON response: %v", err)
	}
}
