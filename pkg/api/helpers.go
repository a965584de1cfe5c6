// Package api provides standardized helper functions for HTTP API responses.
package api

import (
	"encoding/json"
	"net/http"

	appErrors "lpp-backend/pkg/errors"
)

// ErrorResponse is the body written for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Success sends a standardized successful HTTP response with optional JSON data.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error sends a standardized error response with consistent JSON format.
func Error(w http.ResponseWriter, statusCode int, message string) {
	writeError(w, statusCode, ErrorResponse{Error: message})
}

// FromError maps an application error onto its HTTP status and writes it.
// Internal details are only exposed for client-side error classes.
func FromError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	resp := ErrorResponse{Code: string(appErrors.TypeOf(err))}
	switch status {
	case http.StatusInternalServerError:
		resp.Error = "An internal error occurred"
	default:
		resp.Error = err.Error()
	}
	writeError(w, status, resp)
	return status
}

// StatusFor returns the HTTP status code for an application error.
func StatusFor(err error) int {
	switch {
	case appErrors.IsValidation(err):
		return http.StatusBadRequest
	case appErrors.IsNotFound(err):
		return http.StatusNotFound
	case appErrors.IsPublishFailed(err), appErrors.IsSubmissionFailed(err), appErrors.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
