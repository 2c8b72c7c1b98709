package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string            `json:"code" doc:"Machine-readable error code"`
	Reason  string            `json:"error" doc:"HTTP reason phrase"`
	Message string            `json:"message" doc:"Human-readable error message"`
	Errors  map[string]string `json:"errors,omitempty" doc:"Field-level validation messages"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

func newAPIError(status int, code, message string, fields map[string]string) *APIError {
	return &APIError{
		status:  status,
		Code:    code,
		Reason:  http.StatusText(status),
		Message: message,
		Errors:  fields,
	}
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return newAPIError(domainErr.HTTPStatus(), string(domainErr.Code), domainErr.Message, domainErr.Fields())
			}

			var storeErr *store.Error
			if errors.As(err, &storeErr) {
				return newAPIError(storeErr.Code, string(domainerrors.CodeForStatus(storeErr.Code)), storeErr.Message, nil)
			}
		}

		// huma reports schema failures as a list of *huma.ErrorDetail.
		fields := map[string]string{}
		for _, err := range errs {
			var detail *huma.ErrorDetail
			if errors.As(err, &detail) && detail.Location != "" {
				fields[detail.Location] = detail.Message
			}
		}
		if len(fields) == 0 {
			fields = nil
		}

		return newAPIError(status, statusToCode(status), message, fields)
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	if status == http.StatusTooManyRequests {
		return "RATE_LIMITED"
	}
	return string(domainerrors.CodeForStatus(status))
}
