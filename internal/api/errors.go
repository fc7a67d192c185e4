package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	domainerrors "github.com/reelhouse/reelhouse-server/internal/errors"
	"github.com/reelhouse/reelhouse-server/internal/feed"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
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

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		// huma reports schema violations as a list of detail errors.
		if len(errs) > 0 && status == http.StatusUnprocessableEntity {
			details := make([]string, 0, len(errs))
			for _, err := range errs {
				details = append(details, err.Error())
			}
			apiErr.Details = details
		}
		return apiErr
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeSourceUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}

// mapFeedError converts feed and identity sentinels to domain errors.
func mapFeedError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, feed.ErrRowNotFound):
		return domainerrors.NotFound("row not found").WithCause(err)
	case errors.Is(err, feed.ErrClosed):
		return domainerrors.NotFound("feed session closed").WithCause(err)
	case errors.Is(err, feed.ErrSourceUnavailable):
		return domainerrors.SourceUnavailable("catalog unavailable").WithCause(err)
	case errors.Is(err, domain.ErrUnauthenticated):
		return domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	default:
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "internal error")
	}
}
