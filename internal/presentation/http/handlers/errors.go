package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/forms"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/api"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/blob"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/payments"
)

// ErrorMessage is the body of every JSON error.
type ErrorMessage struct {
	Message string `json:"message"`
}

// ErrorResponse is the uniform JSON error shape: {"error":{"message":...}}.
type ErrorResponse struct {
	Error ErrorMessage `json:"error"`
}

func errorBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorMessage{Message: message}}
}

// abortWithError answers status with the uniform error body.
func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody(message))
}

// abortWithErr maps err to a status and a message safe to show users.
func abortWithErr(c *gin.Context, err error) {
	_ = c.Error(err)
	abortWithError(c, statusFor(err), messageFor(err))
}

// statusFor maps service and infrastructure errors to HTTP statuses.
func statusFor(err error) int {
	var validation *services.ValidationError
	var fieldErrs forms.FieldErrors
	var statusErr *api.StatusError
	var decodeErr *api.DecodeError
	switch {
	case errors.As(err, &validation), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrBadSignature), errors.Is(err, payments.ErrInvalidPayload), errors.Is(err, email.ErrBadSignature):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrInvalidSignInLink):
		return http.StatusBadRequest
	case errors.Is(err, blob.ErrInvalidContainer), errors.Is(err, blob.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, api.ErrNotFound), errors.Is(err, blob.ErrNotFound), errors.Is(err, services.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, payments.ErrNotConfigured), errors.Is(err, services.ErrNoAdminInbox):
		return http.StatusServiceUnavailable
	case errors.As(err, &statusErr), errors.As(err, &decodeErr), api.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns text safe to show users. Validation messages are
// passed through; guild API failures use the API's user message.
func messageFor(err error) string {
	var validation *services.ValidationError
	var fieldErrs forms.FieldErrors
	switch status := statusFor(err); {
	case errors.As(err, &validation), errors.As(err, &fieldErrs):
		return err.Error()
	case status == http.StatusBadGateway || errors.Is(err, api.ErrNotFound):
		return api.UserMessage(err)
	case status < http.StatusInternalServerError:
		return err.Error()
	case status == http.StatusServiceUnavailable:
		return "This feature is not available right now."
	default:
		return "Something went wrong. Please try again."
	}
}
