package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentride/internal/app/commands"
	handlers "rentride/internal/app/handlers/booking"
	"rentride/internal/app/policies"
	"rentride/internal/app/session"
	domainbooking "rentride/internal/domain/booking"
)

// statusFor maps command and session errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, domainbooking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainbooking.ErrDateConflict):
		return http.StatusConflict
	case errors.Is(err, domainbooking.ErrValidation),
		errors.Is(err, policies.ErrUnknownScope):
		return http.StatusBadRequest
	case errors.Is(err, handlers.ErrRetry),
		errors.Is(err, policies.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, commands.ErrHandlerNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError logs the full chain but shows gateway failures to the
// client only as the retry message.
func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusBadGateway {
		message = handlers.ErrRetry.Error()
	}
	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			"status", status,
			"error", err,
			"path", c.FullPath(),
			"request_id", c.GetString("request_id"))
	}
	body := gin.H{"error": message}
	var verr *domainbooking.ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		body["field"] = verr.Field
	}
	c.JSON(status, body)
}
