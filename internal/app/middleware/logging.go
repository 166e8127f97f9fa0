package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentride/internal/app/commands"
	"rentride/internal/app/policies"
	"rentride/internal/domain/booking"
)

// Logging records every dispatched command with its outcome. Validation
// failures are the user's to fix and log at Info; transport failures at Error.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		return nil
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration_ms", time.Since(start).Milliseconds()}
			switch {
			case err == nil:
				logger.DebugContext(ctx, "command handled", attrs...)
			case errors.Is(err, booking.ErrValidation):
				logger.InfoContext(ctx, "command rejected", append(attrs, "error", err)...)
			case errors.Is(err, policies.ErrTransport):
				logger.ErrorContext(ctx, "command transport failure", append(attrs, "error", err)...)
			default:
				logger.WarnContext(ctx, "command failed", append(attrs, "error", err)...)
			}
			return res, err
		})
	}
}
