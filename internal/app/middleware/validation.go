package middleware

import (
	"context"

	"rentride/internal/app/commands"
)

// Validatable commands check their own shape before any handler runs.
type Validatable interface {
	Validate() error
}

// Validation rejects commands whose Validate fails, so malformed input never
// reaches a handler or the gateway behind it.
func Validation() CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if v, ok := cmd.(Validatable); ok {
				if err := v.Validate(); err != nil {
					return nil, err
				}
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}
