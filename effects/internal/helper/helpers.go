package helper

import (
	"context"
	"fmt"

	effectmodel "github.com/davazp/iredb/effects/internal/model"
)

// GetHandler returns the handler installed in ctx for enum, or an error
// wrapping ErrNoEffectHandler.
func GetHandler(ctx context.Context, enum effectmodel.EffectEnum) (any, error) {
	if raw := ctx.Value(enum); raw != nil {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %s", effectmodel.ErrNoEffectHandler, enum)
}
