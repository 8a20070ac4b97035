package broadcast

import (
	"context"
	"errors"

	"drawphone/internal/game"
)

// Multi publishes to every gateway and joins their errors.
type Multi []game.Gateway

func (m Multi) Publish(ctx context.Context, code string, ev game.Event) error {
	var errs []error
	for _, gateway := range m {
		if err := gateway.Publish(ctx, code, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
