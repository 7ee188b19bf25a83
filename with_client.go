package purity

import (
	"context"
	"fmt"
)

// WithClient manages client lifecycle with automatic cleanup.
//
// This helper creates a client, starts it with the provided options, executes the
// callback function, and ensures proper cleanup via Close() when done.
//
// The callback receives a client whose session is Ready.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := purity.WithClient(ctx, func(c purity.Client) error {
//	    return c.Send(ctx, "obj", purity.Int(10), purity.Int(10), purity.String("dac~"))
//	},
//	    purity.WithLogger(log),
//	    purity.WithSendPort(17777),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := NewClient()
	if err := client.Start(ctx, opts...); err != nil {
		_ = client.Close()

		return fmt.Errorf("failed to start client: %w", err)
	}

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close client", "error", closeErr)
		}
	}()

	return fn(client)
}
