package purity

import (
	"context"
	"fmt"
	"slices"
)

// Launch starts Pd and connects a client to it. The returned client owns
// the process: Close stops both.
//
// Pass WithPdArgs("-open", "purity.pd") so the patch carrying the
// [netreceive]/[netsend] pair is loaded. Returns *PdNotFoundError if pd
// cannot be located.
func Launch(ctx context.Context, opts ...Option) (Client, error) {
	client := NewClient()

	if err := client.Start(ctx, append(slices.Clone(opts), WithLaunch())...); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("launch: %w", err)
	}

	return client, nil
}
