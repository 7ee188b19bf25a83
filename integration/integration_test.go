//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	purity "github.com/wagiedev/purity-go"
)

// handshakePatch answers __ping__ with __pong__ and announces
// __connected__ once the outbound connection arrives.
func handshakePatch(t *testing.T) string {
	t.Helper()

	path, err := filepath.Abs(filepath.Join("testdata", "handshake.pd"))
	require.NoError(t, err)

	return path
}

// skipIfPdNotInstalled skips the test if the error indicates pd is not found.
func skipIfPdNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*purity.PdNotFoundError](err); ok {
		t.Skip("pd not installed")
	}
}

// launch starts pd with the handshake patch and connects to it.
func launch(t *testing.T, opts ...purity.Option) purity.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	base := []purity.Option{
		purity.WithPdPath(os.Getenv("PURITY_PD_PATH")),
		purity.WithPdArgs("-nosound", "-nomidi", "-open", handshakePatch(t)),
		purity.WithPdStderr(func(line string) { t.Log("pd:", line) }),
		purity.WithHandshakeTimeout(10 * time.Second),
	}

	client, err := purity.Launch(ctx, append(base, opts...)...)
	if err != nil {
		skipIfPdNotInstalled(t, err)
		t.Fatalf("Launch failed: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}
