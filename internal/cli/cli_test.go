package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/purity-go/internal/config"
	"github.com/wagiedev/purity-go/internal/errors"
)

// TestDiscoverer_NotFound tests that an invalid pd path returns PdNotFoundError.
func TestDiscoverer_NotFound(t *testing.T) {
	discoverer := NewDiscoverer(&Config{
		PdPath:           "/nonexistent/path/to/pd",
		SkipVersionCheck: true,
		Logger:           slog.Default(),
	})

	_, err := discoverer.Discover(context.Background())

	require.Error(t, err)
	require.IsType(t, &errors.PdNotFoundError{}, err)
	require.Contains(t, err.Error(), "/nonexistent/path/to/pd")
}

// TestDiscoverer_ExplicitPath tests discovery with an explicit path.
func TestDiscoverer_ExplicitPath(t *testing.T) {
	fakePd := filepath.Join(t.TempDir(), "pd")

	err := os.WriteFile(fakePd, []byte("#!/bin/sh\necho 'Pd-0.54.1 compiled' >&2\n"), 0o755)
	require.NoError(t, err)

	discoverer := NewDiscoverer(&Config{
		PdPath: fakePd,
		Logger: slog.Default(),
	})

	path, err := discoverer.Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, fakePd, path)
}

// TestDiscoverer_SearchesPath tests that pd is found via PATH.
func TestDiscoverer_SearchesPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pd"), []byte("#!/bin/sh\n"), 0o755))

	t.Setenv("PATH", dir)
	t.Setenv(SkipVersionCheckEnv, "1")

	path, err := NewDiscoverer(nil).Discover(context.Background())

	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "pd"), path)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		banner string
		want   string
		ok     bool
	}{
		{banner: `Pd-0.54.1 ("") compiled 10:12:01 Oct  2 2023`, want: "0.54.1", ok: true},
		{banner: "Pd-0.47 compiled", want: "0.47", ok: true},
		{banner: "purr-data 2.19.3", ok: false},
		{banner: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.banner, func(t *testing.T) {
			got, ok := ParseVersion(tt.banner)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCompareVersions(t *testing.T) {
	require.Equal(t, -1, compareVersions("0.46.7", MinimumVersion))
	require.Equal(t, 0, compareVersions("0.47", "0.47.0"))
	require.Equal(t, 1, compareVersions("0.54.1", MinimumVersion))
	require.Equal(t, 1, compareVersions("1.0.0", "0.99.9"))
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(&config.Options{})
	require.Equal(t, []string{"-nogui"}, args)

	args = BuildArgs(&config.Options{PdArgs: []string{"-noaudio", "-nogui", "-open", "purity.pd"}})
	require.Equal(t, []string{"-nogui", "-noaudio", "-open", "purity.pd"}, args)
	require.True(t, HasFlag(args, "-open"))
	require.False(t, HasFlag(args, "-stderr"))
}
