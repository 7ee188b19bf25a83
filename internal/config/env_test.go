package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	o, err := FromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, Defaults().ReceivePort, o.ReceivePort)
	require.Equal(t, Defaults().Host, o.Host)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvReceivePort, "0")
	t.Setenv(EnvSendPort, "3000")
	t.Setenv(EnvHost, "10.0.0.2")
	t.Setenv(EnvNetwork, "udp")
	t.Setenv(EnvHandshakeTimeout, "2.5")
	t.Setenv(EnvConnectTimeout, "750ms")
	t.Setenv(EnvSendRate, "100")
	t.Setenv(EnvPdArgs, "-noaudio  -nomidi")
	t.Setenv(EnvLaunch, "true")

	o, err := FromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, 0, o.ReceivePort)
	require.Equal(t, 3000, o.SendPort)
	require.Equal(t, "10.0.0.2", o.Host)
	require.Equal(t, "udp", o.Network)
	require.Equal(t, 2500*time.Millisecond, o.HandshakeTimeout)
	require.Equal(t, 750*time.Millisecond, o.ConnectTimeout)
	require.InDelta(t, 100.0, o.SendRate, 0)
	require.Equal(t, []string{"-noaudio", "-nomidi"}, o.PdArgs)
	require.True(t, o.Launch)
}

func TestFromEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purity.env")
	require.NoError(t, os.WriteFile(path, []byte("PURITY_PD_PATH=/opt/pd/bin/pd\n"), 0o600))

	t.Cleanup(func() { _ = os.Unsetenv(EnvPdPath) })

	o, err := FromEnv(path)
	require.NoError(t, err)
	require.Equal(t, "/opt/pd/bin/pd", o.PdPath)
}

func TestFromEnv_EnvironmentBeatsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "purity.env")
	require.NoError(t, os.WriteFile(path, []byte("PURITY_HOST=from-file\n"), 0o600))

	t.Setenv(EnvHost, "from-env")

	o, err := FromEnv(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", o.Host)
}

func TestFromEnv_Invalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("bad integer", func(t *testing.T) {
		t.Setenv(EnvSendPort, "seventeen")

		_, err := FromEnv(missing)
		require.ErrorContains(t, err, EnvSendPort)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv(EnvPongTimeout, "soon")

		_, err := FromEnv(missing)
		require.ErrorContains(t, err, EnvPongTimeout)
	})

	t.Run("fails validation", func(t *testing.T) {
		t.Setenv(EnvNetwork, "unix")

		_, err := FromEnv(missing)
		require.ErrorContains(t, err, "unsupported network")
	})
}
