package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by FromEnv.
const (
	EnvReceivePort      = "PURITY_RECEIVE_PORT"
	EnvSendPort         = "PURITY_SEND_PORT"
	EnvHost             = "PURITY_HOST"
	EnvListenHost       = "PURITY_LISTEN_HOST"
	EnvNetwork          = "PURITY_NETWORK"
	EnvConnectTimeout   = "PURITY_CONNECT_TIMEOUT"
	EnvHandshakeTimeout = "PURITY_HANDSHAKE_TIMEOUT"
	EnvWriteTimeout     = "PURITY_WRITE_TIMEOUT"
	EnvPongTimeout      = "PURITY_PONG_TIMEOUT"
	EnvSendRate         = "PURITY_SEND_RATE"
	EnvPdPath           = "PURITY_PD_PATH"
	EnvPdArgs           = "PURITY_PD_ARGS"
	EnvLaunch           = "PURITY_LAUNCH"
	EnvLaunchTimeout    = "PURITY_LAUNCH_TIMEOUT"
)

// FromEnv returns Defaults overridden by PURITY_* environment variables.
//
// The given dotenv files are loaded first; variables already set in the
// environment win. A missing file is not an error. With no files, ".env"
// in the working directory is tried.
func FromEnv(files ...string) (*Options, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	o := Defaults()

	if err := loadEnvInt(&o.ReceivePort, EnvReceivePort); err != nil {
		return nil, err
	}

	if err := loadEnvInt(&o.SendPort, EnvSendPort); err != nil {
		return nil, err
	}

	loadEnvString(&o.Host, EnvHost)
	loadEnvString(&o.ListenHost, EnvListenHost)
	loadEnvString(&o.Network, EnvNetwork)
	loadEnvString(&o.PdPath, EnvPdPath)

	if v := os.Getenv(EnvPdArgs); v != "" {
		o.PdArgs = strings.Fields(v)
	}

	durations := []struct {
		target *time.Duration
		key    string
	}{
		{&o.ConnectTimeout, EnvConnectTimeout},
		{&o.HandshakeTimeout, EnvHandshakeTimeout},
		{&o.WriteTimeout, EnvWriteTimeout},
		{&o.PongTimeout, EnvPongTimeout},
		{&o.LaunchTimeout, EnvLaunchTimeout},
	}
	for _, d := range durations {
		if err := loadEnvDuration(d.target, d.key); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv(EnvLaunch); v != "" {
		launch, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean for %s: %w", EnvLaunch, err)
		}

		o.Launch = launch
	}

	if v := os.Getenv(EnvSendRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float for %s: %w", EnvSendRate, err)
		}

		o.SendRate = rate
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}

	return o, nil
}

func loadEnvString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func loadEnvInt(target *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %w", key, err)
	}

	*target = n

	return nil
}

// loadEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func loadEnvDuration(target *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		*target = time.Duration(secs * float64(time.Second))

		return nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}

	*target = d

	return nil
}
