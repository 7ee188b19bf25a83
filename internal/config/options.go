// Package config provides configuration types for purity sessions.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/wagiedev/purity-go/internal/hook"
)

// Default values used by Defaults.
const (
	DefaultReceivePort      = 15555
	DefaultSendPort         = 17777
	DefaultHost             = "localhost"
	DefaultNetwork          = "tcp"
	DefaultConnectTimeout   = 5 * time.Second
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultPongTimeout      = 5 * time.Second
	DefaultLaunchTimeout    = 10 * time.Second
)

// Options configures a purity session and, optionally, the Pd process it
// talks to.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// ListenHost is the interface the inbound listener binds to.
	// Empty binds all interfaces.
	ListenHost string

	// ReceivePort is the port Pd connects back to. 0 picks an ephemeral port.
	ReceivePort int

	// Host is the address of the Pd instance receiving outbound messages.
	Host string

	// SendPort is the port Pd's [netreceive] listens on.
	SendPort int

	// Network is the outbound transport, "tcp" or "udp".
	// The inbound listener is always TCP.
	Network string

	// ConnectTimeout bounds the outbound dial.
	ConnectTimeout time.Duration

	// HandshakeTimeout bounds the wait for __connected__ after connecting.
	// Zero waits until the caller's context is done.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single outbound write.
	WriteTimeout time.Duration

	// PongTimeout bounds the wait for __pong__ after a ping.
	PongTimeout time.Duration

	// SendRate limits outbound messages per second. Zero disables pacing.
	SendRate float64

	// SendBurst is the burst size allowed when SendRate is set.
	SendBurst int

	// Hooks observe session events such as state changes.
	Hooks hook.Hooks `json:"-"`

	// Launch starts Pd through Launcher before connecting.
	Launch bool

	// LaunchTimeout bounds how long a launched Pd may take to accept the
	// outbound connection.
	LaunchTimeout time.Duration

	// PdPath is the explicit path of the pd binary. Empty searches PATH
	// and common install locations.
	PdPath string

	// PdArgs are extra arguments passed to pd after -nogui.
	PdArgs []string

	// PdStderr receives each line pd writes to stderr.
	PdStderr func(string)

	// Launcher overrides how Pd is started. If nil, a subprocess launcher
	// is created from PdPath and PdArgs.
	Launcher Launcher `json:"-"`
}

// Defaults returns options populated with the default ports, host,
// network and timeouts.
func Defaults() *Options {
	return &Options{
		ReceivePort:      DefaultReceivePort,
		SendPort:         DefaultSendPort,
		Host:             DefaultHost,
		Network:          DefaultNetwork,
		ConnectTimeout:   DefaultConnectTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		PongTimeout:      DefaultPongTimeout,
		LaunchTimeout:    DefaultLaunchTimeout,
	}
}

// ApplyDefaults fills empty host, network and timeout fields.
// Ports are left alone since 0 is a meaningful receive port.
func (o *Options) ApplyDefaults() {
	if o.Host == "" {
		o.Host = DefaultHost
	}

	if o.Network == "" {
		o.Network = DefaultNetwork
	}

	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}

	if o.WriteTimeout == 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}

	if o.PongTimeout == 0 {
		o.PongTimeout = DefaultPongTimeout
	}

	if o.LaunchTimeout == 0 {
		o.LaunchTimeout = DefaultLaunchTimeout
	}
}

// Validate checks port ranges, the network and timeout signs.
// All problems are reported together.
func (o *Options) Validate() error {
	var problems []error

	if o.ReceivePort < 0 || o.ReceivePort > 65535 {
		problems = append(problems, fmt.Errorf("receive port %d out of range", o.ReceivePort))
	}

	if o.SendPort < 1 || o.SendPort > 65535 {
		problems = append(problems, fmt.Errorf("send port %d out of range", o.SendPort))
	}

	switch o.Network {
	case "tcp", "tcp4", "tcp6", "udp", "udp4", "udp6":
	default:
		problems = append(problems, fmt.Errorf("unsupported network %q", o.Network))
	}

	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"connect timeout", o.ConnectTimeout},
		{"handshake timeout", o.HandshakeTimeout},
		{"write timeout", o.WriteTimeout},
		{"pong timeout", o.PongTimeout},
		{"launch timeout", o.LaunchTimeout},
	}
	for _, t := range timeouts {
		if t.d < 0 {
			problems = append(problems, fmt.Errorf("%s must not be negative", t.name))
		}
	}

	if o.SendRate < 0 {
		problems = append(problems, errors.New("send rate must not be negative"))
	}

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("invalid options: %w", errors.Join(problems...))
}

// ListenAddr is the address the inbound listener binds.
func (o *Options) ListenAddr() string {
	return net.JoinHostPort(o.ListenHost, strconv.Itoa(o.ReceivePort))
}

// PeerAddr is the address the outbound endpoint dials.
func (o *Options) PeerAddr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.SendPort))
}
