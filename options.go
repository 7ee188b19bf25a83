package purity

import (
	"log/slog"
	"maps"
	"time"

	"github.com/wagiedev/purity-go/internal/config"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options on top of the defaults.
func applyOptions(opts []Option) *Options {
	options := config.Defaults()
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithOptions replaces the accumulated options with a copy of base, e.g. one
// loaded from the environment. Options after it still apply.
func WithOptions(base *Options) Option {
	return func(o *Options) {
		if base != nil {
			*o = *base
			o.Hooks = maps.Clone(base.Hooks)
		}
	}
}

// WithHook adds a callback for a session event. Callbacks run one at a
// time on a dedicated goroutine, in event order, and must not call Close.
//
//	purity.WithHook(purity.HookEventStateChange, func(_ context.Context, in purity.HookInput) {
//	    sc := in.(*purity.StateChangeInput)
//	    log.Printf("%s -> %s", sc.From, sc.To)
//	})
func WithHook(event HookEvent, callback HookCallback) Option {
	return func(o *Options) {
		if o.Hooks == nil {
			o.Hooks = make(map[HookEvent][]HookCallback)
		}

		o.Hooks[event] = append(o.Hooks[event], callback)
	}
}

// ===== Network =====

// WithReceivePort sets the port Pd's [netsend] connects back to.
// 0 binds an ephemeral port, see Client.ReceiveAddr.
func WithReceivePort(port int) Option {
	return func(o *Options) {
		o.ReceivePort = port
	}
}

// WithListenHost sets the interface the inbound listener binds to.
func WithListenHost(host string) Option {
	return func(o *Options) {
		o.ListenHost = host
	}
}

// WithSendPort sets the port Pd's [netreceive] listens on.
func WithSendPort(port int) Option {
	return func(o *Options) {
		o.SendPort = port
	}
}

// WithHost sets the host running Pd.
func WithHost(host string) Option {
	return func(o *Options) {
		o.Host = host
	}
}

// WithNetwork sets the outbound transport: "tcp" (default) or "udp".
func WithNetwork(network string) Option {
	return func(o *Options) {
		o.Network = network
	}
}

// ===== Timeouts =====

// WithConnectTimeout bounds the outbound dial.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

// WithHandshakeTimeout bounds the wait for __connected__.
// Zero waits until the Start context is done.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.HandshakeTimeout = d
	}
}

// WithWriteTimeout bounds a single outbound write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = d
	}
}

// WithPongTimeout bounds the wait for __pong__ after Ping.
func WithPongTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PongTimeout = d
	}
}

// WithSendRate paces outbound messages to rate per second with the given
// burst. A rate of 0 disables pacing.
func WithSendRate(rate float64, burst int) Option {
	return func(o *Options) {
		o.SendRate = rate
		o.SendBurst = burst
	}
}

// ===== Pd Process =====

// WithLaunch starts Pd before connecting, using the launcher from
// WithLauncher or the built-in subprocess launcher.
func WithLaunch() Option {
	return func(o *Options) {
		o.Launch = true
	}
}

// WithLaunchTimeout bounds how long a launched Pd may take to accept the
// outbound connection.
func WithLaunchTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.LaunchTimeout = d
	}
}

// WithLauncher sets a custom Launcher. Setting one implies WithLaunch.
func WithLauncher(l Launcher) Option {
	return func(o *Options) {
		o.Launcher = l
	}
}

// WithPdPath sets the explicit path to the pd binary.
func WithPdPath(path string) Option {
	return func(o *Options) {
		o.PdPath = path
	}
}

// WithPdArgs sets extra arguments for pd, e.g. "-open", "purity.pd".
// "-nogui" is always passed.
func WithPdArgs(args ...string) Option {
	return func(o *Options) {
		o.PdArgs = args
	}
}

// WithPdStderr sets a callback invoked for each line pd writes to stderr.
func WithPdStderr(fn func(line string)) Option {
	return func(o *Options) {
		o.PdStderr = fn
	}
}
