package command

// root.go defines the root command and the connection flags shared by all
// subcommands.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	purity "github.com/wagiedev/purity-go"
	"github.com/wagiedev/purity-go/internal/config"
)

// rootFlags holds the persistent flags. Unset flags fall back to PURITY_*
// environment variables, then to the defaults.
type rootFlags struct {
	envFile          string
	receivePort      int
	sendPort         int
	host             string
	network          string
	pdPath           string
	pdArgs           []string
	launch           bool
	handshakeTimeout time.Duration
	logLevel         string

	// log is set once options are resolved.
	log *slog.Logger
}

// NewRootCmd builds the purity command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootFlags{})
}

func newRootCmd(flags *rootFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "purity",
		Short: "purity - drive Pure Data over FUDI",
		Long: `purity talks to a Pure Data instance running the purity patch. It sends
messages to Pd's [netreceive] and waits for the patch to announce itself with
__connected__ on the connection Pd's [netsend] opens back, before sending
anything.

Connection settings come from flags, then PURITY_* environment variables
(optionally loaded from a .env file), then defaults.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with PURITY_* settings")
	pf.IntVar(&flags.receivePort, "receive-port", config.DefaultReceivePort, "port Pd's [netsend] connects back to")
	pf.IntVar(&flags.sendPort, "send-port", config.DefaultSendPort, "port Pd's [netreceive] listens on")
	pf.StringVar(&flags.host, "host", config.DefaultHost, "host running Pd")
	pf.StringVar(&flags.network, "network", config.DefaultNetwork, "outbound transport: tcp or udp")
	pf.StringVar(&flags.pdPath, "pd", "", "path to the pd binary used with --launch")
	pf.StringSliceVar(&flags.pdArgs, "pd-arg", nil, "extra argument for pd, repeatable (e.g. --pd-arg=-open --pd-arg=purity.pd)")
	pf.BoolVar(&flags.launch, "launch", false, "start pd before connecting")
	pf.DurationVar(&flags.handshakeTimeout, "handshake-timeout", config.DefaultHandshakeTimeout, "wait for __connected__ at most this long")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		newSendCmd(flags),
		newApplyCmd(flags),
		newPingCmd(flags),
		newMCPCmd(flags),
	)

	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

// options merges environment settings with the flags set on cmd.
func (f *rootFlags) options(cmd *cobra.Command) (*config.Options, error) {
	opts, err := config.FromEnv(f.envFile)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed

	if changed("receive-port") {
		opts.ReceivePort = f.receivePort
	}

	if changed("send-port") {
		opts.SendPort = f.sendPort
	}

	if changed("host") {
		opts.Host = f.host
	}

	if changed("network") {
		opts.Network = f.network
	}

	if changed("pd") {
		opts.PdPath = f.pdPath
	}

	if changed("pd-arg") {
		opts.PdArgs = f.pdArgs
	}

	if changed("launch") {
		opts.Launch = f.launch
	}

	if changed("handshake-timeout") {
		opts.HandshakeTimeout = f.handshakeTimeout
	}

	level, err := parseLevel(f.logLevel)
	if err != nil {
		return nil, err
	}

	opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	f.log = opts.Logger

	if opts.Launch {
		opts.PdStderr = func(line string) {
			fmt.Fprintln(cmd.ErrOrStderr(), "pd:", line)
		}
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// withClient connects using the merged options, runs fn, then closes the
// client. Interrupts cancel ctx.
func (f *rootFlags) withClient(cmd *cobra.Command, fn func(ctx context.Context, c purity.Client) error) error {
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return purity.WithClient(ctx, func(c purity.Client) error {
		return fn(ctx, c)
	}, purity.WithOptions(opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}

	return level, nil
}
