package config

import "context"

// Launcher starts and stops the Pd process a session talks to.
//
// The default implementation is subprocess.PdLauncher. Custom launchers
// can be injected via Options.Launcher, e.g. to attach to an instance
// started elsewhere.
type Launcher interface {
	// Start launches the process. It returns once the process is running,
	// not once it is ready to accept connections.
	Start(ctx context.Context) error

	// Pid returns the process ID, or 0 if unknown.
	Pid() int

	// Done is closed when the process exits.
	Done() <-chan struct{}

	// Close terminates the process. It's safe to call Close multiple times.
	Close() error
}
