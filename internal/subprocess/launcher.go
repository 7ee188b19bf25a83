package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"github.com/wagiedev/purity-go/internal/cli"
	"github.com/wagiedev/purity-go/internal/config"
	"github.com/wagiedev/purity-go/internal/errors"
)

const (
	// maxScanTokenSize is the longest stderr line delivered to callbacks.
	maxScanTokenSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize caps the stderr kept for error reports. Reading
	// continues past the cap; only buffering stops.
	maxStderrBufferSize = 1024 * 1024 // 1MB
)

// PdLauncher implements config.Launcher by spawning a pd subprocess.
type PdLauncher struct {
	log            *slog.Logger
	options        *config.Options
	stderrCallback func(string)

	mu      sync.Mutex
	cmd     *exec.Cmd
	closing bool
	exitErr error

	stderrMu  sync.Mutex
	stderrBuf strings.Builder

	done chan struct{}
}

// Compile-time verification that PdLauncher implements config.Launcher.
var _ config.Launcher = (*PdLauncher)(nil)

// NewPdLauncher creates a launcher for the pd binary described by options.
//
// Discovery is deferred to Start, which searches:
//  1. The explicit path in options.PdPath (if provided)
//  2. The system PATH
//  3. Common installation directories
func NewPdLauncher(log *slog.Logger, options *config.Options) *PdLauncher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &PdLauncher{
		log:            log.With("component", "pd_launcher"),
		options:        options,
		stderrCallback: options.PdStderr,
		done:           make(chan struct{}),
	}
}

// Start discovers and spawns pd.
//
// The process is not bound to ctx: it keeps running until Close.
// Returns *PdNotFoundError if the binary cannot be located.
func (l *PdLauncher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return errors.ErrAlreadyStarted
	}

	if l.closing {
		return errors.ErrClosed
	}

	pdPath, err := cli.NewDiscoverer(&cli.Config{
		PdPath: l.options.PdPath,
		Logger: l.log,
	}).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover pd: %w", err)
	}

	args := cli.BuildArgs(l.options)
	if !cli.HasFlag(args, "-stderr") {
		args = slices.Insert(args, 1, "-stderr")
	}

	l.log.Debug("Built pd arguments", "pd_path", pdPath, "args", args)

	//nolint:gosec // G204: launching pd with configured args is the point
	cmd := exec.Command(pdPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		l.log.Error("Failed to start pd", "error", err)

		return fmt.Errorf("start pd: %w", err)
	}

	l.cmd = cmd
	l.log.Info("pd started", "pid", cmd.Process.Pid)

	go l.supervise(stderr)

	return nil
}

// supervise drains stderr, then reaps the process.
func (l *PdLauncher) supervise(stderr io.Reader) {
	defer close(l.done)

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()

		l.log.Debug("pd stderr", "line", line)

		if l.stderrCallback != nil {
			l.stderrCallback(line)
		}

		l.stderrMu.Lock()
		if l.stderrBuf.Len() < maxStderrBufferSize {
			l.stderrBuf.WriteString(line)
			l.stderrBuf.WriteByte('\n')
		}
		l.stderrMu.Unlock()
	}

	if err := scanner.Err(); err != nil {
		l.log.Warn("Stopped reading pd stderr", "error", err)
	}

	// Keep the pipe drained so pd never blocks writing stderr.
	_, _ = io.Copy(io.Discard, stderr)

	err := l.cmd.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closing {
		l.log.Debug("pd terminated during shutdown")

		return
	}

	exitCode := 0
	if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
		exitCode = exitErr.ExitCode()
	}

	l.stderrMu.Lock()
	output := strings.TrimSpace(l.stderrBuf.String())
	l.stderrMu.Unlock()

	if err == nil {
		l.log.Warn("pd exited")
	} else {
		l.log.Error("pd exited with error", "exit_code", exitCode, "stderr", output)
	}

	l.exitErr = &errors.ProcessError{ExitCode: exitCode, Stderr: output, Err: err}
}

// Pid returns the process ID, or 0 before Start.
func (l *PdLauncher) Pid() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd == nil || l.cmd.Process == nil {
		return 0
	}

	return l.cmd.Process.Pid
}

// Done is closed once the process has exited and been reaped.
func (l *PdLauncher) Done() <-chan struct{} {
	return l.done
}

// Err returns *ProcessError if pd exited on its own, nil otherwise.
func (l *PdLauncher) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.exitErr
}

// Close kills pd and waits for it to be reaped.
// It's safe to call Close multiple times or on an already-exited process.
func (l *PdLauncher) Close() error {
	l.mu.Lock()

	if l.closing {
		l.mu.Unlock()

		return nil
	}

	l.closing = true
	cmd := l.cmd
	l.mu.Unlock()

	if cmd == nil {
		return nil
	}

	select {
	case <-l.done:
		return nil
	default:
	}

	l.log.Debug("Killing pd", "pid", cmd.Process.Pid)

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pd (pid %d): %w", cmd.Process.Pid, err)
	}

	<-l.done

	return nil
}
