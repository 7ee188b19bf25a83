package cli

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wagiedev/purity-go/internal/errors"
)

const (
	// MinimumVersion is the oldest Pd release known to speak TCP FUDI on
	// both [netsend] and [netreceive].
	MinimumVersion = "0.47.0"

	// VersionCheckTimeout is the timeout for the pd -version command.
	VersionCheckTimeout = 2 * time.Second

	// SkipVersionCheckEnv disables the version check when set.
	SkipVersionCheckEnv = "PURITY_SKIP_VERSION_CHECK"
)

var versionPattern = regexp.MustCompile(`Pd-([0-9]+\.[0-9]+(?:\.[0-9]+)?)`)

// Config holds configuration for Pd discovery.
type Config struct {
	// PdPath is an explicit binary path that skips PATH search.
	PdPath string

	// SkipVersionCheck skips version validation during discovery.
	SkipVersionCheck bool

	// Logger is an optional logger for discovery operations.
	Logger *slog.Logger
}

// Discoverer locates the pd binary.
type Discoverer interface {
	// Discover returns the path of the pd binary or *PdNotFoundError.
	Discover(ctx context.Context) (string, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "discovery"),
	}
}

// Discover locates the pd binary and checks its version.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	d.log.Debug("Discovering pd binary")

	pdPath, err := d.findPd()
	if err != nil {
		d.log.Error("Failed to find pd", "error", err)

		return "", err
	}

	d.log.Debug("Found pd binary", "pd_path", pdPath)

	d.checkVersion(ctx, pdPath)

	return pdPath, nil
}

func (d *discoverer) findPd() (string, error) {
	if d.cfg.PdPath != "" {
		if _, err := os.Stat(d.cfg.PdPath); err == nil {
			return d.cfg.PdPath, nil
		}

		return "", &errors.PdNotFoundError{SearchedPaths: []string{d.cfg.PdPath}}
	}

	searchedPaths := []string{"$PATH"}

	if path, err := exec.LookPath("pd"); err == nil {
		return path, nil
	}

	for _, path := range commonPaths() {
		searchedPaths = append(searchedPaths, path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found pd at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("pd not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.PdNotFoundError{SearchedPaths: searchedPaths}
}

// commonPaths lists install locations outside PATH, newest macOS bundle
// first.
func commonPaths() []string {
	paths := []string{
		"/usr/local/bin/pd",
		"/usr/bin/pd",
		"/opt/homebrew/bin/pd",
	}

	bundles, _ := filepath.Glob("/Applications/Pd-*.app/Contents/Resources/bin/pd")
	for i := len(bundles) - 1; i >= 0; i-- {
		paths = append(paths, bundles[i])
	}

	return paths
}

// checkVersion logs a warning when pd is older than MinimumVersion.
// Failures to run or parse pd -version are ignored.
func (d *discoverer) checkVersion(ctx context.Context, pdPath string) {
	if d.cfg.SkipVersionCheck || os.Getenv(SkipVersionCheckEnv) != "" {
		d.log.Debug("Skipping pd version check")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	// pd prints its version banner on stderr.
	output, err := exec.CommandContext(ctx, pdPath, "-version").CombinedOutput()
	if err != nil {
		d.log.Debug("pd version check failed", "error", err)

		return
	}

	version, ok := ParseVersion(string(output))
	if !ok {
		d.log.Debug("Could not parse pd version", "output", strings.TrimSpace(string(output)))

		return
	}

	if compareVersions(version, MinimumVersion) < 0 {
		d.log.Warn("pd version is older than supported",
			"version", version,
			"minimum_required", MinimumVersion,
		)

		return
	}

	d.log.Debug("pd version check passed", "version", version, "minimum", MinimumVersion)
}

// ParseVersion extracts "X.Y.Z" from a pd -version banner such as
// "Pd-0.54.1 ("") compiled 10:12:01 Oct  2 2023".
func ParseVersion(banner string) (string, bool) {
	match := versionPattern.FindStringSubmatch(banner)
	if match == nil {
		return "", false
	}

	return match[1], true
}

// compareVersions compares two dotted versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		aNum := 0
		bNum := 0

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(aParts[i])
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(bParts[i])
		}

		if aNum != bNum {
			if aNum < bNum {
				return -1
			}

			return 1
		}
	}

	return 0
}
