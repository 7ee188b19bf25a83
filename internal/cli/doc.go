// Package cli locates the Pd binary and builds its command line.
//
// # Discovery
//
// The Discoverer interface locates and validates the pd binary:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    PdPath: "",           // Optional explicit path
//	    Logger: slog.Default(),
//	})
//	pdPath, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.PdPath (if provided)
//  2. System PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin,
//     /opt/homebrew/bin, macOS application bundles)
//
// During discovery, the Pd version is compared against MinimumVersion and a
// warning is logged if it is older. Set Config.SkipVersionCheck or the
// PURITY_SKIP_VERSION_CHECK environment variable to skip the check.
//
// # Command Building
//
//	args := cli.BuildArgs(options)
package cli
