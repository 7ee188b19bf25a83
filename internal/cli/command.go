package cli

import (
	"slices"

	"github.com/wagiedev/purity-go/internal/config"
)

// BuildArgs constructs the pd command line: -nogui, then the configured
// arguments in order.
func BuildArgs(options *config.Options) []string {
	args := make([]string, 0, len(options.PdArgs)+1)
	args = append(args, "-nogui")

	for _, arg := range options.PdArgs {
		if arg == "-nogui" {
			continue
		}

		args = append(args, arg)
	}

	return args
}

// HasFlag reports whether args contain flag.
func HasFlag(args []string, flag string) bool {
	return slices.Contains(args, flag)
}
