// Package subprocess launches Pure Data as a child process.
//
// PdLauncher implements config.Launcher. It locates the pd binary, starts it
// headless, forwards its stderr to the logger and an optional callback, and
// kills it on Close.
package subprocess
