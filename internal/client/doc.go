// Package client implements the Client that ties a protocol.Session to an
// optional Pd process.
//
// A Client:
//   - Collects handlers before Start and installs them on the session
//   - Launches Pd through a config.Launcher when Options.Launch is set
//   - Retries the outbound dial while a launched Pd is still loading
//   - Ends the session when the launched Pd exits
//
// The root purity package wraps Client behind its public interface.
package client
