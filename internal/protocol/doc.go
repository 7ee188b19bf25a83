// Package protocol implements the dual-channel FUDI session used to talk to
// a running Pd instance.
//
// A Session owns two independent endpoints:
//   - a Listener that accepts connections from Pd and dispatches decoded
//     messages to handlers registered per selector
//   - a Sender that dials Pd's [netreceive] port and writes encoded messages
//
// Before any application message may be sent, the session runs a short
// handshake: it starts listening, connects outbound, then waits for Pd to
// send __connected__ over the inbound channel.
//
// Example usage:
//
//	session := protocol.NewSession(log, options)
//	if err := session.Connect(ctx); err != nil {
//		return err
//	}
//	defer session.Close()
//
//	err := session.Send(ctx, "obj", fudi.Int(10), fudi.Int(10), fudi.String("osc~"))
package protocol
