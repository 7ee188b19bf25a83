// Package purity drives a running Pure Data instance over FUDI, the ASCII
// message protocol of Pd's [netsend] and [netreceive] objects.
//
// A client owns two connections to one Pd instance. Messages to Pd travel
// over an outbound connection to Pd's [netreceive]. Pd talks back over an
// inbound connection its [netsend] opens to the client's listener. Once the
// patch has accepted the outbound connection it sends __connected__ on the
// inbound one and the session becomes Ready; only then are messages sent.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	client := purity.NewClient()
//	defer client.Close()
//
//	if err := client.Start(ctx,
//	    purity.WithReceivePort(15555),
//	    purity.WithSendPort(17777),
//	); err != nil {
//	    log.Fatal(err)
//	}
//
//	err := client.Send(ctx, "obj", purity.Int(10), purity.Int(10), purity.String("osc~"), purity.Int(440))
//
// # Launching Pd
//
// Launch starts pd in -nogui mode and connects once the patch is listening:
//
//	client, err := purity.Launch(ctx,
//	    purity.WithPdArgs("-open", "purity.pd"),
//	    purity.WithPdStderr(func(line string) { fmt.Fprintln(os.Stderr, line) }),
//	)
//
// # Patches
//
// A Patch is an ordered batch of messages. ApplyPatch stops at the first
// failure and reports how far it got:
//
//	patch, err := purity.ReadPatchFile("synth.fudi")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.ApplyPatch(ctx, patch); err != nil {
//	    if patchErr, ok := errors.AsType[*purity.PatchError](err); ok {
//	        log.Printf("stopped at message %d", patchErr.Index)
//	    }
//	}
//
// # Inbound Messages
//
// Register handlers before Start. Each runs on the listener's dispatch
// goroutine, one message at a time:
//
//	client.Handle("bang", purity.HandlerFunc(
//	    func(ctx context.Context, conn *purity.Conn, atoms []purity.Atom) error {
//	        return conn.Send(ctx, "ack")
//	    },
//	))
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	err := client.Start(ctx, purity.WithLogger(logger))
//
// # Error Handling
//
// The package provides typed errors for different failure scenarios:
//
//	_, err := purity.Launch(ctx)
//	if err != nil {
//	    if nf, ok := errors.AsType[*purity.PdNotFoundError](err); ok {
//	        log.Fatalf("pd not installed, searched: %v", nf.SearchedPaths)
//	    }
//
//	    if _, ok := errors.AsType[*purity.ConnectError](err); ok {
//	        log.Fatal("pd is not listening")
//	    }
//	}
//
// # MCP
//
// NewMCPServer and ServeMCP expose a started client as Model Context
// Protocol tools, so an MCP host can patch Pd.
package purity
