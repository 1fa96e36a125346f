package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/snapcook/internal/capture"
	"github.com/hammamikhairi/snapcook/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "generate",
	Short:   "Run in the background: stream progress, export metrics, scan an inbox",
	Long: `Serve a WebSocket progress feed and Prometheus metrics while keeping the
collection refreshed from the remote store.

Endpoints:
  ws://<addr>/ws       generation and sync envelopes as JSON
  http://<addr>/health liveness and connected client count
  http://<addr>/metrics Prometheus metrics

With --inbox, every image dropped into the directory is scanned as a
receipt, one at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		inbox, _ := cmd.Flags().GetString("inbox")

		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if inbox != "" {
				if err := a.requireModel(); err != nil {
					return err
				}
			}

			srv := server.New(a.log, a.metrics)
			if err := srv.Start(addr); err != nil {
				return err
			}
			defer srv.Stop()

			syncEvents, unsubscribeSync := a.store.Subscribe()
			defer unsubscribeSync()
			go srv.FollowSync(ctx, syncEvents)

			if a.gen != nil {
				states, unsubscribeGen := a.gen.Subscribe()
				defer unsubscribeGen()
				go srv.FollowGeneration(ctx, states)
			}

			defer a.startRefresh(ctx)()

			fmt.Printf("Feed:    ws://%s/ws\n", srv.Addr())
			fmt.Printf("Metrics: http://%s/metrics\n", srv.Addr())
			fmt.Println("Press Ctrl+C to stop...")

			if inbox != "" {
				return scanInbox(ctx, a, inbox)
			}
			<-ctx.Done()
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().String("inbox", "", "directory to scan receipts from continuously")
	rootCmd.AddCommand(serveCmd)
}

// scanInbox generates recipes from each receipt dropped into dir until ctx
// ends.
func scanInbox(ctx context.Context, a *app, dir string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	dev := capture.NewInboxDevice(dir, a.log)
	defer dev.Close()
	bridge := capture.NewBridge(dev, a.log)

	fmt.Printf("Scanning receipts from %s\n", dir)
	for ctx.Err() == nil {
		err := a.gen.CaptureAndGenerate(ctx, bridge)
		switch {
		case err == nil:
			a.gen.Wait()
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, capture.ErrDeviceNotFound), errors.Is(err, capture.ErrAuthorizationDenied):
			return err
		default:
			a.log.Warn("inbox: %v", err)
		}
	}
	return nil
}
