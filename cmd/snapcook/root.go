package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/snapcook/internal/config"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	quiet     bool
	logFile   string
	loadedCfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "snapcook",
	Short:         "Generate and sync recipes from receipts, ingredients and preferences",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{File: cfgFile, EnvFile: envFile})
		if err != nil {
			return err
		}
		switch {
		case quiet:
			cfg.Log.Level = "off"
		case verbose:
			cfg.Log.Level = "verbose"
		}
		if cmd.Flags().Changed("log-file") {
			cfg.Log.File = logFile
		}
		loadedCfg = cfg
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "generate", Title: "Generating recipes:"},
		&cobra.Group{ID: "collection", Title: "Your collection:"},
		&cobra.Group{ID: "account", Title: "Account:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./snapcook.toml or ~/.config/snapcook/snapcook.toml)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "disable all logging")
	pf.StringVar(&logFile, "log-file", "", "file to write logs to (use \"stderr\" to log to console)")
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// runWithApp wires the application, runs fn and waits for background
// remote writes before returning.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, loadedCfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
