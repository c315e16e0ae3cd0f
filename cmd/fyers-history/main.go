package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/fyers_app"
	"fyersbot/go_src/logging_helper"

	"github.com/spf13/cobra"
)

const appName = "fyers-history"

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	inMemory   bool
	cfg        *configuration.Config
	app        *fyers_app.App
}

var newApp = fyers_app.New

func (c *cli) loadConfig() error {
	cfg, err := configuration.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.cfg = cfg
	return logging_helper.SetupLogging(cfg, appName)
}

// ensureApp builds the wired app on first use; config-only commands never need it.
func (c *cli) ensureApp() (*fyers_app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := newApp(c.cfg)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Fyers login, history download and incremental market data updates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", configuration.ConfigPath(), "Path to the JSON config file")
	root.PersistentFlags().BoolVar(&c.inMemory, "in-memory", false, "Use an in-memory database instead of database.path")

	root.AddCommand(
		newLoginCmd(c),
		newProfileCmd(c),
		newFetchCmd(c),
		newUpdateCmd(c),
		newSymbolsCmd(c),
		newConfigCmd(c),
	)
	return root
}

// execute runs one command line and releases whatever it opened, also on failure.
func execute(ctx context.Context, args []string, out io.Writer) error {
	c := &cli{}
	defer c.close()
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
