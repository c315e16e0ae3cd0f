package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"fyersbot/go_src/market_history"

	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Establish today's Fyers session, reusing the cached token when present",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			if force {
				if app.Cache != nil {
					if err := app.Cache.Clear(); err != nil {
						return err
					}
				}
				app.ResetSession()
			}
			if _, err := app.Client(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session ready for %s\n", app.Auth.ClientID())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Ignore the cached session and log in again")
	return cmd
}

func newProfileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the account profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), profile.Data)
		},
	}
}

type fetchFlags struct {
	from, to    string
	resolution  string
	rollup      bool
	continuous  bool
	parquetPath string
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	fromDay, err := market_history.ParseDay(from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	toDay := market_history.Day(time.Now().In(market_history.IST))
	if to != "" {
		if toDay, err = market_history.ParseDay(to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
	}
	return fromDay, toDay, nil
}

func newFetchCmd(c *cli) *cobra.Command {
	f := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch SYMBOL",
		Short: "Download history for one symbol and print it as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseRange(f.from, f.to)
			if err != nil {
				return err
			}
			resolution := f.resolution
			if resolution == "" {
				resolution = c.cfg.History.Resolution
			}
			req, err := market_history.NewHistoryRequest(args[0], resolution, from, to, f.continuous)
			if err != nil {
				return err
			}
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			pipeline, err := app.Pipeline()
			if err != nil {
				return err
			}
			var bars []market_history.Bar
			if f.rollup {
				bars, err = pipeline.DailyRollup(cmd.Context(), req)
			} else {
				bars, err = pipeline.Fetch(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			if f.parquetPath != "" {
				if err := market_history.WriteParquet(f.parquetPath, bars); err != nil {
					return err
				}
			}
			writeBars(cmd.OutOrStdout(), bars)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.from, "from", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.resolution, "resolution", "", "Candle resolution (default history.resolution)")
	cmd.Flags().BoolVar(&f.rollup, "rollup", false, "Collapse to one forward-filled row per calendar day")
	cmd.Flags().BoolVar(&f.continuous, "continuous", false, "Request continuous futures data")
	cmd.Flags().StringVar(&f.parquetPath, "parquet", "", "Also write the rows to this parquet file")
	cmd.MarkFlagRequired("from")
	return cmd
}

func writeBars(w io.Writer, bars []market_history.Bar) {
	fmt.Fprintln(w, "symbol,date,open,high,low,close,volume,filled")
	for _, b := range bars {
		fmt.Fprintf(w, "%s,%s,%g,%g,%g,%g,%g,%t\n", b.Symbol, b.DateString(), b.Open, b.High, b.Low, b.Close, b.Volume, b.Filled)
	}
}

func newUpdateCmd(c *cli) *cobra.Command {
	var symbols []string
	var exportParquet bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Bring the bar store up to date for the configured symbols or index",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				if symbols, err = app.Symbols(cmd.Context()); err != nil {
					return err
				}
			}
			pipeline, err := app.Pipeline()
			if err != nil {
				return err
			}
			store, err := app.OpenStore(c.inMemory)
			if err != nil {
				return err
			}
			updater, err := app.Updater(pipeline, store)
			if err != nil {
				return err
			}
			summary := updater.Update(cmd.Context(), symbols)
			fmt.Fprintf(cmd.OutOrStdout(), "updated=%d unchanged=%d failed=%d bars=%d\n",
				len(summary.Updated), len(summary.Skipped), len(summary.Failed), summary.Bars)
			if exportParquet {
				return updater.ExportParquet(cmd.Context(), c.cfg.History.ParquetPath)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols to update (default history.symbols or the index members)")
	cmd.Flags().BoolVar(&exportParquet, "parquet", false, "Export the whole store to history.parquet_path afterwards")
	return cmd
}

func newSymbolsCmd(c *cli) *cobra.Command {
	var indexURL string
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Resolve index constituents to Fyers symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp()
			if err != nil {
				return err
			}
			if indexURL != "" {
				app.Config.History.IndexURL = indexURL
				app.Config.History.Symbols = nil
			}
			symbols, err := app.Symbols(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(symbols, "\n"))
			return nil
		},
	}
	cmd.Flags().StringVar(&indexURL, "index-url", "", "Index constituent CSV (default history.index_url)")
	return cmd
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the loaded configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Print one value by dotted key, e.g. history.workers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := c.cfg.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), value)
		},
	})
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
