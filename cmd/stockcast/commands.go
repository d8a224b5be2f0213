package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/spf13/cobra"
)

const defaultCommandTimeout = 2 * time.Minute

// Forecaster is the part of the forecast service the CLI drives.
type Forecaster interface {
	Predict(ctx context.Context, symbol, timeframe string) (*domain.Report, error)
	Top(ctx context.Context) (domain.TopList, error)
	Info(ctx context.Context, symbol string) (domain.StockInfo, error)
	Search(query string) []domain.TickerListing
}

// opener builds the forecast stack on demand and returns its release func.
type opener func(ctx context.Context, verbose bool) (Forecaster, func(), error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "stockcast",
		Short:        "Technical-analysis stock forecasts from the terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("json", false, "print raw JSON instead of formatted text")
	root.PersistentFlags().Bool("verbose", false, "log at the configured LOG_LEVEL instead of warn")
	root.PersistentFlags().Duration("timeout", defaultCommandTimeout, "overall command timeout")

	root.AddCommand(newPredictCmd(open))
	root.AddCommand(newTopCmd(open))
	root.AddCommand(newInfoCmd(open))
	root.AddCommand(newSearchCmd(open))
	return root
}

func newPredictCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <symbol>",
		Short: "Run the forecast pipeline for a symbol",
		Example: `  stockcast predict AAPL
  stockcast predict msft --timeframe 1w
  stockcast predict NVDA --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeframe, _ := cmd.Flags().GetString("timeframe")
			return withForecaster(cmd, open, func(ctx context.Context, f Forecaster) error {
				rep, err := f.Predict(ctx, args[0], timeframe)
				if err != nil {
					return err
				}
				if asJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), rep)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderReport(*rep))
				return err
			})
		},
	}
	cmd.Flags().StringP("timeframe", "t", domain.Timeframe1D, "forecast horizon (1h, 1d or 1w)")
	return cmd
}

func newTopCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Rank the fixed top-stock universe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withForecaster(cmd, open, func(ctx context.Context, f Forecaster) error {
				top, err := f.Top(ctx)
				if err != nil {
					return err
				}
				if asJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), top)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTop(top))
				return err
			})
		},
	}
}

func newInfoCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "info <symbol>",
		Short: "Show company details for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withForecaster(cmd, open, func(ctx context.Context, f Forecaster) error {
				info, err := f.Info(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), info)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderInfo(info))
				return err
			})
		},
	}
}

func newSearchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the ticker catalog by symbol or name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withForecaster(cmd, open, func(ctx context.Context, f Forecaster) error {
				results := f.Search(query)
				if asJSON(cmd) {
					return writeJSON(cmd.OutOrStdout(), results)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), renderSearch(query, results))
				return err
			})
		},
	}
}

func withForecaster(cmd *cobra.Command, open opener, fn func(context.Context, Forecaster) error) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	f, release, err := open(ctx, verbose)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, f)
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
