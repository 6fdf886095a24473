package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"stock-oracle/internal/pipeline"
	"stock-oracle/internal/report"
	"stock-oracle/internal/threshold"
)

func newPredictCmd(rt *app, opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast the next session's direction for one ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cfg, closer, err := rt.forecaster(ctx, opts)
			if err != nil {
				return err
			}
			defer closer()

			res, err := svc.Run(ctx, opts.ticker, cfg.Algorithm)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(rt.out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(rt.out, report.RenderForecast(res))
			for _, m := range res.Degraded {
				fmt.Fprintf(rt.out, "warning: %s backend unavailable, ensemble ran without it\n", m)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func newCompareCmd(rt *app, opts *options) *cobra.Command {
	var out string
	var persist bool
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Train every model on one feature table and rank them by F1",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cfg, closer, err := rt.forecaster(ctx, opts)
			if err != nil {
				return err
			}
			defer closer()

			rows, err := svc.Compare(ctx, opts.ticker, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, report.RenderComparisons(rows))

			if out != "" {
				err := report.SaveFile(out, func(w io.Writer) error { return report.WriteComparisonsCSV(w, rows) })
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "Results saved to %s\n", out)
			}
			if !persist {
				return nil
			}
			store, closeStore, err := rt.store(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			runID, err := store.SaveComparisons(ctx, pipeline.NormalizeTicker(opts.ticker), cfg.Period, rows)
			if err != nil {
				return err
			}
			log.Info().Str("run_id", runID.String()).Msg("comparison persisted")
			fmt.Fprintf(rt.out, "Run %s stored\n", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "results.csv", "CSV output path, empty to skip")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store the comparison in Postgres")
	return cmd
}

func newSweepCmd(rt *app, opts *options) *cobra.Command {
	var out string
	var persist bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Replay the holdout across decision thresholds 0.30 to 0.70",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cfg, closer, err := rt.forecaster(ctx, opts)
			if err != nil {
				return err
			}
			defer closer()

			rep, err := svc.Sweep(ctx, opts.ticker, cfg.Algorithm, threshold.NewOptimizer(nil))
			if err != nil {
				return err
			}
			fmt.Fprint(rt.out, report.RenderSweep(rep))

			if out != "" {
				err := report.SaveFile(out, func(w io.Writer) error { return report.WriteSweepCSV(w, rep) })
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "Results saved to %s\n", out)
			}
			if !persist {
				return nil
			}
			store, closeStore, err := rt.store(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			runID, err := store.SaveSweep(ctx, rep)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Run %s stored\n", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "threshold_results.csv", "CSV output path, empty to skip")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store the sweep in Postgres")
	return cmd
}

func newHistoryCmd(rt *app, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the most recent stored comparison for a ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := rt.store(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			rows, err := store.LatestComparisons(ctx, pipeline.NormalizeTicker(opts.ticker))
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintf(rt.out, "No stored comparisons for %s\n", pipeline.NormalizeTicker(opts.ticker))
				return nil
			}
			fmt.Fprintln(rt.out, report.RenderComparisons(rows))
			return nil
		},
	}
}
