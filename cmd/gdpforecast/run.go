package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sartorproj/gdpforecast/metrics"
	"github.com/sartorproj/gdpforecast/pipeline"
	"github.com/sartorproj/gdpforecast/timeseries"
)

type runOptions struct {
	panelFlags
	input     string
	actuals   string
	report    string
	forecasts string
	failOnAny bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Forecast every country in a panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd, global, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "panel of GDP levels (.csv, .tsv or .xlsx)")
	cmd.Flags().StringVar(&opts.actuals, "actuals", "", "panel of realized values over the forecast horizon")
	cmd.Flags().StringVarP(&opts.report, "report", "o", "report.json", "JSON report path")
	cmd.Flags().StringVar(&opts.forecasts, "forecasts", "", "CSV path for the level forecasts")
	cmd.Flags().BoolVar(&opts.failOnAny, "fail-on-error", false, "exit non-zero when any country fails")
	opts.register(cmd)
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runForecast(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	cfg, logger, err := setup(global)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	panel, err := opts.loadPanel(opts.input, cfg.Search.Frequency)
	if err != nil {
		return fmt.Errorf("load panel: %w", err)
	}
	var actuals *timeseries.Panel
	if opts.actuals != "" {
		if actuals, err = opts.loadPanel(opts.actuals, cfg.Search.Frequency); err != nil {
			return fmt.Errorf("load actuals: %w", err)
		}
	}
	logger.Info("panel loaded", zap.String("input", opts.input), zap.Int("countries", panel.Len()))

	recorder := metrics.New()
	runner := pipeline.NewRunner(cfg, logger, recorder)

	report, runErr := runner.Run(cmd.Context(), panel, actuals)
	if report == nil {
		return runErr
	}

	if err := report.SaveJSON(opts.report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if opts.forecasts != "" {
		if err := writeForecasts(opts.forecasts, report); err != nil {
			return fmt.Errorf("write forecasts: %w", err)
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics textfile not written", zap.Error(err))
		}
	}

	printSummary(cmd, report)

	if runErr != nil {
		return runErr
	}
	if failed := report.Failed(); opts.failOnAny && len(failed) > 0 {
		return fmt.Errorf("%d of %d countries failed", len(failed), len(report.Countries))
	}
	return nil
}

func writeForecasts(path string, report *pipeline.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return report.WriteForecastsCSV(f)
}

func printSummary(cmd *cobra.Command, report *pipeline.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d countries\n", report.RunID, len(report.Countries))
	for _, c := range report.Countries {
		if !c.OK() {
			fmt.Fprintf(out, "  %-6s FAILED: %v\n", c.Country, c.Err)
			continue
		}
		fmt.Fprintf(out, "  %-6s SARIMA%s lambda=%.3f CV RMSE=%.4f", c.Country, c.Selected.Order, c.Lambda, c.Selected.RMSE)
		if c.Accuracy != nil {
			fmt.Fprintf(out, " MAPE=%.2f%%", c.Accuracy.MAPE)
		}
		fmt.Fprintln(out)
	}
}
