package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sartorproj/gdpforecast/crossval"
	"github.com/sartorproj/gdpforecast/pipeline"
	"github.com/sartorproj/gdpforecast/stats"
)

type selectOptions struct {
	panelFlags
	input   string
	country string
	top     int
}

func newSelectCmd(global *globalOptions) *cobra.Command {
	opts := &selectOptions{}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Show the model search and diagnostics for one country",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, global, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "panel of GDP levels (.csv, .tsv or .xlsx)")
	cmd.Flags().StringVar(&opts.country, "country", "", "country id")
	cmd.Flags().IntVar(&opts.top, "top", 10, "number of candidates to list")
	opts.register(cmd)
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}

func runSelect(cmd *cobra.Command, global *globalOptions, opts *selectOptions) error {
	cfg, logger, err := setup(global)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	panel, err := opts.loadPanel(opts.input, cfg.Search.Frequency)
	if err != nil {
		return fmt.Errorf("load panel: %w", err)
	}
	series, ok := panel.Get(opts.country)
	if !ok {
		return fmt.Errorf("country %q not in %s", opts.country, opts.input)
	}

	runner := pipeline.NewRunner(cfg, logger, nil)
	res, err := runner.ProcessCountry(cmd.Context(), opts.country, series, nil)
	printSelection(cmd.OutOrStdout(), res, opts.top)
	return err
}

func printSelection(out io.Writer, res *pipeline.CountryResult, top int) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintf(out, "%s\n%s\n%s\n", rule, res.Country, rule)
	if math.IsNaN(res.Lambda) {
		return
	}
	fmt.Fprintf(out, "Box-Cox lambda: %.4f\n", res.Lambda)

	if g := res.Growth; g != nil {
		fmt.Fprintf(out, "Growth rates: %d obs from %s, %d trimmed (breaks %v)\n",
			g.Len(), g.Start.Format(g.Frequency), res.Trimmed, res.Breaks)

		if adf := stats.ADF(g, 0); adf != nil {
			fmt.Fprintf(out, "ADF:  stat=%.4f p=%.4f stationary=%v\n", adf.Statistic, adf.PValue, adf.IsStationary)
		}
		if kpss := stats.KPSS(g, stats.RegressionConstant, 0); kpss != nil {
			fmt.Fprintf(out, "KPSS: stat=%.4f p=%.4f stationary=%v\n", kpss.Statistic, kpss.PValue, kpss.IsStationary)
		}
	}

	sel := res.Selected
	if sel == nil {
		return
	}
	fmt.Fprintf(out, "\nCandidates: %d evaluated, %d viable\n", sel.ModelsEvaluated, sel.Viable)

	ranked := make([]*crossval.Result, 0, len(sel.Candidates))
	for _, c := range sel.Candidates {
		if c.Valid() {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RMSE < ranked[j].RMSE })
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	for _, c := range ranked {
		marker := " "
		if c.Order == sel.Order {
			marker = "*"
		}
		fmt.Fprintf(out, " %s SARIMA%s RMSE=%.4f MAE=%.4f failed origins=%d/%d\n",
			marker, c.Order, c.RMSE, c.MAE, c.FailedOrigins, c.Origins)
	}

	fc := res.Forecast
	if fc == nil {
		return
	}
	fmt.Fprintln(out, "\nForecast:")
	freq := res.Growth.Frequency
	for i, p := range fc.Periods {
		fmt.Fprintf(out, "  %s growth=%.3f%% [%.3f, %.3f] level=%.2f\n",
			p.Format(freq), fc.Growth[i], fc.GrowthLower[i], fc.GrowthUpper[i], fc.Levels[i])
	}

	if d := res.Diagnostics; d != nil && d.LjungBox != nil {
		fmt.Fprintf(out, "Residuals: Ljung-Box Q=%.4f p=%.4f (lag %d), Durbin-Watson=%.3f\n",
			d.LjungBox.Statistic, d.LjungBox.PValue, d.LjungBox.Lags, d.DurbinWatson)
	}
}
