// Command gdpforecast selects a SARIMA model per country by cross-validation
// and forecasts quarterly GDP levels.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sartorproj/gdpforecast/config"
	"github.com/sartorproj/gdpforecast/logging"
	"github.com/sartorproj/gdpforecast/timeseries"
)

var version = "dev"

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "gdpforecast",
		Short:         "Quarterly GDP forecasting by cross-validated SARIMA selection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newSelectCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "gdpforecast", version)
		},
	}
}

// setup loads the environment, the configuration and the logger.
func setup(opts *globalOptions) (*config.Config, *zap.Logger, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}

	cfg, err := config.LoadWithEnv(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// panelFlags describe an input table.
type panelFlags struct {
	sheet       string
	idColumn    string
	dateColumn  string
	valueColumn string
}

func (f *panelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "worksheet for .xlsx input (default: first sheet)")
	cmd.Flags().StringVar(&f.idColumn, "id-column", "", "country column (default: auto-detect)")
	cmd.Flags().StringVar(&f.dateColumn, "period-column", "", "period column (default: auto-detect)")
	cmd.Flags().StringVar(&f.valueColumn, "value-column", "", "value column (default: auto-detect)")
}

// loadPanel reads a CSV or XLSX panel depending on the file extension.
func (f *panelFlags) loadPanel(path string, frequency int) (*timeseries.Panel, error) {
	opts := timeseries.DefaultPanelOptions()
	opts.IDColumn = f.idColumn
	opts.DateColumn = f.dateColumn
	opts.ValueColumn = f.valueColumn
	opts.Frequency = frequency

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return timeseries.LoadPanelXLSX(path, f.sheet, opts)
	case ".csv", ".txt":
		return timeseries.LoadPanelCSV(path, opts)
	case ".tsv":
		opts.Delimiter = '\t'
		return timeseries.LoadPanelCSV(path, opts)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
}
