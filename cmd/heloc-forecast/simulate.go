package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/heloc-forecast/internal/config"
	"github.com/iwvelando/heloc-forecast/internal/forecast"
	"github.com/iwvelando/heloc-forecast/internal/store"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/output"
	"github.com/iwvelando/heloc-forecast/pkg/validation"
)

var (
	flagConfig       string
	flagOutputFormat string
	flagOutputFile   string
	flagSave         bool
	flagDB           string
	flagTimeout      time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run every active scenario and print the comparison",
	RunE:  runSimulate,
}

func init() {
	registerSimulateFlags(simulateCmd)
}

// registerSimulateFlags is shared by the root command, which defaults to
// simulate, and the explicit subcommand.
func registerSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagConfig, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.Flags().StringVar(&flagOutputFormat, "output-format", "", "output format override: pretty, csv, json, pdf")
	cmd.Flags().StringVar(&flagOutputFile, "output-file", "", "write output to this file instead of stdout")
	cmd.Flags().BoolVar(&flagSave, "save", false, "save each scenario's result to the run database")
	cmd.Flags().StringVar(&flagDB, "db", constants.DefaultDatabaseFile, "path to the run database")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "abort the forecast after this long (0 disables)")
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	conf, err := config.LoadConfiguration(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", flagConfig, err)
	}

	logger, err := initializeLogger(conf.Logging, flagLogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI flags take precedence over the config file.
	outputFormat := conf.Output.Format
	if flagOutputFormat != "" {
		outputFormat = flagOutputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	outputFile := conf.Output.File
	if flagOutputFile != "" {
		outputFile = flagOutputFile
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	if err := validation.ValidateOutputTarget(outputFormat, outputFile); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runSimulate"),
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagTimeout)
		defer cancel()
	}

	runner, err := forecast.NewRunner(logger, conf)
	if err != nil {
		return err
	}
	results, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute forecast: %w", err)
	}

	if flagSave {
		if err := saveRuns(ctx, logger, flagDB, results); err != nil {
			return err
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		w = f
	}
	return output.Write(w, outputFormat, results)
}

func saveRuns(ctx context.Context, logger *zap.Logger, dbPath string, results []forecast.Forecast) error {
	runs, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = runs.Close()
	}()

	for _, f := range results {
		id, err := runs.SaveRun(ctx, f)
		if err != nil {
			return fmt.Errorf("failed to save scenario %q: %w", f.Name, err)
		}
		logger.Info("run saved",
			zap.String("op", "main.saveRuns"),
			zap.String("scenario", f.Name),
			zap.String("id", id),
		)
	}
	return nil
}
