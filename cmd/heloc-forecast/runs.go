package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iwvelando/heloc-forecast/internal/store"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/output"
)

var (
	flagRunsDB     string
	flagRunsLimit  int
	flagRunsFormat string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&flagRunsDB, "db", constants.DefaultDatabaseFile, "path to the run database")
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "maximum number of runs to list (0 lists all)")
	runsCmd.Flags().StringVar(&flagRunsFormat, "output-format", constants.OutputFormatPretty, "output format: pretty, json")
}

func runRuns(cmd *cobra.Command, _ []string) error {
	runs, err := store.Open(flagRunsDB)
	if err != nil {
		return err
	}
	defer func() {
		_ = runs.Close()
	}()

	list, err := runs.ListRuns(cmd.Context(), flagRunsLimit)
	if err != nil {
		return err
	}

	switch flagRunsFormat {
	case constants.OutputFormatPretty:
		return output.PrettyRuns(cmd.OutOrStdout(), list)
	case constants.OutputFormatJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	default:
		return fmt.Errorf("expected output format of pretty, json, got %s", flagRunsFormat)
	}
}
