package integration

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/iwvelando/heloc-forecast/internal/config"
	"github.com/iwvelando/heloc-forecast/internal/forecast"
	"github.com/iwvelando/heloc-forecast/internal/store"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/output"
	"github.com/iwvelando/heloc-forecast/pkg/testutil"
)

const testConfig = "../test_config.yaml"

func runForecast(t testing.TB) []forecast.Forecast {
	t.Helper()
	conf, err := config.LoadConfiguration(testConfig)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	runner, err := forecast.NewRunner(zap.NewNop(), conf)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return results
}

// TestMainIntegrationBaseline checks the headline numbers of every active
// scenario in the shared configuration.
func TestMainIntegrationBaseline(t *testing.T) {
	results := runForecast(t)

	expectedScenarios := []string{"HELOC strategy", "Discretionary only", "PMI plan"}
	if len(results) != len(expectedScenarios) {
		t.Fatalf("Expected %d scenarios, got %d", len(expectedScenarios), len(results))
	}
	for i, expected := range expectedScenarios {
		if results[i].Name != expected {
			t.Errorf("Expected scenario %s, got %s", expected, results[i].Name)
		}
	}
	if testutil.FindScenario(results, "Parked") != nil {
		t.Error("inactive scenario should not be simulated")
	}

	checks := []struct {
		scenario  string
		minPayoff int
		maxPayoff int
	}{
		{"HELOC strategy", 90, 96},
		{"Discretionary only", 95, 101},
	}
	for _, check := range checks {
		t.Run(check.scenario, func(t *testing.T) {
			result := testutil.FindScenario(results, check.scenario)
			if result == nil {
				t.Fatalf("Scenario '%s' not found in results", check.scenario)
			}
			s := result.Result.Summary
			if s.Status != domain.StatusPaidOff {
				t.Fatalf("Status = %s, want %s", s.Status, domain.StatusPaidOff)
			}
			if s.StrategyPayoffMonths < check.minPayoff || s.StrategyPayoffMonths > check.maxPayoff {
				t.Errorf("StrategyPayoffMonths = %d, want within [%d, %d]",
					s.StrategyPayoffMonths, check.minPayoff, check.maxPayoff)
			}
			if s.InterestSaved <= 0 {
				t.Errorf("InterestSaved = %.2f, want positive", s.InterestSaved)
			}
		})
	}

	heloc := testutil.FindScenario(results, "HELOC strategy")
	if heloc.Result.Summary.MaxHelocBalance <= 0 {
		t.Error("HELOC strategy never drew on the line of credit")
	}
	if opt := heloc.Optimization; opt == nil || !opt.Converged || math.Abs(opt.Value-289.82) > 1 {
		t.Errorf("unexpected optimization %+v", opt)
	}

	pmi := testutil.FindScenario(results, "PMI plan")
	s := pmi.Result.Summary
	if s.StrategyPMIEliminationMonth == 0 || s.StrategyPMIEliminationMonth >= s.TraditionalPMIEliminationMonth {
		t.Errorf("strategy PMI elimination month %d should precede traditional %d",
			s.StrategyPMIEliminationMonth, s.TraditionalPMIEliminationMonth)
	}
}

// TestCSVOutputFormat checks the CSV rendering of a full run.
func TestCSVOutputFormat(t *testing.T) {
	results := runForecast(t)

	var buf bytes.Buffer
	if err := output.CsvFormat(&buf, results); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}

	header := records[0]
	for _, part := range []string{"scenario", "track", "month", "date", "beginningBalance"} {
		if !strings.Contains(strings.Join(header, ","), part) {
			t.Errorf("CSV header missing expected part: %s", part)
		}
	}

	want := 1
	for _, f := range results {
		want += len(f.Result.Traditional) + len(f.Result.Strategy)
	}
	if len(records) != want {
		t.Fatalf("expected %d records, got %d", want, len(records))
	}
	for _, record := range records[1:6] {
		if len(record) != len(header) {
			t.Errorf("CSV line should have %d parts, got %d", len(header), len(record))
		}
		if !strings.HasPrefix(record[3], "20") {
			t.Errorf("CSV date should start with a year: %s", record[3])
		}
	}
}

// TestPrettyOutputFormat tests the pretty print output
func TestPrettyOutputFormat(t *testing.T) {
	results := runForecast(t)

	var buf bytes.Buffer
	if err := output.PrettyFormat(&buf, results); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"HELOC strategy", "Discretionary only", "PMI plan", "Target 84 months"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q", want)
		}
	}
}

// TestRunHistoryRoundTrip saves a full run and reads it back.
func TestRunHistoryRoundTrip(t *testing.T) {
	results := runForecast(t)

	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer func() {
		_ = s.Close()
	}()

	ctx := context.Background()
	ids := make(map[string]string)
	for _, f := range results {
		id, err := s.SaveRun(ctx, f)
		if err != nil {
			t.Fatalf("SaveRun(%s) error = %v", f.Name, err)
		}
		ids[f.Name] = id
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != len(results) {
		t.Fatalf("expected %d runs, got %d", len(results), len(runs))
	}

	original := testutil.FindScenario(results, "HELOC strategy")
	loaded, err := s.LoadRun(ctx, ids["HELOC strategy"])
	if err != nil {
		t.Fatalf("LoadRun() error = %v", err)
	}
	if len(loaded.Strategy) != len(original.Result.Strategy) {
		t.Fatalf("strategy rows = %d, want %d", len(loaded.Strategy), len(original.Result.Strategy))
	}
	last := len(loaded.Strategy) - 1
	if math.Abs(loaded.Strategy[last].CumulativeInterest-original.Result.Strategy[last].CumulativeInterest) > 0.005 {
		t.Errorf("cumulative interest = %.2f, want %.2f",
			loaded.Strategy[last].CumulativeInterest, original.Result.Strategy[last].CumulativeInterest)
	}
}
