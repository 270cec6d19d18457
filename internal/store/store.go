// Package store persists forecast runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/iwvelando/heloc-forecast/internal/forecast"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/format"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// createdAtLayout is fixed width so that text order matches time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id                        TEXT PRIMARY KEY,
	scenario                  TEXT NOT NULL,
	created_at                TEXT NOT NULL,
	start_date                TEXT NOT NULL,
	status                    TEXT NOT NULL,
	traditional_payoff_months INTEGER NOT NULL,
	strategy_payoff_months    INTEGER NOT NULL,
	interest_saved            TEXT NOT NULL,
	summary_json              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

CREATE TABLE IF NOT EXISTS monthly_results (
	run_id                 TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	track                  TEXT NOT NULL,
	month                  INTEGER NOT NULL,
	beginning_balance      TEXT NOT NULL,
	payment                TEXT NOT NULL,
	interest               TEXT NOT NULL,
	principal              TEXT NOT NULL,
	extra_principal        TEXT NOT NULL,
	ending_balance         TEXT NOT NULL,
	discretionary_income   TEXT NOT NULL,
	beginning_heloc        TEXT NOT NULL,
	heloc_draw             TEXT NOT NULL,
	heloc_interest         TEXT NOT NULL,
	heloc_principal        TEXT NOT NULL,
	ending_heloc           TEXT NOT NULL,
	heloc_available_credit TEXT NOT NULL,
	pmi                    TEXT NOT NULL,
	ltv                    REAL NOT NULL,
	pmi_eliminated         INTEGER NOT NULL,
	cumulative_interest    TEXT NOT NULL,
	cumulative_principal   TEXT NOT NULL,
	interest_saved         TEXT NOT NULL,
	months_saved           INTEGER NOT NULL,
	PRIMARY KEY (run_id, track, month)
);
`

// monthlyColumns is the insert and select order of monthly_results.
var monthlyColumns = []string{
	"run_id", "track", "month",
	"beginning_balance", "payment", "interest", "principal", "extra_principal", "ending_balance",
	"discretionary_income",
	"beginning_heloc", "heloc_draw", "heloc_interest", "heloc_principal", "ending_heloc", "heloc_available_credit",
	"pmi", "ltv", "pmi_eliminated",
	"cumulative_interest", "cumulative_principal", "interest_saved", "months_saved",
}

// Run is one persisted scenario result. Monthly rows are only populated by
// LoadRun; amounts come back rounded to the cent.
type Run struct {
	ID          string                   `json:"id"`
	Scenario    string                   `json:"scenario"`
	CreatedAt   time.Time                `json:"createdAt"`
	StartDate   string                   `json:"startDate"`
	Summary     domain.SimulationSummary `json:"summary"`
	Traditional []domain.MonthlyResult   `json:"traditional,omitempty"`
	Strategy    []domain.MonthlyResult   `json:"strategy,omitempty"`
}

// Store provides SQLite-backed run history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the run database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Clean(path)+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening run db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores a forecast and every month of both tracks in one
// transaction and returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, f forecast.Forecast) (string, error) {
	summaryJSON, err := json.Marshal(f.Result.Summary)
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	sum := f.Result.Summary
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, scenario, created_at, start_date, status, traditional_payoff_months,
		 strategy_payoff_months, interest_saved, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.Name, s.now().UTC().Format(createdAtLayout), f.MonthLabel(1), string(sum.Status),
		sum.TraditionalPayoffMonths, sum.StrategyPayoffMonths, format.Fixed(sum.InterestSaved), string(summaryJSON),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	if err := insertMonthly(ctx, tx, id, domain.TrackTraditional, f.Result.Traditional); err != nil {
		return "", err
	}
	if err := insertMonthly(ctx, tx, id, domain.TrackStrategy, f.Result.Strategy); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// insertMonthly writes rows in multi-row INSERTs of at most
// constants.InsertBatchSize rows.
func insertMonthly(ctx context.Context, tx *sql.Tx, runID string, track domain.Track, rows []domain.MonthlyResult) error {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(monthlyColumns)), ",") + ")"
	prefix := "INSERT INTO monthly_results (" + strings.Join(monthlyColumns, ", ") + ") VALUES "

	for start := 0; start < len(rows); start += constants.InsertBatchSize {
		end := min(start+constants.InsertBatchSize, len(rows))
		batch := rows[start:end]

		values := make([]string, len(batch))
		args := make([]any, 0, len(batch)*len(monthlyColumns))
		for i, r := range batch {
			values[i] = placeholder
			args = append(args,
				runID, string(track), r.Month,
				format.Fixed(r.BeginningBalance), format.Fixed(r.Payment), format.Fixed(r.InterestPortion),
				format.Fixed(r.PrincipalPortion), format.Fixed(r.ExtraPrincipal), format.Fixed(r.EndingBalance),
				format.Fixed(r.DiscretionaryIncome),
				format.Fixed(r.BeginningHelocBalance), format.Fixed(r.HelocDraw), format.Fixed(r.HelocInterest),
				format.Fixed(r.HelocPrincipal), format.Fixed(r.EndingHelocBalance), format.Fixed(r.HelocAvailableCredit),
				format.Fixed(r.PMIPayment), r.LTV, r.PMIEliminated,
				format.Fixed(r.CumulativeInterest), format.Fixed(r.CumulativePrincipal), format.Fixed(r.InterestSaved),
				r.MonthsSaved,
			)
		}
		if _, err := tx.ExecContext(ctx, prefix+strings.Join(values, ", "), args...); err != nil {
			return fmt.Errorf("inserting %s rows %d-%d: %w", track, start+1, end, err)
		}
	}
	return nil
}

// ListRuns returns the most recent runs first, without monthly rows. A
// limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, scenario, created_at, start_date, summary_json FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadRun returns a run with both tracks.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, created_at, start_date, summary_json FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+strings.Join(monthlyColumns[1:], ", ")+" FROM monthly_results WHERE run_id = ? ORDER BY track, month", id)
	if err != nil {
		return Run{}, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			track  string
			r      domain.MonthlyResult
			pmiOff int
			amts   [17]string
		)
		err := rows.Scan(&track, &r.Month,
			&amts[0], &amts[1], &amts[2], &amts[3], &amts[4], &amts[5],
			&amts[6],
			&amts[7], &amts[8], &amts[9], &amts[10], &amts[11], &amts[12],
			&amts[13], &r.LTV, &pmiOff,
			&amts[14], &amts[15], &amts[16], &r.MonthsSaved,
		)
		if err != nil {
			return Run{}, err
		}
		targets := []*float64{
			&r.BeginningBalance, &r.Payment, &r.InterestPortion, &r.PrincipalPortion, &r.ExtraPrincipal, &r.EndingBalance,
			&r.DiscretionaryIncome,
			&r.BeginningHelocBalance, &r.HelocDraw, &r.HelocInterest, &r.HelocPrincipal, &r.EndingHelocBalance, &r.HelocAvailableCredit,
			&r.PMIPayment,
			&r.CumulativeInterest, &r.CumulativePrincipal, &r.InterestSaved,
		}
		for i, target := range targets {
			d, err := decimal.NewFromString(amts[i])
			if err != nil {
				return Run{}, fmt.Errorf("decoding %s month %d: %w", track, r.Month, err)
			}
			*target = d.InexactFloat64()
		}
		r.PMIEliminated = pmiOff != 0

		if domain.Track(track) == domain.TrackTraditional {
			run.Traditional = append(run.Traditional, r)
		} else {
			run.Strategy = append(run.Strategy, r)
		}
	}
	return run, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run         Run
		createdAt   string
		summaryJSON string
	)
	if err := row.Scan(&run.ID, &run.Scenario, &createdAt, &run.StartDate, &summaryJSON); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing created_at of run %s: %w", run.ID, err)
	}
	run.CreatedAt = t
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return Run{}, fmt.Errorf("decoding summary of run %s: %w", run.ID, err)
	}
	return run, nil
}
