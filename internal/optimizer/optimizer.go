// Package optimizer searches for the extra monthly income that meets a
// scenario's payoff target.
package optimizer

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/iwvelando/heloc-forecast/internal/config"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/format"
	"github.com/iwvelando/heloc-forecast/pkg/mathutil"
	"github.com/iwvelando/heloc-forecast/pkg/optimization"
	"github.com/iwvelando/heloc-forecast/pkg/simulator"
)

// extraIncomeName labels the synthetic income the solver injects.
const extraIncomeName = "optimizer extra income"

// Runner evaluates candidate incomes with a shared simulator.
type Runner struct {
	logger *zap.Logger
	sim    *simulator.Simulator
}

type evaluation struct {
	value        float64
	payoffMonths int
	status       domain.Status
	summary      domain.SimulationSummary
}

func (e evaluation) feasible(target int) bool {
	return e.status == domain.StatusPaidOff && e.payoffMonths <= target
}

// NewRunner constructs a Runner around sim.
func NewRunner(logger *zap.Logger, sim *simulator.Simulator) (*Runner, error) {
	if sim == nil {
		return nil, fmt.Errorf("simulator cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, sim: sim}, nil
}

// Solve finds the smallest extra monthly income, to the cent, that pays both
// loans off within target.PayoffMonths. A target that cannot be met within
// the ceiling is reported with Converged false.
func (r *Runner) Solve(ctx context.Context, scenario string, in simulator.Input, target config.Target) (optimization.Summary, error) {
	if target.PayoffMonths <= 0 {
		return optimization.Summary{}, domain.Invalid("target.payoffMonths", "must be positive, got %d", target.PayoffMonths)
	}
	ceiling := target.MaxExtraIncome
	if ceiling == 0 {
		ceiling = constants.DefaultMaxExtraIncome
	}
	if ceiling < 0 || math.IsNaN(ceiling) {
		return optimization.Summary{}, domain.Invalid("target.maxExtraIncome", "must not be negative, got %v", ceiling)
	}

	summary := optimization.Summary{
		Scenario:           scenario,
		Field:              optimization.FieldExtraMonthlyIncome,
		TargetPayoffMonths: target.PayoffMonths,
		Ceiling:            ceiling,
	}

	lower, err := r.evaluate(in, 0)
	if err != nil {
		return optimization.Summary{}, err
	}
	summary.BaselinePayoffMonths = lower.payoffMonths
	if lower.feasible(target.PayoffMonths) {
		r.finish(&summary, lower, 0, true)
		summary.Notes = append(summary.Notes, "target met without extra income")
		return summary, nil
	}

	upper, err := r.evaluate(in, ceiling)
	if err != nil {
		return optimization.Summary{}, err
	}
	if !upper.feasible(target.PayoffMonths) {
		r.finish(&summary, upper, 0, false)
		summary.Notes = append(summary.Notes, fmt.Sprintf(
			"unable to pay off within %d months with up to %s of extra monthly income",
			target.PayoffMonths, format.Currency(ceiling)))
		return summary, nil
	}

	// lower stays infeasible and upper feasible; payoff time only shrinks as
	// income grows.
	iterations := 0
	for upper.value-lower.value > constants.CurrencyEpsilon && iterations < constants.OptimizerMaxIterations {
		if err := ctx.Err(); err != nil {
			return optimization.Summary{}, err
		}
		iterations++
		mid, err := r.evaluate(in, math.Ceil((lower.value+upper.value)/2*constants.DecimalPrecision)/constants.DecimalPrecision)
		if err != nil {
			return optimization.Summary{}, err
		}
		if mid.value >= upper.value {
			break
		}
		if mid.feasible(target.PayoffMonths) {
			upper = mid
		} else {
			lower = mid
		}
	}

	r.finish(&summary, upper, iterations, true)
	r.logger.Debug("payoff target solved",
		zap.String("op", "optimizer.Solve"),
		zap.String("scenario", scenario),
		zap.Int("targetPayoffMonths", target.PayoffMonths),
		zap.Float64("extraMonthlyIncome", upper.value),
		zap.Int("iterations", iterations),
	)
	return summary, nil
}

func (r *Runner) finish(summary *optimization.Summary, e evaluation, iterations int, converged bool) {
	summary.Value = mathutil.Round(e.value)
	summary.ValueDisplay = format.Currency(summary.Value)
	summary.AchievedPayoffMonths = e.payoffMonths
	summary.InterestSaved = e.summary.InterestSaved
	summary.Iterations = iterations
	summary.Converged = converged
}

func (r *Runner) evaluate(in simulator.Input, extra float64) (evaluation, error) {
	candidate := WithExtraIncome(in, extra)
	result, err := r.sim.Simulate(candidate)
	if err != nil {
		return evaluation{}, err
	}
	return evaluation{
		value:        extra,
		payoffMonths: result.Summary.StrategyPayoffMonths,
		status:       result.Summary.Status,
		summary:      result.Summary,
	}, nil
}

// WithExtraIncome returns a copy of in with a monthly income of amount added
// from month 1. The original input is not modified.
func WithExtraIncome(in simulator.Input, amount float64) simulator.Input {
	if amount <= 0 {
		return in
	}
	incomes := make([]domain.CashFlow, 0, len(in.Incomes)+1)
	incomes = append(incomes, in.Incomes...)
	incomes = append(incomes, domain.CashFlow{
		Name:       extraIncomeName,
		Amount:     amount,
		StartMonth: 1,
		Frequency:  domain.FrequencyMonthly,
		Active:     true,
	})
	in.Incomes = incomes
	return in
}
