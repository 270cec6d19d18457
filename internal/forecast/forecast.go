// Package forecast runs every active scenario of a configuration through the
// simulator and, where a payoff target is set, the optimizer.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iwvelando/heloc-forecast/internal/cache"
	"github.com/iwvelando/heloc-forecast/internal/config"
	"github.com/iwvelando/heloc-forecast/internal/optimizer"
	"github.com/iwvelando/heloc-forecast/pkg/datetime"
	"github.com/iwvelando/heloc-forecast/pkg/optimization"
	"github.com/iwvelando/heloc-forecast/pkg/simulator"
)

// Forecast holds all information related to a specific scenario's run.
type Forecast struct {
	Name         string                `json:"name"`
	StartDate    time.Time             `json:"startDate"`
	Result       simulator.Result      `json:"result"`
	Optimization *optimization.Summary `json:"optimization,omitempty"`
	Cached       bool                  `json:"cached"`
}

// MonthLabel returns the calendar month of simulated month m.
func (f Forecast) MonthLabel(m int) string {
	return datetime.MonthLabel(f.StartDate, m)
}

// Runner executes forecasts for a configuration.
type Runner struct {
	logger      *zap.Logger
	conf        *config.Configuration
	sim         *simulator.Simulator
	optimizer   *optimizer.Runner
	cache       cache.Cache
	fixedTime   *time.Time
	concurrency int
}

// Option customizes a Runner.
type Option func(*Runner)

// WithCache reuses simulation results stored in c.
func WithCache(c cache.Cache) Option {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithFixedTime pins the clock used when no start date is configured.
func WithFixedTime(t time.Time) Option {
	return func(r *Runner) {
		fixed := t
		r.fixedTime = &fixed
	}
}

// WithConcurrency bounds how many scenarios run at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRunner constructs a Runner for conf.
func NewRunner(logger *zap.Logger, conf *config.Configuration, opts ...Option) (*Runner, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sim, err := simulator.New(logger, conf.SimulatorConfig())
	if err != nil {
		return nil, err
	}
	opt, err := optimizer.NewRunner(logger, sim)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		logger:      logger,
		conf:        conf,
		sim:         sim,
		optimizer:   opt,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func (r *Runner) now() time.Time {
	if r.fixedTime != nil {
		return *r.fixedTime
	}
	return time.Now()
}

// Run forecasts every active scenario. Results keep configuration order. The
// first failing scenario cancels the rest and its error is returned.
func (r *Runner) Run(ctx context.Context) ([]Forecast, error) {
	start, err := r.conf.StartTime(r.now())
	if err != nil {
		return nil, err
	}

	scenarios := r.conf.ActiveScenarios()
	results := make([]Forecast, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, scenario := range scenarios {
		g.Go(func() error {
			f, err := r.runScenario(gctx, scenario)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", scenario.Name, err)
			}
			f.StartDate = start
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug("forecast complete",
		zap.String("op", "forecast.Run"),
		zap.Int("scenarios", len(results)),
		zap.String("startDate", start.Format(config.DateTimeLayout)),
	)
	return results, nil
}

func (r *Runner) runScenario(ctx context.Context, scenario config.Scenario) (Forecast, error) {
	if err := ctx.Err(); err != nil {
		return Forecast{}, err
	}

	in := scenario.Input()
	f := Forecast{Name: scenario.Name}

	result, cached, err := r.simulate(ctx, in)
	if err != nil {
		return Forecast{}, err
	}
	f.Result = result
	f.Cached = cached

	if scenario.Target != nil {
		summary, err := r.optimizer.Solve(ctx, scenario.Name, in, *scenario.Target)
		if err != nil {
			return Forecast{}, err
		}
		f.Optimization = &summary
	}
	return f, nil
}

// simulate consults the cache before running the engine. Cache failures are
// logged and otherwise ignored.
func (r *Runner) simulate(ctx context.Context, in simulator.Input) (simulator.Result, bool, error) {
	if r.cache == nil {
		result, err := r.sim.Simulate(in)
		return result, false, err
	}

	key, err := cache.Key(in, r.sim.Config())
	if err != nil {
		return simulator.Result{}, false, err
	}

	if data, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("cache lookup failed",
			zap.String("op", "forecast.simulate"),
			zap.Error(err),
		)
	} else if ok {
		var result simulator.Result
		if err := json.Unmarshal(data, &result); err == nil {
			return result, true, nil
		}
		r.logger.Warn("discarding undecodable cache entry",
			zap.String("op", "forecast.simulate"),
			zap.String("key", key),
		)
	}

	result, err := r.sim.Simulate(in)
	if err != nil {
		return simulator.Result{}, false, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return simulator.Result{}, false, err
	}
	if err := r.cache.Set(ctx, key, data); err != nil {
		r.logger.Warn("cache store failed",
			zap.String("op", "forecast.simulate"),
			zap.Error(err),
		)
	}
	return result, false, nil
}
