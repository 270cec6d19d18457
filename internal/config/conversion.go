package config

import (
	"time"

	"github.com/iwvelando/heloc-forecast/pkg/datetime"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/simulator"
)

// SimulatorConfig converts the simulation section to engine bounds.
func (c *Configuration) SimulatorConfig() simulator.Config {
	return simulator.Config{
		MonthsToProject: c.Simulation.MonthsToProject,
		Epsilon:         c.Simulation.Epsilon,
		NearPayoffRatio: c.Simulation.NearPayoffRatio,
	}
}

// StartTime resolves the calendar month of simulated month 1. now is only
// consulted when no start date is configured.
func (c *Configuration) StartTime(now time.Time) (time.Time, error) {
	return datetime.ParseStartDate(c.Simulation.StartDate, now)
}

// Input converts a scenario to engine input. Slices are copied so the engine
// never shares memory with the configuration.
func (s Scenario) Input() simulator.Input {
	in := simulator.Input{
		Mortgage: s.Mortgage,
		Incomes:  cloneFlows(s.Incomes),
		Expenses: cloneFlows(s.Expenses),
	}
	if s.Heloc != nil {
		heloc := *s.Heloc
		in.Heloc = &heloc
	}
	return in
}

func cloneFlows(flows []domain.CashFlow) []domain.CashFlow {
	if flows == nil {
		return nil
	}
	out := make([]domain.CashFlow, len(flows))
	for i, f := range flows {
		if f.EndMonth != nil {
			end := *f.EndMonth
			f.EndMonth = &end
		}
		out[i] = f
	}
	return out
}
