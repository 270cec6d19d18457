package simulator

import (
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
)

// Config bounds a simulation run.
type Config struct {
	// MonthsToProject is the hard iteration cap shared by both tracks.
	MonthsToProject int `json:"monthsToProject" yaml:"monthsToProject"`
	// Epsilon is the balance at or below which a loan counts as paid off.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
	// NearPayoffRatio is the fraction of the HELOC limit below which the
	// default policy draws regardless of rates.
	NearPayoffRatio float64 `json:"nearPayoffRatio" yaml:"nearPayoffRatio"`
}

// DefaultConfig returns the standard 600 month cap, one cent epsilon and
// 10% near-payoff ratio.
func DefaultConfig() Config {
	return Config{
		MonthsToProject: constants.DefaultMonthsToProject,
		Epsilon:         constants.CurrencyEpsilon,
		NearPayoffRatio: constants.NearPayoffRatio,
	}
}

// Validate rejects a config that could not bound a run.
func (c Config) Validate() error {
	switch {
	case c.MonthsToProject <= 0:
		return domain.Invalid("monthsToProject", "must be positive, got %d", c.MonthsToProject)
	case !(c.Epsilon > 0):
		return domain.Invalid("epsilon", "must be positive, got %v", c.Epsilon)
	case !(c.NearPayoffRatio >= 0):
		return domain.Invalid("nearPayoffRatio", "must not be negative, got %v", c.NearPayoffRatio)
	}
	return nil
}
