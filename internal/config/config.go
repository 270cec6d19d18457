// Package config defines the data structures related to configuration and
// includes functions for loading and checking it.
package config

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/validation"
)

// DateTimeLayout is the format expected in config files and is also the output
// date format.
const DateTimeLayout = constants.DateTimeLayout

// Configuration holds all configuration for heloc-forecast.
type Configuration struct {
	Logging    LoggingConfig    `yaml:"logging,omitempty" json:"logging,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty" json:"output,omitempty"`
	Simulation SimulationConfig `yaml:"simulation,omitempty" json:"simulation,omitempty"`
	Scenarios  []Scenario       `yaml:"scenarios" json:"scenarios"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" json:"format,omitempty"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" json:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // pretty, csv, json, pdf
	File   string `yaml:"file,omitempty" json:"file,omitempty"`     // required for pdf
}

// SimulationConfig bounds every scenario's run.
type SimulationConfig struct {
	MonthsToProject int     `yaml:"monthsToProject,omitempty" json:"monthsToProject,omitempty"`
	Epsilon         float64 `yaml:"epsilon,omitempty" json:"epsilon,omitempty"`
	NearPayoffRatio float64 `yaml:"nearPayoffRatio,omitempty" json:"nearPayoffRatio,omitempty"`
	// StartDate labels month 1, e.g. "2026-01". Empty means the current month.
	StartDate string `yaml:"startDate,omitempty" json:"startDate,omitempty"`
}

// Scenario is one mortgage and HELOC plan with its cash flows.
type Scenario struct {
	Name     string               `yaml:"name" json:"name"`
	Active   bool                 `yaml:"active" json:"active"`
	Mortgage domain.MortgageInput `yaml:"mortgage" json:"mortgage"`
	Heloc    *domain.HelocInput   `yaml:"heloc,omitempty" json:"heloc,omitempty"`
	Incomes  []domain.CashFlow    `yaml:"incomes,omitempty" json:"incomes,omitempty"`
	Expenses []domain.CashFlow    `yaml:"expenses,omitempty" json:"expenses,omitempty"`
	Target   *Target              `yaml:"target,omitempty" json:"target,omitempty"`
}

// Target asks the optimizer for the smallest extra monthly income that pays
// both loans off within PayoffMonths.
type Target struct {
	PayoffMonths   int     `yaml:"payoffMonths" json:"payoffMonths"`
	MaxExtraIncome float64 `yaml:"maxExtraIncome,omitempty" json:"maxExtraIncome,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the configuration
// there. The format follows the file extension and defaults to YAML.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	if filepath.Ext(configPath) == "" {
		v.SetConfigType("yml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a configuration of the given type
// ("yaml", "json", "toml") from r.
func LoadConfigurationFromReader(r io.Reader, configType string) (*Configuration, error) {
	if configType == "" {
		configType = "yml"
	}
	v := viper.New()
	v.SetConfigType(configType)

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.normalize()
	return &configuration, nil
}

// normalize fills defaults the file may leave out.
func (c *Configuration) normalize() {
	if c.Simulation.MonthsToProject == 0 {
		c.Simulation.MonthsToProject = constants.DefaultMonthsToProject
	}
	if c.Simulation.Epsilon == 0 {
		c.Simulation.Epsilon = constants.CurrencyEpsilon
	}
	if c.Simulation.NearPayoffRatio == 0 {
		c.Simulation.NearPayoffRatio = constants.NearPayoffRatio
	}
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		for j := range s.Incomes {
			if s.Incomes[j].StartMonth == 0 {
				s.Incomes[j].StartMonth = 1
			}
		}
		for j := range s.Expenses {
			if s.Expenses[j].StartMonth == 0 {
				s.Expenses[j].StartMonth = 1
			}
		}
	}
}

// ActiveScenarios returns the scenarios marked active, in file order.
func (c *Configuration) ActiveScenarios() []Scenario {
	var active []Scenario
	for _, s := range c.Scenarios {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	if len(c.Scenarios) == 0 {
		return append(warnings, "No scenarios are defined")
	}
	if len(c.ActiveScenarios()) == 0 {
		warnings = append(warnings, "No scenarios are active - nothing will be simulated")
	}

	seen := make(map[string]bool)
	for _, s := range c.Scenarios {
		if seen[s.Name] {
			warnings = append(warnings, fmt.Sprintf("Scenario name '%s' is used more than once", s.Name))
		}
		seen[s.Name] = true
		if !s.Active {
			continue
		}
		warnings = append(warnings, validation.MortgageWarnings(s.Name, s.Mortgage, c.Simulation.MonthsToProject)...)
		warnings = append(warnings, validation.HelocWarnings(s.Name, s.Mortgage, s.Heloc)...)
		warnings = append(warnings, validation.CashFlowWarnings(s.Name, s.Incomes, s.Expenses, c.Simulation.MonthsToProject)...)
		if s.Target != nil && s.Target.PayoffMonths > s.Mortgage.TermInMonths {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' targets payoff in %d months, beyond the %d month term",
				s.Name, s.Target.PayoffMonths, s.Mortgage.TermInMonths))
		}
	}
	return warnings
}
