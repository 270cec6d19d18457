// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/heloc-forecast/pkg/amortization"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/format"
)

// MortgageWarnings flags mortgage settings that are legal but probably not
// what the user meant.
func MortgageWarnings(scenario string, m domain.MortgageInput, monthsToProject int) []string {
	var warnings []string

	if m.MonthlyPayment > 0 && m.TermInMonths > 0 {
		standard := amortization.CalculateMonthlyPayment(m.Principal, m.AnnualInterestRate, m.TermInMonths)
		if m.MonthlyPayment < standard {
			warnings = append(warnings, fmt.Sprintf(
				"Scenario '%s' mortgage payment %s is below the %s needed to amortize within %d months - a balance will remain at term",
				scenario, format.Currency(m.MonthlyPayment), format.Currency(standard), m.TermInMonths))
		}
	}
	if monthsToProject > 0 && m.TermInMonths > monthsToProject {
		warnings = append(warnings, fmt.Sprintf(
			"Scenario '%s' mortgage term of %d months exceeds the %d month projection",
			scenario, m.TermInMonths, monthsToProject))
	}
	if m.PMIMonthly > 0 && m.PropertyValue > 0 && m.Principal > m.PropertyValue {
		warnings = append(warnings, fmt.Sprintf(
			"Scenario '%s' mortgage principal exceeds the property value", scenario))
	}
	return warnings
}

// HelocWarnings flags HELOC settings that make the line unusable or rarely used.
func HelocWarnings(scenario string, m domain.MortgageInput, h *domain.HelocInput) []string {
	if h == nil {
		return nil
	}

	var warnings []string
	if h.AvailableCredit == 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Scenario '%s' HELOC has no available credit - no draws will happen", scenario))
	}
	if h.AnnualInterestRate > m.AnnualInterestRate {
		warnings = append(warnings, fmt.Sprintf(
			"Scenario '%s' HELOC rate %.3f exceeds the mortgage rate %.3f - draws only happen near payoff",
			scenario, h.AnnualInterestRate, m.AnnualInterestRate))
	}
	return warnings
}

// CashFlowWarnings flags cash flows that never contribute to a run.
func CashFlowWarnings(scenario string, incomes, expenses []domain.CashFlow, monthsToProject int) []string {
	var warnings []string

	activeIncome := false
	for _, f := range incomes {
		activeIncome = activeIncome || f.Active
	}
	if !activeIncome {
		warnings = append(warnings, fmt.Sprintf(
			"Scenario '%s' has no active income - acceleration relies on the HELOC alone", scenario))
	}

	check := func(kind string, flows []domain.CashFlow) {
		for _, f := range flows {
			if f.Active && monthsToProject > 0 && f.StartMonth > monthsToProject {
				warnings = append(warnings, fmt.Sprintf(
					"Scenario '%s' %s '%s' starts after the %d month projection",
					scenario, kind, f.Name, monthsToProject))
			}
			if f.NetAmount > f.Amount {
				warnings = append(warnings, fmt.Sprintf(
					"Scenario '%s' %s '%s' has a net amount above its gross amount",
					scenario, kind, f.Name))
			}
		}
	}
	check("income", incomes)
	check("expense", expenses)
	return warnings
}
