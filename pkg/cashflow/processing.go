// Package cashflow turns income and expense definitions into per-month
// totals for the payoff simulation.
package cashflow

import (
	"fmt"
	"math"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
)

// Totals holds the cash flow of one simulated month.
type Totals struct {
	Gross    float64
	Net      float64
	Expenses float64
}

// Discretionary is the net income left after expenses. It may be negative.
func (t Totals) Discretionary() float64 {
	return t.Net - t.Expenses
}

// Multiplier returns the factor converting an amount at the given frequency
// to its monthly equivalent. An empty frequency is monthly.
func Multiplier(frequency domain.Frequency) (float64, error) {
	switch frequency {
	case domain.FrequencyWeekly:
		return constants.WeeklyPerMonth, nil
	case domain.FrequencyBiWeekly:
		return constants.BiWeeklyPerMonth, nil
	case domain.FrequencyMonthly, "":
		return constants.MonthlyPerMonth, nil
	case domain.FrequencyAnnual:
		return constants.AnnualPerMonth, nil
	default:
		return 0, fmt.Errorf("unknown frequency %q", frequency)
	}
}

// MonthlyEquivalent converts amount to a monthly figure.
func MonthlyEquivalent(amount float64, frequency domain.Frequency) (float64, error) {
	m, err := Multiplier(frequency)
	if err != nil {
		return 0, err
	}
	return amount * m, nil
}

// ActiveIn reports whether the flow contributes to the given 1-based month.
func ActiveIn(flow domain.CashFlow, month int) bool {
	if !flow.Active || month < flow.StartMonth {
		return false
	}
	return flow.EndMonth == nil || month <= *flow.EndMonth
}

// Validate checks one cash flow. prefix names it in the returned error, e.g.
// "incomes[2]".
func Validate(prefix string, flow domain.CashFlow) error {
	switch {
	case math.IsNaN(flow.Amount) || flow.Amount < 0:
		return domain.Invalid(prefix+".amount", "must not be negative, got %v", flow.Amount)
	case math.IsNaN(flow.NetAmount) || flow.NetAmount < 0:
		return domain.Invalid(prefix+".netAmount", "must not be negative, got %v", flow.NetAmount)
	case flow.StartMonth < 1:
		return domain.Invalid(prefix+".startMonth", "must be at least 1, got %d", flow.StartMonth)
	case flow.EndMonth != nil && *flow.EndMonth < flow.StartMonth:
		return domain.Invalid(prefix+".endMonth", "must not precede startMonth %d, got %d", flow.StartMonth, *flow.EndMonth)
	}
	if _, err := Multiplier(flow.Frequency); err != nil {
		return domain.Invalid(prefix+".frequency", "%v", err)
	}
	return nil
}

type normalized struct {
	flow  domain.CashFlow
	gross float64
	net   float64
}

// Processor computes monthly totals from a fixed set of incomes and expenses.
type Processor struct {
	incomes  []normalized
	expenses []normalized
}

// NewProcessor validates every flow and converts its amounts to monthly
// equivalents once. Inactive flows are validated but never contribute.
func NewProcessor(incomes, expenses []domain.CashFlow) (*Processor, error) {
	p := &Processor{}
	for i, income := range incomes {
		n, err := normalize(fmt.Sprintf("incomes[%d]", i), income)
		if err != nil {
			return nil, err
		}
		p.incomes = append(p.incomes, n)
	}
	for i, expense := range expenses {
		n, err := normalize(fmt.Sprintf("expenses[%d]", i), expense)
		if err != nil {
			return nil, err
		}
		p.expenses = append(p.expenses, n)
	}
	return p, nil
}

func normalize(prefix string, flow domain.CashFlow) (normalized, error) {
	if err := Validate(prefix, flow); err != nil {
		return normalized{}, err
	}
	gross, _ := MonthlyEquivalent(flow.Amount, flow.Frequency)
	net := gross
	if flow.NetAmount > 0 {
		net, _ = MonthlyEquivalent(flow.NetAmount, flow.Frequency)
	}
	return normalized{flow: flow, gross: gross, net: net}, nil
}

// Month returns the totals for the given 1-based month.
func (p *Processor) Month(month int) Totals {
	var t Totals
	for _, n := range p.incomes {
		if ActiveIn(n.flow, month) {
			t.Gross += n.gross
			t.Net += n.net
		}
	}
	for _, n := range p.expenses {
		if ActiveIn(n.flow, month) {
			t.Expenses += n.gross
		}
	}
	return t
}
