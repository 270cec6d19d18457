// Package summary reduces the two simulated tracks to comparison metrics.
package summary

import (
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/mathutil"
)

// TotalInterest sums mortgage and HELOC interest over a track.
func TotalInterest(track []domain.MonthlyResult) float64 {
	var total float64
	for _, r := range track {
		total += r.TotalInterest()
	}
	return total
}

// TotalPMI sums the mortgage insurance charged over a track.
func TotalPMI(track []domain.MonthlyResult) float64 {
	var total float64
	for _, r := range track {
		total += r.PMIPayment
	}
	return total
}

// PMIEliminationMonth returns the month PMI was dropped, or 0 if it never was.
func PMIEliminationMonth(track []domain.MonthlyResult) int {
	for _, r := range track {
		if r.PMIEliminated {
			return r.Month
		}
	}
	return 0
}

// Summarize compares a traditional and a strategy track. status and
// traditionalStatus are how each track ended. Savings figures are only
// reported when the strategy paid off; a capped strategy leaves them zero.
func Summarize(traditional, strategy []domain.MonthlyResult, status, traditionalStatus domain.Status) domain.SimulationSummary {
	s := domain.SimulationSummary{
		Status:                         status,
		TraditionalStatus:              traditionalStatus,
		TraditionalPayoffMonths:        len(traditional),
		StrategyPayoffMonths:           len(strategy),
		TraditionalTotalInterest:       TotalInterest(traditional),
		StrategyTotalInterest:          TotalInterest(strategy),
		TraditionalPMIEliminationMonth: PMIEliminationMonth(traditional),
		StrategyPMIEliminationMonth:    PMIEliminationMonth(strategy),
		TraditionalTotalPMI:            TotalPMI(traditional),
		StrategyTotalPMI:               TotalPMI(strategy),
	}
	if n := len(traditional); n > 0 {
		s.TraditionalResidualBalance = traditional[n-1].EndingBalance
	}
	if n := len(strategy); n > 0 {
		last := strategy[n-1]
		s.StrategyResidualBalance = last.EndingBalance + last.EndingHelocBalance
	}

	var helocTotal float64
	for _, r := range strategy {
		helocTotal += r.EndingHelocBalance
		s.TotalHelocInterest += r.HelocInterest
		if r.EndingHelocBalance > s.MaxHelocBalance {
			s.MaxHelocBalance = r.EndingHelocBalance
		}
	}
	if len(strategy) > 0 {
		s.AverageHelocBalance = helocTotal / float64(len(strategy))
	}

	if status != domain.StatusPaidOff {
		return s
	}
	s.MonthsSaved = s.TraditionalPayoffMonths - s.StrategyPayoffMonths
	s.InterestSaved = s.TraditionalTotalInterest - s.StrategyTotalInterest
	s.PercentageSaved = mathutil.CalculatePercentage(s.InterestSaved, s.TraditionalTotalInterest)
	return s
}
