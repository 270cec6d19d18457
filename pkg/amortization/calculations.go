// Package amortization provides the fixed-payment amortization primitive
// used for the traditional payoff track.
package amortization

import (
	"iter"
	"math"
	"slices"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
)

// Payment holds the values for a given payment.
type Payment struct {
	Payment            float64
	Principal          float64
	Interest           float64
	RemainingPrincipal float64
}

// CalculateMonthlyPayment calculates the monthly payment for a loan using the
// standard amortization formula. annualInterestRate is a decimal fraction.
func CalculateMonthlyPayment(principal, annualInterestRate float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}
	if annualInterestRate == 0 {
		// For zero interest, simply divide the principal by term
		return principal / float64(termMonths)
	}

	periodicInterestRate := annualInterestRate / constants.MonthsPerYear
	power := math.Pow(1.00+periodicInterestRate, float64(termMonths))
	discountFactor := (power - 1.00) / power
	return principal * periodicInterestRate / discountFactor
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualInterestRate float64) float64 {
	return remainingPrincipal * annualInterestRate / constants.MonthsPerYear
}

// Step advances a balance by one month. The principal portion never exceeds
// the balance, and a remainder within epsilon is folded into this payment so
// the final month pays off the exact balance instead of overshooting.
func Step(balance, annualInterestRate, monthlyPayment, epsilon float64) Payment {
	interest := CalculateInterestPayment(balance, annualInterestRate)
	principal := monthlyPayment - interest
	if principal >= balance || balance-principal <= epsilon {
		principal = balance
	}
	return Payment{
		Payment:            interest + principal,
		Principal:          principal,
		Interest:           interest,
		RemainingPrincipal: balance - principal,
	}
}

// Option customizes a Schedule.
type Option func(*Schedule)

// WithEpsilon overrides the payoff threshold.
func WithEpsilon(epsilon float64) Option {
	return func(s *Schedule) {
		s.epsilon = epsilon
	}
}

// WithMaxMonths stops the schedule after n months even if the term is longer.
func WithMaxMonths(n int) Option {
	return func(s *Schedule) {
		s.maxMonths = n
	}
}

// Schedule is a validated fixed-payment amortization schedule.
type Schedule struct {
	principal float64
	rate      float64
	term      int
	payment   float64
	epsilon   float64
	maxMonths int
}

// NewSchedule validates the loan terms and returns a schedule. A payment that
// does not exceed the first month's interest is reported as a
// *domain.NonAmortizingError.
func NewSchedule(principal, annualInterestRate float64, termMonths int, monthlyPayment float64, opts ...Option) (*Schedule, error) {
	s := &Schedule{
		principal: principal,
		rate:      annualInterestRate,
		term:      termMonths,
		payment:   monthlyPayment,
		epsilon:   constants.CurrencyEpsilon,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := ValidateTerms(principal, annualInterestRate, termMonths, monthlyPayment); err != nil {
		return nil, err
	}
	if s.epsilon <= 0 {
		return nil, domain.Invalid("epsilon", "must be positive, got %v", s.epsilon)
	}
	if s.maxMonths < 0 {
		return nil, domain.Invalid("maxMonths", "must not be negative, got %d", s.maxMonths)
	}
	return s, nil
}

// ValidateTerms checks the loan terms shared by every track.
func ValidateTerms(principal, annualInterestRate float64, termMonths int, monthlyPayment float64) error {
	switch {
	case math.IsNaN(principal) || principal <= 0:
		return domain.Invalid("principal", "must be positive, got %v", principal)
	case math.IsNaN(annualInterestRate) || annualInterestRate < 0:
		return domain.Invalid("annualInterestRate", "must not be negative, got %v", annualInterestRate)
	case annualInterestRate >= constants.MaxAnnualRate:
		return domain.Invalid("annualInterestRate", "must be a decimal fraction below 1, got %v", annualInterestRate)
	case termMonths <= 0:
		return domain.Invalid("termInMonths", "must be positive, got %d", termMonths)
	case math.IsNaN(monthlyPayment) || monthlyPayment <= 0:
		return domain.Invalid("monthlyPayment", "must be positive, got %v", monthlyPayment)
	}

	firstInterest := CalculateInterestPayment(principal, annualInterestRate)
	if monthlyPayment <= firstInterest {
		return &domain.NonAmortizingError{Payment: monthlyPayment, FirstInterest: firstInterest}
	}
	return nil
}

// Payment returns the contractual monthly payment.
func (s *Schedule) Payment() float64 {
	return s.payment
}

// Term returns the contractual term in months.
func (s *Schedule) Term() int {
	return s.term
}

func (s *Schedule) limit() int {
	if s.maxMonths > 0 && s.maxMonths < s.term {
		return s.maxMonths
	}
	return s.term
}

// All yields one result per month until the balance is within epsilon of
// zero, the term is exhausted or the month cap is reached. Every call starts
// again from the original principal.
func (s *Schedule) All() iter.Seq[domain.MonthlyResult] {
	return func(yield func(domain.MonthlyResult) bool) {
		balance := s.principal
		var cumulativeInterest, cumulativePrincipal float64
		for month := 1; month <= s.limit(); month++ {
			p := Step(balance, s.rate, s.payment, s.epsilon)
			cumulativeInterest += p.Interest
			cumulativePrincipal += p.Principal
			result := domain.MonthlyResult{
				Month:               month,
				BeginningBalance:    balance,
				Payment:             p.Payment,
				InterestPortion:     p.Interest,
				PrincipalPortion:    p.Principal,
				EndingBalance:       p.RemainingPrincipal,
				CumulativeInterest:  cumulativeInterest,
				CumulativePrincipal: cumulativePrincipal,
			}
			if !yield(result) {
				return
			}
			balance = p.RemainingPrincipal
			if balance <= s.epsilon {
				return
			}
		}
	}
}

// Status classifies how a collected schedule ended.
func (s *Schedule) Status(results []domain.MonthlyResult) domain.Status {
	if len(results) == 0 {
		return domain.StatusIterationCapReached
	}
	last := results[len(results)-1]
	switch {
	case last.EndingBalance <= s.epsilon:
		return domain.StatusPaidOff
	case last.Month >= s.term:
		return domain.StatusTermExhausted
	default:
		return domain.StatusIterationCapReached
	}
}

// Amortize computes the complete schedule for a loan.
func Amortize(principal, annualInterestRate float64, termMonths int, monthlyPayment float64, opts ...Option) ([]domain.MonthlyResult, error) {
	schedule, err := NewSchedule(principal, annualInterestRate, termMonths, monthlyPayment, opts...)
	if err != nil {
		return nil, err
	}
	return slices.Collect(schedule.All()), nil
}
