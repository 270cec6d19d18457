// Package domain defines the value types exchanged with the payoff simulation
// engine. Every value is created fresh per simulation and never mutated by
// the engine after it is returned.
package domain

// MortgageInput describes the primary fixed-rate loan.
type MortgageInput struct {
	Principal          float64 `json:"principal" yaml:"principal"`
	AnnualInterestRate float64 `json:"annualInterestRate" yaml:"annualInterestRate"`
	TermInMonths       int     `json:"termInMonths" yaml:"termInMonths"`
	// MonthlyPayment of 0 means the standard fixed payment is derived from
	// principal, rate and term.
	MonthlyPayment    float64 `json:"monthlyPayment,omitempty" yaml:"monthlyPayment,omitempty"`
	PropertyValue     float64 `json:"propertyValue,omitempty" yaml:"propertyValue,omitempty"`
	PMIMonthly        float64 `json:"pmiMonthly,omitempty" yaml:"pmiMonthly,omitempty"`
	PMIEliminationLTV float64 `json:"pmiEliminationLtv,omitempty" yaml:"pmiEliminationLtv,omitempty"`
}

// HelocInput describes a revolving home equity line of credit.
type HelocInput struct {
	Limit              float64 `json:"limit" yaml:"limit"`
	AnnualInterestRate float64 `json:"annualInterestRate" yaml:"annualInterestRate"`
	AvailableCredit    float64 `json:"availableCredit" yaml:"availableCredit"`
	// Balance is an existing outstanding balance carried into month 1.
	Balance float64 `json:"balance,omitempty" yaml:"balance,omitempty"`
}

// Frequency is how often a cash flow recurs.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiWeekly Frequency = "bi-weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAnnual   Frequency = "annual"
)

// CashFlow is a time-bounded income or expense. Months are 1-based and the
// window [StartMonth, EndMonth] is inclusive; a nil EndMonth never ends.
type CashFlow struct {
	Name   string  `json:"name" yaml:"name"`
	Amount float64 `json:"amount" yaml:"amount"`
	// NetAmount is the take-home amount of an income; 0 means Amount.
	NetAmount  float64   `json:"netAmount,omitempty" yaml:"netAmount,omitempty"`
	StartMonth int       `json:"startMonth" yaml:"startMonth"`
	EndMonth   *int      `json:"endMonth,omitempty" yaml:"endMonth,omitempty"`
	Frequency  Frequency `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Active     bool      `json:"active" yaml:"active"`
}

// Track identifies one of the two simulated payoff trajectories.
type Track string

const (
	TrackTraditional Track = "traditional"
	TrackStrategy    Track = "strategy"
)

// Status is the terminal state of a track.
type Status string

const (
	StatusPaidOff Status = "paid_off"
	// StatusTermExhausted reports a payment that reduces principal but cannot
	// clear the loan within its term. The traditional track ends at the term
	// with the remaining balance reported as residual, rather than failing.
	StatusTermExhausted       Status = "term_exhausted"
	StatusIterationCapReached Status = "iteration_cap_reached"
)

// MonthlyResult is one simulated month of one track. HELOC fields stay zero
// on the traditional track.
type MonthlyResult struct {
	Month               int     `json:"month"`
	BeginningBalance    float64 `json:"beginningBalance"`
	Payment             float64 `json:"payment"`
	InterestPortion     float64 `json:"interestPortion"`
	PrincipalPortion    float64 `json:"principalPortion"`
	ExtraPrincipal      float64 `json:"extraPrincipal"`
	EndingBalance       float64 `json:"endingBalance"`
	DiscretionaryIncome float64 `json:"discretionaryIncome"`

	BeginningHelocBalance float64 `json:"beginningHelocBalance"`
	HelocDraw             float64 `json:"helocDraw"`
	HelocInterest         float64 `json:"helocInterest"`
	HelocPrincipal        float64 `json:"helocPrincipal"`
	EndingHelocBalance    float64 `json:"endingHelocBalance"`
	HelocAvailableCredit  float64 `json:"helocAvailableCredit"`

	PMIPayment    float64 `json:"pmiPayment"`
	LTV           float64 `json:"ltv"`
	PMIEliminated bool    `json:"pmiEliminated"`

	CumulativeInterest  float64 `json:"cumulativeInterest"`
	CumulativePrincipal float64 `json:"cumulativePrincipal"`
	InterestSaved       float64 `json:"interestSaved"`
	MonthsSaved         int     `json:"monthsSaved"`
}

// TotalInterest is the mortgage plus HELOC interest charged in the month.
func (r MonthlyResult) TotalInterest() float64 {
	return r.InterestPortion + r.HelocInterest
}

// SimulationSummary compares the traditional and strategy tracks.
type SimulationSummary struct {
	Status            Status `json:"status"`
	TraditionalStatus Status `json:"traditionalStatus"`

	TraditionalPayoffMonths  int     `json:"traditionalPayoffMonths"`
	StrategyPayoffMonths     int     `json:"strategyPayoffMonths"`
	TraditionalTotalInterest float64 `json:"traditionalTotalInterest"`
	StrategyTotalInterest    float64 `json:"strategyTotalInterest"`

	// MonthsSaved, InterestSaved and PercentageSaved stay zero unless the
	// strategy track paid off.
	MonthsSaved     int     `json:"monthsSaved"`
	InterestSaved   float64 `json:"interestSaved"`
	PercentageSaved float64 `json:"percentageSaved"`

	MaxHelocBalance     float64 `json:"maxHelocBalance"`
	AverageHelocBalance float64 `json:"averageHelocBalance"`
	TotalHelocInterest  float64 `json:"totalHelocInterest"`

	TraditionalResidualBalance float64 `json:"traditionalResidualBalance"`
	StrategyResidualBalance    float64 `json:"strategyResidualBalance"`

	TraditionalPMIEliminationMonth int     `json:"traditionalPmiEliminationMonth"`
	StrategyPMIEliminationMonth    int     `json:"strategyPmiEliminationMonth"`
	TraditionalTotalPMI            float64 `json:"traditionalTotalPmi"`
	StrategyTotalPMI               float64 `json:"strategyTotalPmi"`
}

// Converged reports whether the strategy track paid off before the cap.
func (s SimulationSummary) Converged() bool {
	return s.Status == StatusPaidOff
}
