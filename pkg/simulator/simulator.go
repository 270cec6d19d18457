// Package simulator runs the traditional and HELOC-accelerated payoff tracks
// of a mortgage side by side, one month at a time.
package simulator

import (
	"errors"
	"iter"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/iwvelando/heloc-forecast/pkg/amortization"
	"github.com/iwvelando/heloc-forecast/pkg/cashflow"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/mathutil"
	"github.com/iwvelando/heloc-forecast/pkg/summary"
)

// Input is everything a simulation needs. Heloc is optional.
type Input struct {
	Mortgage domain.MortgageInput `json:"mortgage" yaml:"mortgage"`
	Heloc    *domain.HelocInput   `json:"heloc,omitempty" yaml:"heloc,omitempty"`
	Incomes  []domain.CashFlow    `json:"incomes,omitempty" yaml:"incomes,omitempty"`
	Expenses []domain.CashFlow    `json:"expenses,omitempty" yaml:"expenses,omitempty"`
}

// Result holds both tracks and their comparison.
type Result struct {
	Traditional []domain.MonthlyResult   `json:"traditional"`
	Strategy    []domain.MonthlyResult   `json:"strategy"`
	Summary     domain.SimulationSummary `json:"summary"`
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithPolicy replaces the default HELOC draw policy.
func WithPolicy(policy Policy) Option {
	return func(s *Simulator) {
		s.policy = policy
	}
}

// Simulator is stateless between calls and safe for concurrent use.
type Simulator struct {
	logger *zap.Logger
	config Config
	policy Policy
}

// New returns a Simulator. A nil logger discards all output.
func New(logger *zap.Logger, config Config, opts ...Option) (*Simulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		logger: logger,
		config: config,
		policy: RateOrNearPayoffPolicy{NearPayoffRatio: config.NearPayoffRatio},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		return nil, domain.Invalid("policy", "must not be nil")
	}
	return s, nil
}

// Config returns the configuration the simulator was built with.
func (s *Simulator) Config() Config {
	return s.config
}

// ResolvePayment returns the contractual payment, deriving the standard
// fixed payment when none is given.
func ResolvePayment(m domain.MortgageInput) float64 {
	if m.MonthlyPayment > 0 {
		return m.MonthlyPayment
	}
	return amortization.CalculateMonthlyPayment(m.Principal, m.AnnualInterestRate, m.TermInMonths)
}

// Validate checks every input before a simulation starts. It returns a
// *domain.InputError or a *domain.NonAmortizingError.
func Validate(in Input) error {
	m := in.Mortgage
	switch {
	case math.IsNaN(m.MonthlyPayment) || m.MonthlyPayment < 0:
		return domain.Invalid("mortgage.monthlyPayment", "must not be negative, got %v", m.MonthlyPayment)
	case math.IsNaN(m.PropertyValue) || m.PropertyValue < 0:
		return domain.Invalid("mortgage.propertyValue", "must not be negative, got %v", m.PropertyValue)
	case math.IsNaN(m.PMIMonthly) || m.PMIMonthly < 0:
		return domain.Invalid("mortgage.pmiMonthly", "must not be negative, got %v", m.PMIMonthly)
	case m.PMIMonthly > 0 && m.PropertyValue == 0:
		return domain.Invalid("mortgage.propertyValue", "is required when pmiMonthly is set")
	case math.IsNaN(m.PMIEliminationLTV) || m.PMIEliminationLTV < 0 || m.PMIEliminationLTV >= 1:
		return domain.Invalid("mortgage.pmiEliminationLtv", "must be in [0, 1), got %v", m.PMIEliminationLTV)
	}

	if h := in.Heloc; h != nil {
		switch {
		case math.IsNaN(h.Limit) || h.Limit < 0:
			return domain.Invalid("heloc.limit", "must not be negative, got %v", h.Limit)
		case math.IsNaN(h.AnnualInterestRate) || h.AnnualInterestRate < 0:
			return domain.Invalid("heloc.annualInterestRate", "must not be negative, got %v", h.AnnualInterestRate)
		case h.AnnualInterestRate >= constants.MaxAnnualRate:
			return domain.Invalid("heloc.annualInterestRate", "must be a decimal fraction below 1, got %v", h.AnnualInterestRate)
		case math.IsNaN(h.AvailableCredit) || h.AvailableCredit < 0:
			return domain.Invalid("heloc.availableCredit", "must not be negative, got %v", h.AvailableCredit)
		case h.AvailableCredit > h.Limit:
			return domain.Invalid("heloc.availableCredit", "must not exceed the limit %v, got %v", h.Limit, h.AvailableCredit)
		case math.IsNaN(h.Balance) || h.Balance < 0:
			return domain.Invalid("heloc.balance", "must not be negative, got %v", h.Balance)
		case h.Balance+h.AvailableCredit > h.Limit+constants.CurrencyEpsilon:
			return domain.Invalid("heloc.balance", "plus available credit must not exceed the limit %v", h.Limit)
		}
	}

	if _, err := cashflow.NewProcessor(in.Incomes, in.Expenses); err != nil {
		return err
	}

	err := amortization.ValidateTerms(m.Principal, m.AnnualInterestRate, m.TermInMonths, ResolvePayment(m))
	var inputErr *domain.InputError
	if errors.As(err, &inputErr) {
		return &domain.InputError{Field: "mortgage." + inputErr.Field, Reason: inputErr.Reason}
	}
	return err
}

// Simulate validates the input and runs both tracks in lockstep until both
// finish or the month cap is reached.
func (s *Simulator) Simulate(in Input) (Result, error) {
	if err := Validate(in); err != nil {
		s.logger.Debug("rejected simulation input",
			zap.String("op", "simulator.Simulate"),
			zap.Error(err),
		)
		return Result{}, err
	}

	m := in.Mortgage
	payment := ResolvePayment(m)
	schedule, err := amortization.NewSchedule(m.Principal, m.AnnualInterestRate, m.TermInMonths, payment,
		amortization.WithEpsilon(s.config.Epsilon),
		amortization.WithMaxMonths(s.config.MonthsToProject),
	)
	if err != nil {
		return Result{}, err
	}
	flows, err := cashflow.NewProcessor(in.Incomes, in.Expenses)
	if err != nil {
		return Result{}, err
	}

	return s.runTracks(in, schedule, flows, payment), nil
}

func (s *Simulator) runTracks(in Input, schedule *amortization.Schedule, flows *cashflow.Processor, payment float64) Result {
	var (
		traditional []domain.MonthlyResult
		strategy    []domain.MonthlyResult
	)

	tradPMI := newPMITracker(in.Mortgage, domain.TrackTraditional, s.logger)
	strat := newStrategyTrack(in, payment, s.config.Epsilon, s.policy, s.logger)

	next, stop := iter.Pull(schedule.All())
	defer stop()

	tradDone, stratDone := false, false
	for month := 1; month <= s.config.MonthsToProject && !(tradDone && stratDone); month++ {
		if !tradDone {
			if r, ok := next(); ok {
				r.DiscretionaryIncome = flows.Month(month).Discretionary()
				tradPMI.apply(&r)
				traditional = append(traditional, r)
			} else {
				tradDone = true
			}
		}
		if !stratDone {
			strategy = append(strategy, strat.step(month, flows.Month(month)))
			stratDone = strat.paidOff()
		}
	}

	status := domain.StatusPaidOff
	if !strat.paidOff() {
		status = domain.StatusIterationCapReached
		s.logger.Warn("strategy track reached the iteration cap",
			zap.String("op", "simulator.Simulate"),
			zap.Int("monthsToProject", s.config.MonthsToProject),
			zap.Float64("mortgageBalance", strat.mortgageBalance),
			zap.Float64("helocBalance", strat.helocBalance),
		)
	}
	traditionalStatus := schedule.Status(traditional)

	annotateSavings(traditional, strategy)

	result := Result{
		Traditional: traditional,
		Strategy:    strategy,
		Summary:     summary.Summarize(traditional, strategy, status, traditionalStatus),
	}
	s.logger.Debug("simulation complete",
		zap.String("op", "simulator.Simulate"),
		zap.String("status", string(status)),
		zap.String("traditionalStatus", string(traditionalStatus)),
		zap.Int("traditionalMonths", len(traditional)),
		zap.Int("strategyMonths", len(strategy)),
	)
	return result
}

// annotateSavings fills the per-month comparison against the traditional
// track. Months saved is how far the strategy's mortgage balance is ahead of
// the traditional schedule, bounded by the traditional horizon.
func annotateSavings(traditional, strategy []domain.MonthlyResult) {
	if len(traditional) == 0 {
		return
	}
	for i := range strategy {
		r := &strategy[i]
		j := min(i, len(traditional)-1)
		r.InterestSaved = traditional[j].CumulativeInterest - r.CumulativeInterest

		reached := sort.Search(len(traditional), func(n int) bool {
			return traditional[n].EndingBalance <= r.EndingBalance
		})
		r.MonthsSaved = max(min(reached+1, len(traditional))-r.Month, 0)
	}
}

// pmiTracker charges mortgage insurance until the loan-to-value ratio first
// drops below the elimination threshold. The crossing month is not charged.
type pmiTracker struct {
	track         domain.Track
	monthly       float64
	propertyValue float64
	threshold     float64
	eliminated    bool
	logger        *zap.Logger
}

func newPMITracker(m domain.MortgageInput, track domain.Track, logger *zap.Logger) *pmiTracker {
	threshold := m.PMIEliminationLTV
	if threshold == 0 {
		threshold = constants.DefaultPMIEliminationLTV
	}
	p := &pmiTracker{
		track:         track,
		monthly:       m.PMIMonthly,
		propertyValue: m.PropertyValue,
		threshold:     threshold,
		logger:        logger,
	}
	// No insurance to drop when none is charged or the loan starts below the threshold.
	p.eliminated = m.PMIMonthly <= 0 || (m.PropertyValue > 0 && m.Principal/m.PropertyValue < threshold)
	return p
}

func (p *pmiTracker) apply(r *domain.MonthlyResult) {
	if p.propertyValue > 0 {
		r.LTV = r.EndingBalance / p.propertyValue
	}
	if p.eliminated {
		return
	}
	if r.LTV >= p.threshold {
		r.PMIPayment = p.monthly
		return
	}
	p.eliminated = true
	r.PMIEliminated = true
	p.logger.Debug("pmi eliminated",
		zap.String("op", "simulator.pmiTracker.apply"),
		zap.String("track", string(p.track)),
		zap.Int("month", r.Month),
		zap.Float64("ltv", r.LTV),
	)
}

// strategyTrack carries the coupled mortgage and HELOC balances of the
// accelerated track between months.
type strategyTrack struct {
	mortgageRate    float64
	payment         float64
	helocRate       float64
	helocLimit      float64
	epsilon         float64
	policy          Policy
	logger          *zap.Logger
	pmi             *pmiTracker
	mortgageBalance float64
	helocBalance    float64
	available       float64

	cumulativeInterest  float64
	cumulativePrincipal float64
}

func newStrategyTrack(in Input, payment, epsilon float64, policy Policy, logger *zap.Logger) *strategyTrack {
	t := &strategyTrack{
		mortgageRate:    in.Mortgage.AnnualInterestRate,
		payment:         payment,
		epsilon:         epsilon,
		policy:          policy,
		logger:          logger,
		pmi:             newPMITracker(in.Mortgage, domain.TrackStrategy, logger),
		mortgageBalance: in.Mortgage.Principal,
	}
	if h := in.Heloc; h != nil {
		t.helocRate = h.AnnualInterestRate
		t.helocLimit = h.Limit
		t.helocBalance = h.Balance
		t.available = h.AvailableCredit
	}
	return t
}

func (t *strategyTrack) paidOff() bool {
	return t.mortgageBalance <= t.epsilon && t.helocBalance <= t.epsilon
}

// headroom is the credit the limit still allows at the current balance.
func (t *strategyTrack) headroom() float64 {
	return math.Max(0, t.helocLimit-t.helocBalance)
}

func (t *strategyTrack) step(month int, totals cashflow.Totals) domain.MonthlyResult {
	r := domain.MonthlyResult{
		Month:                 month,
		BeginningBalance:      t.mortgageBalance,
		BeginningHelocBalance: t.helocBalance,
		DiscretionaryIncome:   totals.Discretionary(),
	}

	pool := math.Max(totals.Discretionary(), 0)
	var mortgageInterest, basePrincipal float64
	if t.mortgageBalance > t.epsilon {
		mortgageInterest = amortization.CalculateInterestPayment(t.mortgageBalance, t.mortgageRate)
		basePrincipal = math.Min(t.payment-mortgageInterest, t.mortgageBalance)
	} else {
		// The freed-up mortgage payment goes to the HELOC.
		pool += t.payment
	}

	// HELOC interest is serviced from the pool; any shortfall capitalizes.
	helocInterest := amortization.CalculateInterestPayment(t.helocBalance, t.helocRate)
	serviced := math.Min(pool, helocInterest)
	pool -= serviced
	t.helocBalance += helocInterest - serviced
	t.available = math.Min(t.available, t.headroom())

	remaining := t.mortgageBalance - basePrincipal
	extra := math.Min(pool, remaining)
	pool -= extra
	remaining -= extra

	var draw float64
	state := PolicyState{
		Month:           month,
		MortgageBalance: t.mortgageBalance,
		MortgageRate:    t.mortgageRate,
		HelocBalance:    t.helocBalance,
		HelocRate:       t.helocRate,
		HelocLimit:      t.helocLimit,
		AvailableCredit: t.available,
	}
	if t.helocLimit > 0 && t.available > t.epsilon && remaining > 0 && t.policy.ShouldDraw(state) {
		draw = math.Min(t.available, remaining)
		t.available -= draw
		t.helocBalance += draw
		remaining -= draw
		t.logger.Debug("heloc draw",
			zap.String("op", "simulator.strategyTrack.step"),
			zap.Int("month", month),
			zap.Float64("amount", draw),
			zap.Float64("helocBalance", t.helocBalance),
		)
	}

	paydown := math.Min(pool, t.helocBalance)
	t.helocBalance -= paydown

	// Residue within epsilon is paid off with the rest of the month, as the
	// final payment of an amortization schedule is.
	if t.helocBalance > 0 && mathutil.Snap(t.helocBalance, t.epsilon) == 0 {
		paydown += t.helocBalance
		t.helocBalance = 0
	}
	if remaining > 0 && mathutil.Snap(remaining, t.epsilon) == 0 {
		basePrincipal += remaining
		remaining = 0
	}
	t.available = math.Min(t.available+paydown, t.headroom())
	t.mortgageBalance = remaining

	t.cumulativeInterest += mortgageInterest + helocInterest
	t.cumulativePrincipal += basePrincipal + extra + draw

	r.Payment = mortgageInterest + basePrincipal
	r.InterestPortion = mortgageInterest
	r.PrincipalPortion = basePrincipal
	r.ExtraPrincipal = extra + draw
	r.EndingBalance = t.mortgageBalance
	r.HelocDraw = draw
	r.HelocInterest = helocInterest
	r.HelocPrincipal = paydown
	r.EndingHelocBalance = t.helocBalance
	r.HelocAvailableCredit = t.available
	r.CumulativeInterest = t.cumulativeInterest
	r.CumulativePrincipal = t.cumulativePrincipal
	t.pmi.apply(&r)
	return r
}

