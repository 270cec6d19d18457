package simulator

// PolicyState is what a HELOC policy sees at the start of a strategy month,
// after the month's base and extra principal have been planned.
type PolicyState struct {
	Month           int
	MortgageBalance float64
	MortgageRate    float64
	HelocBalance    float64
	HelocRate       float64
	HelocLimit      float64
	AvailableCredit float64
}

// Policy decides whether the strategy track draws on the HELOC this month.
type Policy interface {
	ShouldDraw(state PolicyState) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(state PolicyState) bool

// ShouldDraw calls f(state).
func (f PolicyFunc) ShouldDraw(state PolicyState) bool {
	return f(state)
}

// RateOrNearPayoffPolicy draws when the mortgage rate is at least the HELOC
// rate, or when the opening mortgage balance is under NearPayoffRatio of the
// HELOC limit so a final lump-sum draw can clear it.
type RateOrNearPayoffPolicy struct {
	NearPayoffRatio float64
}

// ShouldDraw implements Policy.
func (p RateOrNearPayoffPolicy) ShouldDraw(state PolicyState) bool {
	return state.MortgageRate >= state.HelocRate ||
		state.MortgageBalance < p.NearPayoffRatio*state.HelocLimit
}
