// Package optimization provides shared data structures for optimization results.
package optimization

// FieldExtraMonthlyIncome is the only quantity the payoff solver adjusts.
const FieldExtraMonthlyIncome = "extraMonthlyIncome"

// Summary captures the result of a single payoff-target search.
type Summary struct {
	Scenario             string   `json:"scenario"`
	Field                string   `json:"field"`
	TargetPayoffMonths   int      `json:"targetPayoffMonths"`
	BaselinePayoffMonths int      `json:"baselinePayoffMonths"`
	AchievedPayoffMonths int      `json:"achievedPayoffMonths"`
	Value                float64  `json:"value"`
	Ceiling              float64  `json:"ceiling"`
	InterestSaved        float64  `json:"interestSaved"`
	Iterations           int      `json:"iterations"`
	Converged            bool     `json:"converged"`
	Notes                []string `json:"notes,omitempty"`
	ValueDisplay         string   `json:"valueDisplay,omitempty"`
}
