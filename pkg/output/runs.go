package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/heloc-forecast/internal/store"
	"github.com/iwvelando/heloc-forecast/pkg/format"
)

// PrettyRuns lists saved runs, newest first as given.
func PrettyRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No saved runs")
		return err
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		s := run.Summary
		rows = append(rows, []string{
			run.ID,
			run.Scenario,
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(s.Status),
			fmt.Sprintf("%d", s.StrategyPayoffMonths),
			format.Currency(s.InterestSaved),
		})
	}
	var b strings.Builder
	b.WriteString(renderTable([]string{"ID", "Scenario", "Created", "Status", "Payoff Months", "Interest Saved"}, rows))
	_, err := io.WriteString(w, b.String())
	return err
}
