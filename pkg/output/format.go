// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iwvelando/heloc-forecast/internal/forecast"
	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/format"
	"github.com/iwvelando/heloc-forecast/pkg/optimization"
	"github.com/iwvelando/heloc-forecast/pkg/validation"
)

// Write renders results to w in the named format.
func Write(w io.Writer, outputFormat string, results []forecast.Forecast) error {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	switch outputFormat {
	case constants.OutputFormatCSV:
		return CsvFormat(w, results)
	case constants.OutputFormatJSON:
		return JSONFormat(w, results)
	case constants.OutputFormatPDF:
		return PDFFormat(w, results)
	default:
		return PrettyFormat(w, results)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true)

	noteStyle = lipgloss.NewStyle().Italic(true)
)

// PrettyFormat outputs a human-readable rather than machine-readable report:
// a summary per scenario followed by the strategy's month-by-month schedule.
func PrettyFormat(w io.Writer, results []forecast.Forecast) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	for i, result := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(titleStyle.Render("Results for scenario " + result.Name))
		b.WriteString("\n")

		s := result.Result.Summary
		b.WriteString(renderTable([]string{"Metric", "Traditional", "Strategy"}, [][]string{
			{"Status", string(s.TraditionalStatus), string(s.Status)},
			{"Payoff months", p.Sprintf("%d", s.TraditionalPayoffMonths), p.Sprintf("%d", s.StrategyPayoffMonths)},
			{"Payoff date", payoffLabel(result, s.TraditionalPayoffMonths), payoffLabel(result, s.StrategyPayoffMonths)},
			{"Total interest", p.Sprintf("$%.2f", s.TraditionalTotalInterest), p.Sprintf("$%.2f", s.StrategyTotalInterest)},
			{"Total PMI", p.Sprintf("$%.2f", s.TraditionalTotalPMI), p.Sprintf("$%.2f", s.StrategyTotalPMI)},
			{"Residual balance", p.Sprintf("$%.2f", s.TraditionalResidualBalance), p.Sprintf("$%.2f", s.StrategyResidualBalance)},
		}))

		if s.Converged() {
			fmt.Fprintf(&b, "Saves %s months and %s of interest (%s)\n",
				p.Sprintf("%d", s.MonthsSaved), format.Currency(s.InterestSaved), format.Percent(s.PercentageSaved))
		} else {
			b.WriteString(noteStyle.Render("Strategy did not pay off within the projection window"))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "HELOC: max %s, average %s, interest %s\n",
			format.Currency(s.MaxHelocBalance), format.Currency(s.AverageHelocBalance), format.Currency(s.TotalHelocInterest))
		if opt := result.Optimization; opt != nil {
			b.WriteString(optimizationLine(opt))
		}

		rows := make([][]string, 0, len(result.Result.Strategy))
		for _, r := range result.Result.Strategy {
			rows = append(rows, []string{
				result.MonthLabel(r.Month),
				p.Sprintf("$%.2f", r.EndingBalance),
				p.Sprintf("$%.2f", r.HelocDraw),
				p.Sprintf("$%.2f", r.EndingHelocBalance),
				p.Sprintf("$%.2f", r.TotalInterest()),
				p.Sprintf("$%.2f", r.InterestSaved),
			})
		}
		b.WriteString(renderTable([]string{"Date", "Mortgage", "HELOC Draw", "HELOC", "Interest", "Interest Saved"}, rows))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func payoffLabel(result forecast.Forecast, months int) string {
	if months == 0 {
		return "-"
	}
	return result.MonthLabel(months)
}

func optimizationLine(opt *optimization.Summary) string {
	if !opt.Converged {
		return fmt.Sprintf("Target %d months: %s\n", opt.TargetPayoffMonths, strings.Join(opt.Notes, "; "))
	}
	return fmt.Sprintf("Target %d months: add %s of monthly income (payoff in %d months)\n",
		opt.TargetPayoffMonths, opt.ValueDisplay, opt.AchievedPayoffMonths)
}

// renderTable draws a bordered table whose first column is left aligned and
// the rest right aligned.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(left, mid, right string) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return left + strings.Join(parts, mid) + right + "\n"
	}
	cells := func(row []string, style *lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i == 0 {
				cell = fmt.Sprintf(" %-*s ", w, cell)
			} else {
				cell = fmt.Sprintf(" %*s ", w, cell)
			}
			if style != nil {
				cell = style.Render(cell)
			}
			parts[i] = cell
		}
		return "│" + strings.Join(parts, "│") + "│\n"
	}

	var b strings.Builder
	b.WriteString(line("╭", "┬", "╮"))
	b.WriteString(cells(headers, &headerStyle))
	b.WriteString(line("├", "┼", "┤"))
	for _, row := range rows {
		b.WriteString(cells(row, nil))
	}
	b.WriteString(line("╰", "┴", "╯"))
	return b.String()
}

// csvHeader names the columns CsvFormat writes, in order.
var csvHeader = []string{
	"scenario", "track", "month", "date",
	"beginningBalance", "payment", "interest", "principal", "extraPrincipal", "endingBalance",
	"helocDraw", "helocInterest", "helocPrincipal", "endingHelocBalance", "helocAvailableCredit",
	"pmi", "ltv", "cumulativeInterest", "cumulativePrincipal", "interestSaved", "monthsSaved",
}

// CsvFormat outputs every month of both tracks in comma-separated value format.
func CsvFormat(w io.Writer, results []forecast.Forecast) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, result := range results {
		tracks := []struct {
			track domain.Track
			rows  []domain.MonthlyResult
		}{
			{domain.TrackTraditional, result.Result.Traditional},
			{domain.TrackStrategy, result.Result.Strategy},
		}
		for _, t := range tracks {
			for _, r := range t.rows {
				record := []string{
					result.Name, string(t.track), strconv.Itoa(r.Month), result.MonthLabel(r.Month),
					format.Fixed(r.BeginningBalance), format.Fixed(r.Payment), format.Fixed(r.InterestPortion),
					format.Fixed(r.PrincipalPortion), format.Fixed(r.ExtraPrincipal), format.Fixed(r.EndingBalance),
					format.Fixed(r.HelocDraw), format.Fixed(r.HelocInterest), format.Fixed(r.HelocPrincipal),
					format.Fixed(r.EndingHelocBalance), format.Fixed(r.HelocAvailableCredit),
					format.Fixed(r.PMIPayment), strconv.FormatFloat(r.LTV, 'f', 4, 64),
					format.Fixed(r.CumulativeInterest), format.Fixed(r.CumulativePrincipal),
					format.Fixed(r.InterestSaved), strconv.Itoa(r.MonthsSaved),
				}
				if err := cw.Write(record); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONFormat outputs the full results as indented JSON.
func JSONFormat(w io.Writer, results []forecast.Forecast) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
