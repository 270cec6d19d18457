package output

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/iwvelando/heloc-forecast/internal/forecast"
	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/format"
)

const (
	pdfMarginLeft   = 15.0
	pdfMarginTop    = 15.0
	pdfMarginRight  = 15.0
	pdfMarginBottom = 15.0
	pdfContentWidth = 210.0 - pdfMarginLeft - pdfMarginRight
)

type pdfReport struct {
	pdf *fpdf.Fpdf
}

// PDFFormat writes one page per scenario: the comparison summary and a
// year-end schedule of the strategy track.
func PDFFormat(w io.Writer, results []forecast.Forecast) error {
	r := &pdfReport{pdf: fpdf.New("P", "mm", "A4", "")}
	r.pdf.SetMargins(pdfMarginLeft, pdfMarginTop, pdfMarginRight)
	r.pdf.SetAutoPageBreak(true, pdfMarginBottom)

	if len(results) == 0 {
		r.pdf.AddPage()
		r.pdf.SetFont("Arial", "", 12)
		r.pdf.CellFormat(pdfContentWidth, 10, "No active scenarios", "", 1, "C", false, 0, "")
	}
	for _, result := range results {
		r.addScenario(result)
	}
	return r.pdf.Output(w)
}

func (r *pdfReport) addScenario(result forecast.Forecast) {
	r.pdf.AddPage()

	r.pdf.SetFont("Arial", "B", 18)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(pdfContentWidth, 12, "HELOC Payoff Plan: "+result.Name, "", 1, "L", false, 0, "")
	r.pdf.SetFont("Arial", "I", 10)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.CellFormat(pdfContentWidth, 6, "Starting "+result.MonthLabel(1), "", 1, "L", false, 0, "")
	r.pdf.Ln(4)

	s := result.Result.Summary
	r.summaryTable([][3]string{
		{"Status", string(s.TraditionalStatus), string(s.Status)},
		{"Payoff months", fmt.Sprint(s.TraditionalPayoffMonths), fmt.Sprint(s.StrategyPayoffMonths)},
		{"Total interest", format.Currency(s.TraditionalTotalInterest), format.Currency(s.StrategyTotalInterest)},
		{"Total PMI", format.Currency(s.TraditionalTotalPMI), format.Currency(s.StrategyTotalPMI)},
		{"Residual balance", format.Currency(s.TraditionalResidualBalance), format.Currency(s.StrategyResidualBalance)},
	})

	r.pdf.Ln(4)
	r.pdf.SetFont("Arial", "", 11)
	r.pdf.SetTextColor(50, 50, 50)
	if s.Converged() {
		r.pdf.MultiCell(pdfContentWidth, 6, fmt.Sprintf("Saves %d months and %s of interest (%s). Peak HELOC balance %s.",
			s.MonthsSaved, format.Currency(s.InterestSaved), format.Percent(s.PercentageSaved), format.Currency(s.MaxHelocBalance)), "", "L", false)
	} else {
		r.pdf.MultiCell(pdfContentWidth, 6, "The strategy did not pay off within the projection window.", "", "L", false)
	}
	if opt := result.Optimization; opt != nil {
		r.pdf.MultiCell(pdfContentWidth, 6, optimizationLine(opt), "", "L", false)
	}

	r.pdf.Ln(4)
	r.scheduleTable(result)
}

func (r *pdfReport) summaryTable(rows [][3]string) {
	widths := []float64{pdfContentWidth / 3, pdfContentWidth / 3, pdfContentWidth / 3}

	r.pdf.SetFont("Arial", "B", 11)
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	for i, h := range []string{"", "Traditional", "Strategy"} {
		r.pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(50, 50, 50)
	for n, row := range rows {
		fill := n%2 == 1
		r.pdf.SetFillColor(245, 247, 250)
		r.pdf.CellFormat(widths[0], 7, row[0], "1", 0, "L", fill, 0, "")
		r.pdf.CellFormat(widths[1], 7, row[1], "1", 0, "R", fill, 0, "")
		r.pdf.CellFormat(widths[2], 7, row[2], "1", 1, "R", fill, 0, "")
	}
}

// scheduleTable lists the strategy track at every twelfth month and at payoff.
func (r *pdfReport) scheduleTable(result forecast.Forecast) {
	headers := []string{"Date", "Mortgage ($)", "HELOC ($)", "Draws ($)", "Interest ($)", "Saved ($)"}
	width := pdfContentWidth / float64(len(headers))

	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	for _, h := range headers {
		r.pdf.CellFormat(width, 7, h, "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(50, 50, 50)
	var draws, interest float64
	rows := result.Result.Strategy
	for i, m := range rows {
		draws += m.HelocDraw
		interest += m.TotalInterest()
		if m.Month%12 != 0 && i != len(rows)-1 {
			continue
		}
		r.scheduleRow(width, result.MonthLabel(m.Month), m, draws, interest)
		draws, interest = 0, 0
	}
}

func (r *pdfReport) scheduleRow(width float64, label string, m domain.MonthlyResult, draws, interest float64) {
	cells := []string{
		label,
		format.NumericCurrency(m.EndingBalance),
		format.NumericCurrency(m.EndingHelocBalance),
		format.NumericCurrency(draws),
		format.NumericCurrency(interest),
		format.NumericCurrency(m.InterestSaved),
	}
	for i, c := range cells {
		align := "R"
		if i == 0 {
			align = "L"
		}
		ln := 0
		if i == len(cells)-1 {
			ln = 1
		}
		r.pdf.CellFormat(width, 6, c, "1", ln, align, false, 0, "")
	}
}
