package reports

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// WriteMonthlyCSV writes a year summary as CSV with grouped amounts.
func WriteMonthlyCSV(w io.Writer, summary YearSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "revenue", "expense", "net"}); err != nil {
		return err
	}
	var revenue, expense float64
	for _, m := range summary.Months {
		revenue += m.Revenue
		expense += m.Expense
		if err := cw.Write([]string{
			m.Month.String(),
			formatAmount(m.Revenue),
			formatAmount(m.Expense),
			formatAmount(m.Net),
		}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"Total", formatAmount(revenue), formatAmount(expense), formatAmount(revenue - expense)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}
