package presentation

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/cafeledger/internal/service/reporting"
)

// RenderReport formats a report as a chat message. Daily reports list every
// transaction; weekly and monthly reports show expense subtotals per category.
func RenderReport(r reporting.Report) string {
	var b strings.Builder

	b.WriteString(title(r))
	b.WriteString("\n\n")

	if r.Empty() {
		b.WriteString("No operations recorded for this period.\n")
		return b.String()
	}

	b.WriteString("*Purchases:*\n")
	if r.Purchases.Empty {
		line(&b, "%s", r.Purchases.Notice)
	} else {
		line(&b, "Total: %s", FormatCurrency(r.Purchases.TotalCost))
		line(&b, "Coffee bought: %s", FormatKg(r.Purchases.KgBought))
		if r.Averages != nil {
			line(&b, "Average price: %s/kg", FormatCurrency(r.Averages.PurchasePricePerKg))
		}
		for _, p := range r.Purchases.Items {
			line(&b, "- %s %s: %s x %s = %s", FormatDate(p.Timestamp), p.Supplier, FormatKg(p.QuantityKg), FormatCurrency(p.PricePerKg), FormatCurrency(p.QuantityKg.Mul(p.PricePerKg)))
		}
	}
	b.WriteString("\n")

	b.WriteString("*Processing:*\n")
	if r.Processing.Empty {
		line(&b, "%s", r.Processing.Notice)
	} else {
		line(&b, "Coffee processed: %s", FormatKg(r.Processing.KgProcessed))
		line(&b, "Average yield: %s", FormatPercent(r.Processing.AverageYield))
		for _, run := range r.Processing.Items {
			line(&b, "- %s %s: %s -> %s (%s)", FormatDate(run.Timestamp), run.ProcessType, FormatKg(run.KgInput), FormatKg(run.KgOutput), FormatPercent(run.YieldPercent))
		}
	}
	b.WriteString("\n")

	b.WriteString("*Expenses:*\n")
	if r.Expenses.Empty {
		line(&b, "%s", r.Expenses.Notice)
	} else {
		line(&b, "Total: %s", FormatCurrency(r.Expenses.Total))
		if len(r.Expenses.ByCategory) > 0 {
			b.WriteString("By category:\n")
			for _, c := range r.Expenses.ByCategory {
				line(&b, "- %s: %s", c.Category, FormatCurrency(c.Total))
			}
		}
		for _, e := range r.Expenses.Items {
			line(&b, "- %s %s: %s %s", FormatDate(e.Timestamp), e.Category, FormatCurrency(e.Amount), e.Description)
		}
	}
	b.WriteString("\n")

	b.WriteString("*Sales:*\n")
	if r.Sales.Empty {
		line(&b, "%s", r.Sales.Notice)
	} else {
		line(&b, "Total: %s", FormatCurrency(r.Sales.Revenue))
		line(&b, "Coffee sold: %s", FormatKg(r.Sales.KgSold))
		if r.Averages != nil {
			line(&b, "Average price: %s/kg", FormatCurrency(r.Averages.SalePricePerKg))
			line(&b, "Average margin: %s", FormatPercent(r.Averages.MarginPercent))
		}
		for _, s := range r.Sales.Items {
			line(&b, "- %s %s: %s x %s = %s", FormatDate(s.Timestamp), s.Client, FormatKg(s.QuantityKg), FormatCurrency(s.PricePerKg), FormatCurrency(s.Total))
		}
	}
	b.WriteString("\n")

	b.WriteString("*Balance:*\n")
	line(&b, "Profit: %s", FormatCurrency(r.NetProfit))

	if r.SkippedRows > 0 {
		line(&b, "\n%d unreadable rows were left out.", r.SkippedRows)
	}
	return b.String()
}

func title(r reporting.Report) string {
	switch {
	case r.Period == reporting.PeriodDaily:
		return fmt.Sprintf("*DAILY REPORT (%s)*", FormatDate(r.GeneratedAt))
	case r.Since != nil:
		return fmt.Sprintf("*%s REPORT (%s - %s)*", strings.ToUpper(string(r.Period)), FormatDate(*r.Since), FormatDate(r.GeneratedAt))
	default:
		return "*GENERAL REPORT*"
	}
}

func line(b *strings.Builder, format string, args ...interface{}) {
	fmt.Fprintf(b, format, args...)
	b.WriteByte('\n')
}
