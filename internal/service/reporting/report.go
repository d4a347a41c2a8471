package reporting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
)

// Report is the structured payload returned for every period.
type Report struct {
	Period      Period            `json:"period"`
	GeneratedAt time.Time         `json:"generated_at"`
	Since       *time.Time        `json:"since,omitempty"`
	Purchases   PurchaseSection   `json:"purchases"`
	Processing  ProcessingSection `json:"processing"`
	Expenses    ExpenseSection    `json:"expenses"`
	Sales       SaleSection       `json:"sales"`
	NetProfit   decimal.Decimal   `json:"net_profit"`
	Averages    *Averages         `json:"averages,omitempty"`
	SkippedRows int               `json:"skipped_rows"`
}

// Empty reports whether no collection contributed a record.
func (r Report) Empty() bool {
	return r.Purchases.Empty && r.Processing.Empty && r.Expenses.Empty && r.Sales.Empty
}

// Section is shared by every collection summary. Notice is set when the
// collection had no matching records.
type Section struct {
	Count  int    `json:"count"`
	Empty  bool   `json:"empty"`
	Notice string `json:"notice,omitempty"`
}

func newSection(count int, noun string, windowed bool) Section {
	if count > 0 {
		return Section{Count: count}
	}
	notice := fmt.Sprintf("no %s recorded", noun)
	if windowed {
		notice = fmt.Sprintf("no %s this period", noun)
	}
	return Section{Empty: true, Notice: notice}
}

// PurchaseSection sums purchase cost and kg bought.
type PurchaseSection struct {
	Section
	TotalCost decimal.Decimal   `json:"total_cost"`
	KgBought  decimal.Decimal   `json:"kg_bought"`
	Items     []models.Purchase `json:"items,omitempty"`
}

// ProcessingSection sums processed output. AverageYield is processed over
// bought kg in the same window.
type ProcessingSection struct {
	Section
	KgProcessed  decimal.Decimal        `json:"kg_processed"`
	AverageYield decimal.Decimal        `json:"average_yield"`
	Items        []models.ProcessingRun `json:"items,omitempty"`
}

// CategoryTotal is an expense subtotal, in first-seen category order.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// ExpenseSection sums operating costs.
type ExpenseSection struct {
	Section
	Total      decimal.Decimal  `json:"total"`
	ByCategory []CategoryTotal  `json:"by_category,omitempty"`
	Items      []models.Expense `json:"items,omitempty"`
}

// SaleSection sums revenue, kg sold and utility.
type SaleSection struct {
	Section
	Revenue decimal.Decimal `json:"revenue"`
	KgSold  decimal.Decimal `json:"kg_sold"`
	Utility decimal.Decimal `json:"utility"`
	Items   []models.Sale   `json:"items,omitempty"`
}

// Averages are only computed for monthly reports. Each one is zero when its
// denominator is empty.
type Averages struct {
	PurchasePricePerKg decimal.Decimal `json:"purchase_price_per_kg"`
	SalePricePerKg     decimal.Decimal `json:"sale_price_per_kg"`
	MarginPercent      decimal.Decimal `json:"margin_percent"`
}

// Snapshot flattens the report for the archive.
func (r Report) Snapshot() models.ReportSnapshot {
	return models.ReportSnapshot{
		Period:        string(r.Period),
		Since:         r.Since,
		GeneratedAt:   r.GeneratedAt,
		PurchaseCount: r.Purchases.Count,
		PurchaseCost:  r.Purchases.TotalCost.InexactFloat64(),
		KgBought:      r.Purchases.KgBought.InexactFloat64(),
		KgProcessed:   r.Processing.KgProcessed.InexactFloat64(),
		AverageYield:  r.Processing.AverageYield.InexactFloat64(),
		Expenses:      r.Expenses.Total.InexactFloat64(),
		Revenue:       r.Sales.Revenue.InexactFloat64(),
		KgSold:        r.Sales.KgSold.InexactFloat64(),
		Utility:       r.Sales.Utility.InexactFloat64(),
		NetProfit:     r.NetProfit.InexactFloat64(),
		SkippedRows:   r.SkippedRows,
		CreatedAt:     r.GeneratedAt.UTC(),
	}
}
