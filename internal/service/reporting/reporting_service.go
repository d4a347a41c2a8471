package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/metrics"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// Period selects the window and level of detail of a report.
type Period string

const (
	PeriodGeneral Period = "general"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod validates a period name.
func ParsePeriod(value string) (Period, error) {
	switch p := Period(value); p {
	case PeriodGeneral, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	}
	return "", models.Invalid("period", "%q is not one of general, daily, weekly, monthly", value)
}

// Options toggles the parts of a report that differ between periods. The
// aggregate math is the same for all of them.
type Options struct {
	Itemize       bool
	GroupExpenses bool
	Averages      bool
}

// OptionsFor returns the detail level used by period.
func OptionsFor(period Period) Options {
	switch period {
	case PeriodDaily:
		return Options{Itemize: true}
	case PeriodWeekly:
		return Options{GroupExpenses: true}
	case PeriodMonthly:
		return Options{GroupExpenses: true, Averages: true}
	}
	return Options{}
}

// Cutoff returns the start of the window for period relative to now, or nil
// for the general report. Windows open at local midnight.
func Cutoff(period Period, now time.Time) *time.Time {
	days := 0
	switch period {
	case PeriodDaily:
	case PeriodWeekly:
		days = 7
	case PeriodMonthly:
		days = 30
	default:
		return nil
	}
	y, m, d := now.Date()
	start := time.Date(y, m, d-days, 0, 0, 0, 0, now.Location())
	return &start
}

// Service builds financial summaries from the ledger collections. It never
// writes to the store.
type Service struct {
	store   tabular.Store
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used to place windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics enables report counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires a new reporting service instance.
func NewService(store tabular.Store, loc *time.Location, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Service{store: store, loc: loc, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate builds the report for period at the current time.
func (s *Service) Generate(ctx context.Context, period Period) (Report, error) {
	now := s.now().In(s.loc)
	report, err := s.Aggregate(ctx, Cutoff(period, now), OptionsFor(period))
	if err != nil {
		return Report{}, fmt.Errorf("generate %s report: %w", period, err)
	}
	report.Period = period
	report.GeneratedAt = now
	s.metrics.ObserveReport(string(period))
	return report, nil
}

// General summarizes every record regardless of time.
func (s *Service) General(ctx context.Context) (Report, error) {
	return s.Generate(ctx, PeriodGeneral)
}

// Daily summarizes records since today 00:00 with every transaction listed.
func (s *Service) Daily(ctx context.Context) (Report, error) {
	return s.Generate(ctx, PeriodDaily)
}

// Weekly summarizes records since 00:00 seven days ago.
func (s *Service) Weekly(ctx context.Context) (Report, error) {
	return s.Generate(ctx, PeriodWeekly)
}

// Monthly summarizes records since 00:00 thirty days ago, with averages.
func (s *Service) Monthly(ctx context.Context) (Report, error) {
	return s.Generate(ctx, PeriodMonthly)
}

// Window returns the rows of collection stamped at or after cutoff, in
// insertion order.
func (s *Service) Window(ctx context.Context, collection string, cutoff time.Time) ([]tabular.Record, error) {
	records, err := s.store.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return FilterSince(records, cutoff, s.loc), nil
}

// FilterSince keeps records whose timestamp is at or after cutoff. Rows with a
// missing or unparseable timestamp never match.
func FilterSince(records []tabular.Record, cutoff time.Time, loc *time.Location) []tabular.Record {
	out := make([]tabular.Record, 0, len(records))
	for _, rec := range records {
		ts, err := models.ParseTimestamp(rec.Get(models.FieldTimestamp), loc)
		if err != nil || ts.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Aggregate is the single routine behind every report. since == nil covers
// all records; otherwise only records at or after *since count.
func (s *Service) Aggregate(ctx context.Context, since *time.Time, opts Options) (Report, error) {
	report := Report{Since: since}

	purchases, skipped, err := load(ctx, s, models.CollectionPurchases, since, models.DecodePurchase)
	if err != nil {
		return Report{}, err
	}
	report.SkippedRows += skipped
	runs, skipped, err := load(ctx, s, models.CollectionProcessing, since, models.DecodeProcessingRun)
	if err != nil {
		return Report{}, err
	}
	report.SkippedRows += skipped
	expenses, skipped, err := load(ctx, s, models.CollectionExpenses, since, models.DecodeExpense)
	if err != nil {
		return Report{}, err
	}
	report.SkippedRows += skipped
	sales, skipped, err := load(ctx, s, models.CollectionSales, since, models.DecodeSale)
	if err != nil {
		return Report{}, err
	}
	report.SkippedRows += skipped

	windowed := since != nil

	p := &report.Purchases
	p.Section = newSection(len(purchases), "purchases", windowed)
	p.TotalCost, p.KgBought = decimal.Zero, decimal.Zero
	for _, purchase := range purchases {
		p.TotalCost = p.TotalCost.Add(purchase.QuantityKg.Mul(purchase.PricePerKg))
		p.KgBought = p.KgBought.Add(purchase.QuantityKg)
	}

	pr := &report.Processing
	pr.Section = newSection(len(runs), "processing", windowed)
	pr.KgProcessed = decimal.Zero
	for _, run := range runs {
		pr.KgProcessed = pr.KgProcessed.Add(run.KgOutput)
	}
	pr.AverageYield = models.Percent(pr.KgProcessed, p.KgBought)

	e := &report.Expenses
	e.Section = newSection(len(expenses), "expenses", windowed)
	e.Total = decimal.Zero
	for _, expense := range expenses {
		e.Total = e.Total.Add(expense.Amount)
	}
	if opts.GroupExpenses {
		e.ByCategory = groupByCategory(expenses)
	}

	sl := &report.Sales
	sl.Section = newSection(len(sales), "sales", windowed)
	sl.Revenue, sl.KgSold, sl.Utility = decimal.Zero, decimal.Zero, decimal.Zero
	marginSum := decimal.Zero
	for _, sale := range sales {
		sl.Revenue = sl.Revenue.Add(sale.Total)
		sl.KgSold = sl.KgSold.Add(sale.QuantityKg)
		sl.Utility = sl.Utility.Add(sale.Utility)
		marginSum = marginSum.Add(sale.MarginPercent)
	}

	report.NetProfit = sl.Utility.Sub(e.Total)

	if opts.Averages {
		avg := &Averages{
			PurchasePricePerKg: ratio(p.TotalCost, p.KgBought),
			SalePricePerKg:     ratio(sl.Revenue, sl.KgSold),
			MarginPercent:      ratio(marginSum, decimal.NewFromInt(int64(len(sales)))),
		}
		report.Averages = avg
	}

	if opts.Itemize {
		p.Items = purchases
		pr.Items = runs
		e.Items = expenses
		sl.Items = sales
	}

	if report.SkippedRows > 0 {
		s.logger.Warn("report skipped unreadable rows", zap.Int("skipped", report.SkippedRows))
	}
	return report, nil
}

// load reads and decodes a collection. Windowed reads go through Window, so a
// row whose timestamp cannot be placed never lands in one. Without a window
// such a row still counts; any other decode failure is counted, not returned.
func load[T any](ctx context.Context, s *Service, collection string, since *time.Time, decode func(tabular.Record, *time.Location) (T, error)) ([]T, int, error) {
	var (
		records []tabular.Record
		err     error
	)
	if since != nil {
		records, err = s.Window(ctx, collection, *since)
	} else {
		records, err = s.store.ReadAll(ctx, collection)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", collection, err)
	}

	out := make([]T, 0, len(records))
	skipped := 0
	for _, rec := range records {
		item, err := decode(rec, s.loc)
		if err != nil {
			if !errors.Is(err, models.ErrBadTimestamp) {
				skipped++
				s.logger.Debug("skip unreadable row", zap.String("collection", collection), zap.Error(err))
				continue
			}
			s.logger.Debug("row kept without timestamp", zap.String("collection", collection), zap.Error(err))
		}
		out = append(out, item)
	}
	return out, skipped, nil
}

func groupByCategory(expenses []models.Expense) []CategoryTotal {
	var groups []CategoryTotal
	index := make(map[string]int)
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(groups)
			index[e.Category] = i
			groups = append(groups, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(e.Amount)
	}
	return groups
}

// ratio divides rounding to two decimals, returning zero for a zero divisor.
func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Round(2)
}
