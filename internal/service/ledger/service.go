package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/metrics"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// Service owns every mutation of the ledger collections.
//
// The store is the only state: nothing is cached between calls, so several
// processes may share a backend. mu serializes the read-check-write sequences
// of this process (processing, advance settlement, order status).
type Service struct {
	store   tabular.Store
	loc     *time.Location
	now     func() time.Time
	newID   func() string
	metrics *metrics.Metrics
	logger  *zap.Logger
	mu      sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(next func() string) Option {
	return func(s *Service) { s.newID = next }
}

// WithMetrics enables registration counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires a ledger service on top of store. Timestamps are written as
// wall-clock time in loc.
func NewService(store tabular.Store, loc *time.Location, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		store:  store,
		loc:    loc,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the timezone timestamps are stored in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// PurchaseInput carries the fields of a new purchase.
type PurchaseInput struct {
	Supplier     string
	QuantityKg   decimal.Decimal
	PricePerKg   decimal.Decimal
	QualityGrade string
	RecordedBy   string
}

// AdvanceAdvisory tells the caller the supplier still holds unsettled advances.
type AdvanceAdvisory struct {
	Supplier    string          `json:"supplier"`
	Outstanding decimal.Decimal `json:"outstanding"`
	AdvanceIDs  []string        `json:"advance_ids"`
}

// PurchaseResult is returned by both purchase registrations.
type PurchaseResult struct {
	Purchase    models.Purchase            `json:"purchase"`
	Advisory    *AdvanceAdvisory           `json:"advisory,omitempty"`
	Settlements []models.AdvanceSettlement `json:"settlements,omitempty"`
	Uncovered   decimal.Decimal            `json:"uncovered"`
}

// RegisterPurchase records a purchase. When the supplier holds advances with a
// remaining balance the result carries an advisory; nothing is applied.
func (s *Service) RegisterPurchase(ctx context.Context, in PurchaseInput) (result PurchaseResult, err error) {
	defer func() { s.observe("purchase", err) }()

	purchase, err := s.newPurchase(in)
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := s.store.Append(ctx, models.CollectionPurchases, purchase.Record(s.loc)); err != nil {
		return PurchaseResult{}, err
	}
	result = PurchaseResult{Purchase: purchase, Uncovered: purchase.TotalCost}

	advances, err := s.OutstandingAdvances(ctx, in.Supplier)
	if err != nil {
		s.logger.Warn("advance lookup failed after purchase", zap.String("purchase_id", purchase.ID), zap.Error(err))
		return result, nil
	}
	if len(advances) > 0 {
		advisory := &AdvanceAdvisory{Supplier: purchase.Supplier, Outstanding: decimal.Zero}
		for _, a := range advances {
			advisory.Outstanding = advisory.Outstanding.Add(a.Balance)
			advisory.AdvanceIDs = append(advisory.AdvanceIDs, a.ID)
		}
		result.Advisory = advisory
	}

	s.logger.Info("purchase registered",
		zap.String("purchase_id", purchase.ID),
		zap.String("supplier", purchase.Supplier),
		zap.String("total_cost", purchase.TotalCost.String()),
		zap.Bool("advisory", result.Advisory != nil),
	)
	return result, nil
}

// RegisterPurchaseWithAdvance records a purchase and settles it against the
// referenced advances in the given order until the cost is covered or the
// advances run dry. Every reference is checked before anything is written.
func (s *Service) RegisterPurchaseWithAdvance(ctx context.Context, in PurchaseInput, advanceRefs []string) (result PurchaseResult, err error) {
	defer func() { s.observe("purchase_with_advance", err) }()

	purchase, err := s.newPurchase(in)
	if err != nil {
		return PurchaseResult{}, err
	}
	if len(advanceRefs) == 0 {
		return PurchaseResult{}, models.Invalid("advance_refs", "at least one advance is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	advances, err := s.resolveAdvances(ctx, purchase.Supplier, advanceRefs)
	if err != nil {
		return PurchaseResult{}, err
	}
	if err := s.store.Append(ctx, models.CollectionPurchases, purchase.Record(s.loc)); err != nil {
		return PurchaseResult{}, err
	}

	remaining := purchase.TotalCost
	var settlements []models.AdvanceSettlement
	for _, advance := range advances {
		if !remaining.IsPositive() {
			break
		}
		if !advance.Balance.IsPositive() {
			continue
		}

		applied := decimal.Min(advance.Balance, remaining)
		settled := advance.AmountSettled.Add(applied)
		balance := advance.Balance.Sub(applied)

		patch := tabular.NewRecord()
		patch.Set(models.FieldAmountSettled, settled.String())
		patch.Set(models.FieldBalance, balance.String())
		ok, err := s.store.UpdateOne(ctx, models.CollectionAdvances, models.FieldID, advance.ID, patch)
		if err != nil {
			return PurchaseResult{}, err
		}
		if !ok {
			return PurchaseResult{}, &models.NotFoundError{Collection: models.CollectionAdvances, ID: advance.ID}
		}

		settlement := models.AdvanceSettlement{
			ID:            s.newID(),
			Timestamp:     purchase.Timestamp,
			AdvanceRef:    advance.ID,
			PurchaseRef:   purchase.ID,
			AmountApplied: applied,
		}
		if err := s.store.Append(ctx, models.CollectionSettlements, settlement.Record(s.loc)); err != nil {
			return PurchaseResult{}, err
		}

		settlements = append(settlements, settlement)
		remaining = remaining.Sub(applied)

		s.logger.Info("advance applied",
			zap.String("advance_id", advance.ID),
			zap.String("purchase_id", purchase.ID),
			zap.String("applied", applied.String()),
			zap.String("saldo_restante", balance.String()),
		)
	}

	return PurchaseResult{Purchase: purchase, Settlements: settlements, Uncovered: remaining}, nil
}

// resolveAdvances loads the referenced advances in order. Unknown ids are a
// NotFoundError; repeats or advances of another supplier are rejected.
func (s *Service) resolveAdvances(ctx context.Context, supplier string, refs []string) ([]models.Advance, error) {
	records, err := s.store.ReadAll(ctx, models.CollectionAdvances)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(refs))
	advances := make([]models.Advance, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			return nil, models.Invalid("advance_refs", "advance %s listed twice", ref)
		}
		seen[ref] = struct{}{}

		idx := tabular.IndexOf(records, models.FieldID, ref)
		if idx < 0 {
			return nil, &models.NotFoundError{Collection: models.CollectionAdvances, ID: ref}
		}
		advance, err := models.DecodeAdvance(records[idx], s.loc)
		if err != nil {
			return nil, tabular.Wrap("read", models.CollectionAdvances, err)
		}
		if !sameSupplier(advance.Supplier, supplier) {
			return nil, models.Invalid("advance_refs", "advance %s belongs to %s", ref, advance.Supplier)
		}
		advances = append(advances, advance)
	}
	return advances, nil
}

// ProcessingInput carries the fields of a processing run.
type ProcessingInput struct {
	SourcePurchaseRef string
	ProcessType       string
	KgInput           decimal.Decimal
	KgOutput          decimal.Decimal
}

// ProcessingResult holds the appended run and the purchase after the update.
type ProcessingResult struct {
	Run      models.ProcessingRun `json:"run"`
	Purchase models.Purchase      `json:"purchase"`
}

// RegisterProcessing consumes kg from a purchase. A request above the
// purchase availability fails with InsufficientStockError and writes nothing.
func (s *Service) RegisterProcessing(ctx context.Context, in ProcessingInput) (result ProcessingResult, err error) {
	defer func() { s.observe("processing", err) }()

	if err := firstError(
		models.RequireText(models.FieldSourcePurchaseRef, in.SourcePurchaseRef),
		models.RequireText(models.FieldProcessType, in.ProcessType),
		models.RequirePositive(models.FieldKgInput, in.KgInput),
		models.RequireNonNegative(models.FieldKgOutput, in.KgOutput),
	); err != nil {
		return ProcessingResult{}, err
	}
	if in.KgOutput.GreaterThan(in.KgInput) {
		return ProcessingResult{}, models.Invalid(models.FieldKgOutput, "must not exceed kg_input")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, err := s.findPurchase(ctx, in.SourcePurchaseRef)
	if err != nil {
		return ProcessingResult{}, err
	}
	if in.KgInput.GreaterThan(purchase.KgAvailable) {
		return ProcessingResult{}, &models.InsufficientStockError{
			PurchaseID: purchase.ID,
			Requested:  in.KgInput,
			Available:  purchase.KgAvailable,
		}
	}

	purchase.KgAvailable = purchase.KgAvailable.Sub(in.KgInput)
	purchase.Status = models.NextPurchaseStatus(purchase.Status, purchase.QuantityKg, purchase.KgAvailable)

	run := models.ProcessingRun{
		ID:                s.newID(),
		Timestamp:         s.timestamp(),
		ProcessType:       strings.TrimSpace(in.ProcessType),
		SourcePurchaseRef: purchase.ID,
		KgInput:           in.KgInput,
		KgOutput:          in.KgOutput,
		YieldPercent:      models.Percent(in.KgOutput, in.KgInput),
	}
	if err := s.store.Append(ctx, models.CollectionProcessing, run.Record(s.loc)); err != nil {
		return ProcessingResult{}, err
	}

	patch := tabular.NewRecord()
	patch.Set(models.FieldKgAvailable, purchase.KgAvailable.String())
	patch.Set(models.FieldStatus, string(purchase.Status))
	ok, err := s.store.UpdateOne(ctx, models.CollectionPurchases, models.FieldID, purchase.ID, patch)
	if err != nil {
		return ProcessingResult{}, err
	}
	if !ok {
		return ProcessingResult{}, &models.NotFoundError{Collection: models.CollectionPurchases, ID: purchase.ID}
	}

	s.logger.Info("processing registered",
		zap.String("run_id", run.ID),
		zap.String("purchase_id", purchase.ID),
		zap.String("kg_available", purchase.KgAvailable.String()),
		zap.String("status", string(purchase.Status)),
	)
	return ProcessingResult{Run: run, Purchase: purchase}, nil
}

func (s *Service) findPurchase(ctx context.Context, id string) (models.Purchase, error) {
	rec, ok, err := s.store.FindOne(ctx, models.CollectionPurchases, models.FieldID, id)
	if err != nil {
		return models.Purchase{}, err
	}
	if !ok {
		return models.Purchase{}, &models.NotFoundError{Collection: models.CollectionPurchases, ID: id}
	}
	purchase, err := models.DecodePurchase(rec, s.loc)
	if err != nil {
		return models.Purchase{}, tabular.Wrap("read", models.CollectionPurchases, err)
	}
	return purchase, nil
}

// ExpenseInput carries the fields of an operating expense.
type ExpenseInput struct {
	Category    string
	Amount      decimal.Decimal
	Description string
}

// RegisterExpense appends an expense.
func (s *Service) RegisterExpense(ctx context.Context, in ExpenseInput) (expense models.Expense, err error) {
	defer func() { s.observe("expense", err) }()

	if err := firstError(
		models.RequireText(models.FieldCategory, in.Category),
		models.RequirePositive(models.FieldAmount, in.Amount),
	); err != nil {
		return models.Expense{}, err
	}

	expense = models.Expense{
		ID:          s.newID(),
		Timestamp:   s.timestamp(),
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.store.Append(ctx, models.CollectionExpenses, expense.Record(s.loc)); err != nil {
		return models.Expense{}, err
	}
	return expense, nil
}

// SaleInput carries the fields of a sale.
type SaleInput struct {
	Client     string
	QuantityKg decimal.Decimal
	PricePerKg decimal.Decimal
	CostBasis  decimal.Decimal
}

// RegisterSale computes total, utility and margin and appends the sale.
func (s *Service) RegisterSale(ctx context.Context, in SaleInput) (sale models.Sale, err error) {
	defer func() { s.observe("sale", err) }()

	if err := firstError(
		models.RequireText(models.FieldClient, in.Client),
		models.RequirePositive(models.FieldQuantityKg, in.QuantityKg),
		models.RequirePositive(models.FieldPricePerKg, in.PricePerKg),
		models.RequireNonNegative(models.FieldCostBasis, in.CostBasis),
	); err != nil {
		return models.Sale{}, err
	}

	total := in.QuantityKg.Mul(in.PricePerKg)
	utility := total.Sub(in.CostBasis)
	sale = models.Sale{
		ID:            s.newID(),
		Timestamp:     s.timestamp(),
		Client:        strings.TrimSpace(in.Client),
		QuantityKg:    in.QuantityKg,
		PricePerKg:    in.PricePerKg,
		Total:         total,
		CostBasis:     in.CostBasis,
		Utility:       utility,
		MarginPercent: models.Percent(utility, total),
	}
	if err := s.store.Append(ctx, models.CollectionSales, sale.Record(s.loc)); err != nil {
		return models.Sale{}, err
	}
	return sale, nil
}

// AdvanceInput carries the fields of a supplier advance.
type AdvanceInput struct {
	Supplier string
	Amount   decimal.Decimal
}

// RegisterAdvance appends an advance with its whole amount outstanding.
func (s *Service) RegisterAdvance(ctx context.Context, in AdvanceInput) (advance models.Advance, err error) {
	defer func() { s.observe("advance", err) }()

	if err := firstError(
		models.RequireText(models.FieldSupplier, in.Supplier),
		models.RequirePositive(models.FieldAmountGiven, in.Amount),
	); err != nil {
		return models.Advance{}, err
	}

	advance = models.Advance{
		ID:            s.newID(),
		Timestamp:     s.timestamp(),
		Supplier:      strings.TrimSpace(in.Supplier),
		AmountGiven:   in.Amount,
		AmountSettled: decimal.Zero,
		Balance:       in.Amount,
	}
	if err := s.store.Append(ctx, models.CollectionAdvances, advance.Record(s.loc)); err != nil {
		return models.Advance{}, err
	}
	return advance, nil
}

// OrderInput carries the fields of a customer order.
type OrderInput struct {
	Client   string
	Channel  string
	Item     string
	Quantity decimal.Decimal
}

// RegisterOrder appends an open order.
func (s *Service) RegisterOrder(ctx context.Context, in OrderInput) (order models.Order, err error) {
	defer func() { s.observe("order", err) }()

	if err := firstError(
		models.RequireText(models.FieldClient, in.Client),
		models.RequireText(models.FieldItem, in.Item),
		models.RequirePositive(models.FieldQuantity, in.Quantity),
	); err != nil {
		return models.Order{}, err
	}

	order = models.Order{
		ID:        s.newID(),
		Timestamp: s.timestamp(),
		Client:    strings.TrimSpace(in.Client),
		Channel:   strings.TrimSpace(in.Channel),
		Item:      strings.TrimSpace(in.Item),
		Quantity:  in.Quantity,
		Status:    models.OrderOpen,
	}
	if err := s.store.Append(ctx, models.CollectionOrders, order.Record(s.loc)); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// UpdateOrderStatus closes an open order as fulfilled or cancelled.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (order models.Order, err error) {
	defer func() { s.observe("order_status", err) }()

	if !status.Valid() {
		return models.Order{}, models.Invalid(models.FieldStatus, "unknown status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.store.FindOne(ctx, models.CollectionOrders, models.FieldID, id)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, &models.NotFoundError{Collection: models.CollectionOrders, ID: id}
	}
	order, err = models.DecodeOrder(rec, s.loc)
	if err != nil {
		return models.Order{}, tabular.Wrap("read", models.CollectionOrders, err)
	}
	if !order.Status.CanTransition(status) {
		return models.Order{}, models.Invalid(models.FieldStatus, "cannot move order from %s to %s", order.Status, status)
	}

	patch := tabular.NewRecord()
	patch.Set(models.FieldStatus, string(status))
	if ok, err = s.store.UpdateOne(ctx, models.CollectionOrders, models.FieldID, id, patch); err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, &models.NotFoundError{Collection: models.CollectionOrders, ID: id}
	}

	order.Status = status
	return order, nil
}

func (s *Service) newPurchase(in PurchaseInput) (models.Purchase, error) {
	if err := firstError(
		models.RequireText(models.FieldSupplier, in.Supplier),
		models.RequirePositive(models.FieldQuantityKg, in.QuantityKg),
		models.RequirePositive(models.FieldPricePerKg, in.PricePerKg),
	); err != nil {
		return models.Purchase{}, err
	}

	return models.Purchase{
		ID:           s.newID(),
		Timestamp:    s.timestamp(),
		Supplier:     strings.TrimSpace(in.Supplier),
		QuantityKg:   in.QuantityKg,
		PricePerKg:   in.PricePerKg,
		QualityGrade: strings.TrimSpace(in.QualityGrade),
		TotalCost:    in.QuantityKg.Mul(in.PricePerKg),
		RecordedBy:   strings.TrimSpace(in.RecordedBy),
		KgAvailable:  in.QuantityKg,
		Status:       models.PurchasePending,
	}, nil
}

// timestamp returns now at the one-second precision the stores keep.
func (s *Service) timestamp() time.Time {
	return s.now().In(s.loc).Truncate(time.Second)
}

func (s *Service) observe(entity string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		s.logger.Warn("registration failed", zap.String("entity", entity), zap.Error(err))
	}
	s.metrics.ObserveRegistration(entity, outcome)
}

func sameSupplier(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

