package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

// Record encodes p with the purchase column order.
func (p Purchase) Record(loc *time.Location) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set(FieldID, p.ID)
	rec.Set(FieldTimestamp, FormatTimestamp(p.Timestamp, loc))
	rec.Set(FieldSupplier, p.Supplier)
	rec.Set(FieldQuantityKg, p.QuantityKg.String())
	rec.Set(FieldPricePerKg, p.PricePerKg.String())
	rec.Set(FieldQualityGrade, p.QualityGrade)
	rec.Set(FieldTotalCost, p.TotalCost.String())
	rec.Set(FieldRecordedBy, p.RecordedBy)
	rec.Set(FieldKgAvailable, p.KgAvailable.String())
	rec.Set(FieldStatus, string(p.Status))
	return rec
}

// DecodePurchase reads a stored purchase row.
func DecodePurchase(rec tabular.Record, loc *time.Location) (Purchase, error) {
	r := newFieldReader("purchase", rec, loc)
	p := Purchase{
		ID:           r.text(FieldID),
		Timestamp:    r.time(FieldTimestamp),
		Supplier:     r.text(FieldSupplier),
		QuantityKg:   r.decimal(FieldQuantityKg),
		PricePerKg:   r.decimal(FieldPricePerKg),
		QualityGrade: r.text(FieldQualityGrade),
		TotalCost:    r.decimal(FieldTotalCost),
		RecordedBy:   r.text(FieldRecordedBy),
		KgAvailable:  r.decimal(FieldKgAvailable),
		Status:       PurchaseStatus(r.text(FieldStatus)),
	}
	if r.err == nil && !p.Status.Valid() {
		r.fail(FieldStatus, fmt.Errorf("unknown status %q", p.Status))
	}
	return p, r.finish()
}

// Record encodes run with the processing column order.
func (run ProcessingRun) Record(loc *time.Location) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set(FieldID, run.ID)
	rec.Set(FieldTimestamp, FormatTimestamp(run.Timestamp, loc))
	rec.Set(FieldProcessType, run.ProcessType)
	rec.Set(FieldSourcePurchaseRef, run.SourcePurchaseRef)
	rec.Set(FieldKgInput, run.KgInput.String())
	rec.Set(FieldKgOutput, run.KgOutput.String())
	rec.Set(FieldYieldPercent, run.YieldPercent.String())
	return rec
}

// DecodeProcessingRun reads a stored processing row.
func DecodeProcessingRun(rec tabular.Record, loc *time.Location) (ProcessingRun, error) {
	r := newFieldReader("processing run", rec, loc)
	run := ProcessingRun{
		ID:                r.text(FieldID),
		Timestamp:         r.time(FieldTimestamp),
		ProcessType:       r.text(FieldProcessType),
		SourcePurchaseRef: r.text(FieldSourcePurchaseRef),
		KgInput:           r.decimal(FieldKgInput),
		KgOutput:          r.decimal(FieldKgOutput),
		YieldPercent:      r.decimal(FieldYieldPercent),
	}
	return run, r.finish()
}

// Record encodes e with the expense column order.
func (e Expense) Record(loc *time.Location) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set(FieldID, e.ID)
	rec.Set(FieldTimestamp, FormatTimestamp(e.Timestamp, loc))
	rec.Set(FieldCategory, e.Category)
	rec.Set(FieldAmount, e.Amount.String())
	rec.Set(FieldDescription, e.Description)
	return rec
}

// DecodeExpense reads a stored expense row.
func DecodeExpense(rec tabular.Record, loc *time.Location) (Expense, error) {
	r := newFieldReader("expense", rec, loc)
	e := Expense{
		ID:          r.text(FieldID),
		Timestamp:   r.time(FieldTimestamp),
		Category:    r.text(FieldCategory),
		Amount:      r.decimal(FieldAmount),
		Description: r.text(FieldDescription),
	}
	return e, r.finish()
}

// Record encodes s with the sale column order.
func (s Sale) Record(loc *time.Location) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set(FieldID, s.ID)
	rec.Set(FieldTimestamp, FormatTimestamp(s.Timestamp, loc))
	rec.Set(FieldClient, s.Client)
	rec.Set(FieldQuantityKg, s.QuantityKg.String())
	rec.Set(FieldPricePerKg, s.PricePerKg.String())
	rec.Set(FieldTotal, s.Total.String())
	rec.Set(FieldCostBasis, s.CostBasis.String())
	rec.Set(FieldUtility, s.Utility.String())
	rec.Set(FieldMarginPercent, s.MarginPercent.String())
	return rec
}

// DecodeSale reads a stored sale row.
func DecodeSale(rec tabular.Record, loc *time.Location) (Sale, error) {
	r := newFieldReader("sale", rec, loc)
	s := Sale{
		ID:            r.text(FieldID),
		Timestamp:     r.time(FieldTimestamp),
		Client:        r.text(FieldClient),
		QuantityKg:    r.decimal(FieldQuantityKg),
		PricePerKg:    r.decimal(FieldPricePerKg),
		Total:         r.decimal(FieldTotal),
		CostBasis:     r.decimal(FieldCostBasis),
		Utility:       r.decimal(FieldUtility),
		MarginPercent: r.decimal(FieldMarginPercent),
	}
	return s, r.finish()
}

// Record encodes a with the advance column order.
func (a Advance) Record(loc *time.Location) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set(FieldID, a.ID)
	rec.Set(FieldTimestamp, FormatTimestamp(a.Timestamp, loc))
	rec.Set(FieldSupplier, a.Supplier)
	rec.Set(FieldAmountGiven, a.AmountGiven.String())
	rec.Set(FieldAmountSettled, a.AmountSettled.String())
	rec.Set(FieldBalance, a.Balance.String())
	return rec
}

// DecodeAdvance reads a stored advance row.
func DecodeAdvance(rec tabular.Record, loc *time.Location) (Advance, error) {
	r := newFieldReader("advance", rec, loc)
	a := Advance{
		ID:            r.text(FieldID),
		Timestamp:     r.time(FieldTimestamp),
		Supplier:      r.text(FieldSupplier),
		AmountGiven:   r.decimal(FieldAmountGiven),
		AmountSettled: r.decimal(FieldAmountSettled),
		Balance:       r.decimal(FieldBalance),
	}
	return a, r.finish()
}

// Record encodes s with the settlement column order.
func (s AdvanceSettlement) Record(loc *time.Location) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set(FieldID, s.ID)
	rec.Set(FieldTimestamp, FormatTimestamp(s.Timestamp, loc))
	rec.Set(FieldAdvanceRef, s.AdvanceRef)
	rec.Set(FieldPurchaseRef, s.PurchaseRef)
	rec.Set(FieldAmountApplied, s.AmountApplied.String())
	return rec
}

// DecodeAdvanceSettlement reads a stored settlement row.
func DecodeAdvanceSettlement(rec tabular.Record, loc *time.Location) (AdvanceSettlement, error) {
	r := newFieldReader("advance settlement", rec, loc)
	s := AdvanceSettlement{
		ID:            r.text(FieldID),
		Timestamp:     r.time(FieldTimestamp),
		AdvanceRef:    r.text(FieldAdvanceRef),
		PurchaseRef:   r.text(FieldPurchaseRef),
		AmountApplied: r.decimal(FieldAmountApplied),
	}
	return s, r.finish()
}

// Record encodes o with the order column order.
func (o Order) Record(loc *time.Location) tabular.Record {
	rec := tabular.NewRecord()
	rec.Set(FieldID, o.ID)
	rec.Set(FieldTimestamp, FormatTimestamp(o.Timestamp, loc))
	rec.Set(FieldClient, o.Client)
	rec.Set(FieldChannel, o.Channel)
	rec.Set(FieldItem, o.Item)
	rec.Set(FieldQuantity, o.Quantity.String())
	rec.Set(FieldStatus, string(o.Status))
	return rec
}

// DecodeOrder reads a stored order row.
func DecodeOrder(rec tabular.Record, loc *time.Location) (Order, error) {
	r := newFieldReader("order", rec, loc)
	o := Order{
		ID:        r.text(FieldID),
		Timestamp: r.time(FieldTimestamp),
		Client:    r.text(FieldClient),
		Channel:   r.text(FieldChannel),
		Item:      r.text(FieldItem),
		Quantity:  r.decimal(FieldQuantity),
		Status:    OrderStatus(r.text(FieldStatus)),
	}
	if r.err == nil && !o.Status.Valid() {
		r.fail(FieldStatus, fmt.Errorf("unknown status %q", o.Status))
	}
	return o, r.finish()
}

var errMissingField = errors.New("missing")

// fieldReader decodes typed fields and keeps the first failure. A timestamp
// that does not parse is held apart so callers can still use the rest.
type fieldReader struct {
	entity  string
	rec     tabular.Record
	loc     *time.Location
	err     error
	timeErr error
}

func newFieldReader(entity string, rec tabular.Record, loc *time.Location) *fieldReader {
	return &fieldReader{entity: entity, rec: rec, loc: loc}
}

func (r *fieldReader) fail(field string, err error) {
	if r.err != nil {
		return
	}
	r.err = r.corrupt(field, err)
}

func (r *fieldReader) corrupt(field string, err error) error {
	return fmt.Errorf("%w: %s %q field %s: %v", ErrCorruptRecord, r.entity, r.rec.Get(FieldID), field, err)
}

// finish reports the first field failure, or the timestamp failure when it
// is the only one.
func (r *fieldReader) finish() error {
	if r.err != nil {
		return r.err
	}
	return r.timeErr
}

func (r *fieldReader) text(field string) string {
	value, ok := r.rec.Lookup(field)
	if !ok {
		r.fail(field, errMissingField)
	}
	return value
}

func (r *fieldReader) decimal(field string) decimal.Decimal {
	value, ok := r.rec.Lookup(field)
	if !ok {
		r.fail(field, errMissingField)
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		r.fail(field, err)
		return decimal.Zero
	}
	return d
}

func (r *fieldReader) time(field string) time.Time {
	value, ok := r.rec.Lookup(field)
	if !ok {
		r.fail(field, errMissingField)
		return time.Time{}
	}
	t, err := ParseTimestamp(value, r.loc)
	if err != nil {
		if r.timeErr == nil {
			r.timeErr = fmt.Errorf("%w: %w", ErrBadTimestamp, r.corrupt(field, err))
		}
		return time.Time{}
	}
	return t
}
