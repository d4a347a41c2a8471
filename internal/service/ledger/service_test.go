package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/repository/csvstore"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
)

var lima = time.FixedZone("PET", -5*3600)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, tabular.Store) {
	t.Helper()
	store, err := csvstore.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("csvstore.New: %v", err)
	}
	seq := 0
	svc := NewService(store, lima, nil,
		WithClock(func() time.Time { return time.Date(2025, 3, 10, 10, 30, 0, 0, lima) }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return svc, store
}

func storedPurchase(t *testing.T, store tabular.Store, id string) models.Purchase {
	t.Helper()
	rec, ok, err := store.FindOne(context.Background(), models.CollectionPurchases, models.FieldID, id)
	if err != nil || !ok {
		t.Fatalf("FindOne purchase %s: ok=%v err=%v", id, ok, err)
	}
	p, err := models.DecodePurchase(rec, lima)
	if err != nil {
		t.Fatalf("DecodePurchase: %v", err)
	}
	return p
}

func storedAdvance(t *testing.T, store tabular.Store, id string) models.Advance {
	t.Helper()
	rec, ok, err := store.FindOne(context.Background(), models.CollectionAdvances, models.FieldID, id)
	if err != nil || !ok {
		t.Fatalf("FindOne advance %s: ok=%v err=%v", id, ok, err)
	}
	a, err := models.DecodeAdvance(rec, lima)
	if err != nil {
		t.Fatalf("DecodeAdvance: %v", err)
	}
	return a
}

func statusRank(s models.PurchaseStatus) int {
	for i, st := range []models.PurchaseStatus{models.PurchasePending, models.PurchasePartiallyProcessed, models.PurchaseFullyProcessed} {
		if st == s {
			return i
		}
	}
	return -1
}

func TestPurchaseProcessingScenario(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterPurchase(ctx, PurchaseInput{
		Supplier:     "Finca A",
		QuantityKg:   dec("100"),
		PricePerKg:   dec("8.50"),
		QualityGrade: "A",
		RecordedBy:   "maria",
	})
	if err != nil {
		t.Fatalf("RegisterPurchase: %v", err)
	}
	p := res.Purchase
	if !p.TotalCost.Equal(dec("850.00")) || !p.KgAvailable.Equal(dec("100")) || p.Status != models.PurchasePending {
		t.Fatalf("purchase: %+v", p)
	}
	if res.Advisory != nil {
		t.Fatalf("unexpected advisory: %+v", res.Advisory)
	}

	first, err := svc.RegisterProcessing(ctx, ProcessingInput{SourcePurchaseRef: p.ID, ProcessType: "washed", KgInput: dec("60"), KgOutput: dec("54")})
	if err != nil {
		t.Fatalf("first processing: %v", err)
	}
	if !first.Run.YieldPercent.Equal(dec("90")) {
		t.Fatalf("yield: got %s, want 90", first.Run.YieldPercent)
	}
	stored := storedPurchase(t, store, p.ID)
	if !stored.KgAvailable.Equal(dec("40")) || stored.Status != models.PurchasePartiallyProcessed {
		t.Fatalf("after first run: %+v", stored)
	}

	if _, err := svc.RegisterProcessing(ctx, ProcessingInput{SourcePurchaseRef: p.ID, ProcessType: "washed", KgInput: dec("40"), KgOutput: dec("35")}); err != nil {
		t.Fatalf("second processing: %v", err)
	}
	stored = storedPurchase(t, store, p.ID)
	if !stored.KgAvailable.IsZero() || stored.Status != models.PurchaseFullyProcessed {
		t.Fatalf("after second run: %+v", stored)
	}

	runs, err := store.ReadAll(ctx, models.CollectionProcessing)
	if err != nil || len(runs) != 2 {
		t.Fatalf("processing rows: %d err=%v", len(runs), err)
	}
}

func TestProcessingInsufficientStockLeavesPurchaseUntouched(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: "Finca A", QuantityKg: dec("50"), PricePerKg: dec("9")})
	if err != nil {
		t.Fatalf("RegisterPurchase: %v", err)
	}
	before, _, _ := store.FindOne(ctx, models.CollectionPurchases, models.FieldID, res.Purchase.ID)

	_, err = svc.RegisterProcessing(ctx, ProcessingInput{SourcePurchaseRef: res.Purchase.ID, ProcessType: "natural", KgInput: dec("50.01"), KgOutput: dec("40")})
	var stockErr *models.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("got %v, want InsufficientStockError", err)
	}
	if !stockErr.Available.Equal(dec("50")) || !stockErr.Requested.Equal(dec("50.01")) {
		t.Fatalf("error detail: %+v", stockErr)
	}
	if KindOf(err) != KindInsufficientStock {
		t.Fatalf("kind: got %s", KindOf(err))
	}

	after, _, _ := store.FindOne(ctx, models.CollectionPurchases, models.FieldID, res.Purchase.ID)
	if !before.Equal(after) {
		t.Fatalf("purchase changed: before %v after %v", before, after)
	}
	runs, _ := store.ReadAll(ctx, models.CollectionProcessing)
	if len(runs) != 0 {
		t.Fatalf("processing rows: got %d, want 0", len(runs))
	}
}

func TestProcessingKeepsAvailabilityBoundedAndStatusMonotonic(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: "Finca A", QuantityKg: dec("75.5"), PricePerKg: dec("7")})
	if err != nil {
		t.Fatalf("RegisterPurchase: %v", err)
	}
	qty := res.Purchase.QuantityKg

	rank := statusRank(models.PurchasePending)
	for i, kg := range []string{"10", "0.5", "30", "80", "25", "10.5"} {
		_, err := svc.RegisterProcessing(ctx, ProcessingInput{SourcePurchaseRef: res.Purchase.ID, ProcessType: "honey", KgInput: dec(kg), KgOutput: dec("0")})
		if kg == "80" || kg == "10.5" {
			if !errors.Is(err, models.ErrInsufficientStock) {
				t.Fatalf("step %d (%s kg): got %v, want insufficient stock", i, kg, err)
			}
		} else if err != nil {
			t.Fatalf("step %d (%s kg): %v", i, kg, err)
		}

		p := storedPurchase(t, store, res.Purchase.ID)
		if p.KgAvailable.IsNegative() || p.KgAvailable.GreaterThan(qty) {
			t.Fatalf("step %d: kg_available %s out of [0, %s]", i, p.KgAvailable, qty)
		}
		next := statusRank(p.Status)
		if next < rank {
			t.Fatalf("step %d: status went back to %s", i, p.Status)
		}
		rank = next
	}

	final := storedPurchase(t, store, res.Purchase.ID)
	if !final.KgAvailable.Equal(dec("10")) || final.Status != models.PurchasePartiallyProcessed {
		t.Fatalf("final purchase: %+v", final)
	}
}

func TestProcessingValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProcessingInput
		kind ErrorKind
	}{
		{"missing purchase", ProcessingInput{SourcePurchaseRef: "nope", ProcessType: "washed", KgInput: dec("1"), KgOutput: dec("1")}, KindNotFound},
		{"zero input", ProcessingInput{SourcePurchaseRef: "x", ProcessType: "washed", KgInput: dec("0"), KgOutput: dec("0")}, KindValidation},
		{"output above input", ProcessingInput{SourcePurchaseRef: "x", ProcessType: "washed", KgInput: dec("1"), KgOutput: dec("2")}, KindValidation},
		{"blank type", ProcessingInput{SourcePurchaseRef: "x", ProcessType: " ", KgInput: dec("1"), KgOutput: dec("1")}, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterProcessing(ctx, tt.in)
			if KindOf(err) != tt.kind {
				t.Fatalf("got %v (%s), want %s", err, KindOf(err), tt.kind)
			}
		})
	}
}

func TestPurchaseWithAdvanceScenario(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	advance, err := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "Finca B", Amount: dec("500")})
	if err != nil {
		t.Fatalf("RegisterAdvance: %v", err)
	}
	if !advance.Balance.Equal(dec("500")) || !advance.AmountSettled.IsZero() {
		t.Fatalf("advance: %+v", advance)
	}

	res, err := svc.RegisterPurchaseWithAdvance(ctx, PurchaseInput{Supplier: "Finca B", QuantityKg: dec("30"), PricePerKg: dec("10")}, []string{advance.ID})
	if err != nil {
		t.Fatalf("RegisterPurchaseWithAdvance: %v", err)
	}
	if !res.Purchase.TotalCost.Equal(dec("300")) || !res.Uncovered.IsZero() {
		t.Fatalf("result: %+v", res)
	}

	stored := storedAdvance(t, store, advance.ID)
	if !stored.Balance.Equal(dec("200")) || !stored.AmountSettled.Equal(dec("300")) {
		t.Fatalf("advance after settlement: %+v", stored)
	}

	rows, err := store.ReadAll(ctx, models.CollectionSettlements)
	if err != nil || len(rows) != 1 {
		t.Fatalf("settlement rows: %d err=%v", len(rows), err)
	}
	if rows[0].Get(models.FieldAdvanceRef) != advance.ID || rows[0].Get(models.FieldPurchaseRef) != res.Purchase.ID || rows[0].Get(models.FieldAmountApplied) != "300" {
		t.Fatalf("settlement row: %v", rows[0])
	}
}

func TestAdvanceBalanceNeverIncreasesOrGoesNegative(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	small, _ := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "Finca B", Amount: dec("100")})
	large, _ := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "Finca B", Amount: dec("150")})
	refs := []string{small.ID, large.ID}

	prev := map[string]decimal.Decimal{small.ID: dec("100"), large.ID: dec("150")}
	uncovered := []string{"0", "0", "0", "70", "80"}
	for i := range uncovered {
		res, err := svc.RegisterPurchaseWithAdvance(ctx, PurchaseInput{Supplier: "finca b", QuantityKg: dec("8"), PricePerKg: dec("10")}, refs)
		if err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
		if !res.Uncovered.Equal(dec(uncovered[i])) {
			t.Fatalf("purchase %d uncovered: got %s, want %s", i, res.Uncovered, uncovered[i])
		}
		for _, id := range refs {
			a := storedAdvance(t, store, id)
			if a.Balance.IsNegative() {
				t.Fatalf("purchase %d: advance %s negative balance %s", i, id, a.Balance)
			}
			if a.Balance.GreaterThan(prev[id]) {
				t.Fatalf("purchase %d: advance %s balance grew %s -> %s", i, id, prev[id], a.Balance)
			}
			if !a.AmountGiven.Sub(a.AmountSettled).Equal(a.Balance) {
				t.Fatalf("purchase %d: advance %s inconsistent %+v", i, id, a)
			}
			prev[id] = a.Balance
		}
	}
}

func TestPurchaseWithAdvanceRejectsBadReferences(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	mine, _ := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "Finca B", Amount: dec("100")})
	theirs, _ := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "Finca C", Amount: dec("100")})
	in := PurchaseInput{Supplier: "Finca B", QuantityKg: dec("1"), PricePerKg: dec("10")}

	tests := []struct {
		name string
		refs []string
		kind ErrorKind
	}{
		{"no refs", nil, KindValidation},
		{"unknown", []string{mine.ID, "ghost"}, KindNotFound},
		{"other supplier", []string{theirs.ID}, KindValidation},
		{"duplicate", []string{mine.ID, mine.ID}, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterPurchaseWithAdvance(ctx, in, tt.refs)
			if KindOf(err) != tt.kind {
				t.Fatalf("got %v (%s), want %s", err, KindOf(err), tt.kind)
			}
		})
	}

	purchases, _ := store.ReadAll(ctx, models.CollectionPurchases)
	if len(purchases) != 0 {
		t.Fatalf("rejected calls wrote %d purchases", len(purchases))
	}
	if a := storedAdvance(t, store, mine.ID); !a.Balance.Equal(dec("100")) {
		t.Fatalf("advance touched: %+v", a)
	}
}

func TestRegisterPurchaseAdvisoryOnly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, _ := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "Finca C", Amount: dec("200")})
	second, _ := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "FINCA C", Amount: dec("50.5")})

	res, err := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: " finca c ", QuantityKg: dec("10"), PricePerKg: dec("10")})
	if err != nil {
		t.Fatalf("RegisterPurchase: %v", err)
	}
	if res.Advisory == nil {
		t.Fatal("expected advisory")
	}
	if !res.Advisory.Outstanding.Equal(dec("250.5")) || len(res.Advisory.AdvanceIDs) != 2 {
		t.Fatalf("advisory: %+v", res.Advisory)
	}
	if a := storedAdvance(t, store, first.ID); !a.Balance.Equal(dec("200")) {
		t.Fatalf("advance %s was applied: %+v", first.ID, a)
	}
	if a := storedAdvance(t, store, second.ID); !a.Balance.Equal(dec("50.5")) {
		t.Fatalf("advance %s was applied: %+v", second.ID, a)
	}

	other, err := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: "Finca D", QuantityKg: dec("1"), PricePerKg: dec("1")})
	if err != nil {
		t.Fatalf("RegisterPurchase: %v", err)
	}
	if other.Advisory != nil {
		t.Fatalf("unexpected advisory: %+v", other.Advisory)
	}
}

func TestRegisterSaleComputesMargin(t *testing.T) {
	svc, _ := newTestService(t)

	sale, err := svc.RegisterSale(context.Background(), SaleInput{Client: "Cafe Lima", QuantityKg: dec("10"), PricePerKg: dec("20"), CostBasis: dec("150")})
	if err != nil {
		t.Fatalf("RegisterSale: %v", err)
	}
	if !sale.Total.Equal(dec("200")) || !sale.Utility.Equal(dec("50")) || !sale.MarginPercent.Equal(dec("25")) {
		t.Fatalf("sale: %+v", sale)
	}

	loss, err := svc.RegisterSale(context.Background(), SaleInput{Client: "Cafe Lima", QuantityKg: dec("3"), PricePerKg: dec("10"), CostBasis: dec("40")})
	if err != nil {
		t.Fatalf("RegisterSale: %v", err)
	}
	if !loss.Utility.Equal(dec("-10")) || !loss.MarginPercent.Equal(dec("-33.33")) {
		t.Fatalf("loss sale: %+v", loss)
	}
}

func TestRegistrationValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"purchase zero qty", func() error {
			_, err := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: "A", QuantityKg: decimal.Zero, PricePerKg: dec("1")})
			return err
		}, models.FieldQuantityKg},
		{"purchase blank supplier", func() error {
			_, err := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: "", QuantityKg: dec("1"), PricePerKg: dec("1")})
			return err
		}, models.FieldSupplier},
		{"expense negative", func() error {
			_, err := svc.RegisterExpense(ctx, ExpenseInput{Category: "fuel", Amount: dec("-5")})
			return err
		}, models.FieldAmount},
		{"sale negative cost", func() error {
			_, err := svc.RegisterSale(ctx, SaleInput{Client: "c", QuantityKg: dec("1"), PricePerKg: dec("1"), CostBasis: dec("-1")})
			return err
		}, models.FieldCostBasis},
		{"advance zero", func() error {
			_, err := svc.RegisterAdvance(ctx, AdvanceInput{Supplier: "A", Amount: decimal.Zero})
			return err
		}, models.FieldAmountGiven},
		{"order missing item", func() error {
			_, err := svc.RegisterOrder(ctx, OrderInput{Client: "c", Quantity: dec("1")})
			return err
		}, models.FieldItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var verr *models.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("got %v, want ValidationError on %s", err, tt.field)
			}
		})
	}

	for _, c := range models.LedgerCollections {
		rows, _ := store.ReadAll(ctx, c)
		if len(rows) != 0 {
			t.Fatalf("%s has %d rows after rejected calls", c, len(rows))
		}
	}
}

func TestOrderLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	kept, err := svc.RegisterOrder(ctx, OrderInput{Client: "Hotel Sol", Channel: "whatsapp", Item: "tostado medio", Quantity: dec("5")})
	if err != nil {
		t.Fatalf("RegisterOrder: %v", err)
	}
	done, _ := svc.RegisterOrder(ctx, OrderInput{Client: "Bodega Luz", Item: "verde", Quantity: dec("20")})

	updated, err := svc.UpdateOrderStatus(ctx, done.ID, models.OrderFulfilled)
	if err != nil || updated.Status != models.OrderFulfilled {
		t.Fatalf("UpdateOrderStatus: %+v err=%v", updated, err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, done.ID, models.OrderCancelled); KindOf(err) != KindValidation {
		t.Fatalf("terminal order moved: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, "ghost", models.OrderCancelled); KindOf(err) != KindNotFound {
		t.Fatalf("unknown order: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, kept.ID, "Shipped"); KindOf(err) != KindValidation {
		t.Fatalf("unknown status: %v", err)
	}

	open, err := svc.OpenOrders(ctx)
	if err != nil {
		t.Fatalf("OpenOrders: %v", err)
	}
	if len(open) != 1 || open[0].ID != kept.ID {
		t.Fatalf("open orders: %+v", open)
	}
}

func TestAvailablePurchasesAndOutstandingAdvances(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	full, _ := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: "A", QuantityKg: dec("10"), PricePerKg: dec("1")})
	partial, _ := svc.RegisterPurchase(ctx, PurchaseInput{Supplier: "A", QuantityKg: dec("10"), PricePerKg: dec("1")})
	if _, err := svc.RegisterProcessing(ctx, ProcessingInput{SourcePurchaseRef: full.Purchase.ID, ProcessType: "washed", KgInput: dec("10"), KgOutput: dec("9")}); err != nil {
		t.Fatalf("RegisterProcessing: %v", err)
	}

	available, err := svc.AvailablePurchases(ctx)
	if err != nil {
		t.Fatalf("AvailablePurchases: %v", err)
	}
	if len(available) != 1 || available[0].ID != partial.Purchase.ID {
		t.Fatalf("available: %+v", available)
	}

	none, err := svc.OutstandingAdvances(ctx, "Nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("no advances should be an empty result: %v %v", none, err)
	}
}

func TestListRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	expense, err := svc.RegisterExpense(ctx, ExpenseInput{Category: "transporte", Amount: dec("45.90"), Description: "flete, Jaén"})
	if err != nil {
		t.Fatalf("RegisterExpense: %v", err)
	}

	rows, err := svc.List(ctx, models.CollectionExpenses)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || !rows[0].Equal(expense.Record(lima)) {
		t.Fatalf("rows: %v, want %v", rows, expense.Record(lima))
	}

	if _, err := svc.List(ctx, "passwords"); KindOf(err) != KindNotFound {
		t.Fatalf("unknown collection: %v", err)
	}
}

func TestOutcome(t *testing.T) {
	ok := NewOutcome(map[string]string{"id": "1"}, nil)
	if !ok.Success || ok.ErrorKind != "" || ok.Record == nil {
		t.Fatalf("success outcome: %+v", ok)
	}

	tests := []struct {
		err  error
		want ErrorKind
	}{
		{models.Invalid("amount", "bad"), KindValidation},
		{&models.InsufficientStockError{PurchaseID: "p"}, KindInsufficientStock},
		{fmt.Errorf("wrapped: %w", &models.NotFoundError{Collection: "orders", ID: "x"}), KindNotFound},
		{tabular.Wrap("append", "sales", errors.New("disk full")), KindStorage},
		{fmt.Errorf("%w: bad row", models.ErrCorruptRecord), KindStorage},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		out := NewOutcome(nil, tt.err)
		if out.Success || out.ErrorKind != tt.want || out.Message == "" {
			t.Fatalf("%v: got %+v, want kind %s", tt.err, out, tt.want)
		}
	}
}
