package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus tracks how much of a purchase has gone through processing.
type PurchaseStatus string

const (
	PurchasePending            PurchaseStatus = "Pending"
	PurchasePartiallyProcessed PurchaseStatus = "PartiallyProcessed"
	PurchaseFullyProcessed     PurchaseStatus = "FullyProcessed"
)

func (s PurchaseStatus) rank() int {
	switch s {
	case PurchasePending:
		return 0
	case PurchasePartiallyProcessed:
		return 1
	case PurchaseFullyProcessed:
		return 2
	}
	return -1
}

// Valid reports whether s is a known purchase status.
func (s PurchaseStatus) Valid() bool { return s.rank() >= 0 }

// NextPurchaseStatus derives the status after availability dropped to
// available. The result never ranks below current.
func NextPurchaseStatus(current PurchaseStatus, quantity, available decimal.Decimal) PurchaseStatus {
	target := current
	switch {
	case available.IsZero():
		target = PurchaseFullyProcessed
	case available.IsPositive() && available.LessThan(quantity):
		target = PurchasePartiallyProcessed
	}
	if target.rank() < current.rank() {
		return current
	}
	return target
}

// OrderStatus is the lifecycle state of a customer order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "Open"
	OrderFulfilled OrderStatus = "Fulfilled"
	OrderCancelled OrderStatus = "Cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderOpen, OrderFulfilled, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderFulfilled || s == OrderCancelled
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	return s == OrderOpen && next.Terminal()
}

// Purchase is an acquisition of raw coffee with a consumable availability.
type Purchase struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Supplier     string          `json:"supplier"`
	QuantityKg   decimal.Decimal `json:"quantity_kg"`
	PricePerKg   decimal.Decimal `json:"price_per_kg"`
	QualityGrade string          `json:"quality_grade"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	RecordedBy   string          `json:"recorded_by"`
	KgAvailable  decimal.Decimal `json:"kg_available"`
	Status       PurchaseStatus  `json:"status"`
}

// ProcessingRun consumes kg from a purchase and yields processed output.
type ProcessingRun struct {
	ID                string          `json:"id"`
	Timestamp         time.Time       `json:"timestamp"`
	ProcessType       string          `json:"process_type"`
	SourcePurchaseRef string          `json:"source_purchase_ref"`
	KgInput           decimal.Decimal `json:"kg_input"`
	KgOutput          decimal.Decimal `json:"kg_resultantes"`
	YieldPercent      decimal.Decimal `json:"yield_percent"`
}

// Expense is an operating cost.
type Expense struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Sale records coffee sold to a client along with its margin.
type Sale struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Client        string          `json:"client"`
	QuantityKg    decimal.Decimal `json:"quantity_kg"`
	PricePerKg    decimal.Decimal `json:"price_per_kg"`
	Total         decimal.Decimal `json:"total"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Utility       decimal.Decimal `json:"utility"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// Advance is a pre-payment to a supplier with a depletable balance.
type Advance struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Supplier      string          `json:"supplier"`
	AmountGiven   decimal.Decimal `json:"amount_given"`
	AmountSettled decimal.Decimal `json:"amount_settled"`
	Balance       decimal.Decimal `json:"saldo_restante"`
}

// AdvanceSettlement records one application of an advance to a purchase.
type AdvanceSettlement struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	AdvanceRef    string          `json:"advance_ref"`
	PurchaseRef   string          `json:"purchase_ref"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
}

// Order is a customer request that ends fulfilled or cancelled.
type Order struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Client    string          `json:"client"`
	Channel   string          `json:"channel"`
	Item      string          `json:"item"`
	Quantity  decimal.Decimal `json:"quantity"`
	Status    OrderStatus     `json:"status"`
}
