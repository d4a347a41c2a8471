package models

// Collection names. Each one maps to a CSV file, a Google Sheet tab or a
// workbook sheet depending on the configured backend.
const (
	CollectionPurchases   = "purchases"
	CollectionProcessing  = "processing"
	CollectionExpenses    = "expenses"
	CollectionSales       = "sales"
	CollectionAdvances    = "advances"
	CollectionOrders      = "orders"
	CollectionSettlements = "advance_settlements"
)

// LedgerCollections lists the collections exposed through the listing API, in
// display order.
var LedgerCollections = []string{
	CollectionPurchases,
	CollectionProcessing,
	CollectionExpenses,
	CollectionSales,
	CollectionAdvances,
	CollectionOrders,
	CollectionSettlements,
}

// Shared field names.
const (
	FieldID        = "id"
	FieldTimestamp = "timestamp"
	FieldStatus    = "status"
)

// Purchase fields.
const (
	FieldSupplier     = "supplier"
	FieldQuantityKg   = "quantity_kg"
	FieldPricePerKg   = "price_per_kg"
	FieldQualityGrade = "quality_grade"
	FieldTotalCost    = "total_cost"
	FieldRecordedBy   = "recorded_by"
	FieldKgAvailable  = "kg_available"
)

// Processing run fields.
const (
	FieldProcessType       = "process_type"
	FieldSourcePurchaseRef = "source_purchase_ref"
	FieldKgInput           = "kg_input"
	FieldKgOutput          = "kg_resultantes"
	FieldYieldPercent      = "yield_percent"
)

// Expense fields.
const (
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldDescription = "description"
)

// Sale fields.
const (
	FieldClient        = "client"
	FieldTotal         = "total"
	FieldCostBasis     = "cost_basis"
	FieldUtility       = "utility"
	FieldMarginPercent = "margin_percent"
)

// Advance fields.
const (
	FieldAmountGiven   = "amount_given"
	FieldAmountSettled = "amount_settled"
	FieldBalance       = "saldo_restante"
)

// Advance settlement fields.
const (
	FieldAdvanceRef    = "advance_ref"
	FieldPurchaseRef   = "purchase_ref"
	FieldAmountApplied = "amount_applied"
)

// Order fields.
const (
	FieldChannel  = "channel"
	FieldItem     = "item"
	FieldQuantity = "quantity"
)
