package models

import "time"

// ReportSnapshot is the archived form of a generated report stored in MongoDB.
// Amounts are kept as float64 since the archive is read by dashboards, not by
// the ledger.
type ReportSnapshot struct {
	Period        string     `bson:"period" json:"period"`
	Since         *time.Time `bson:"since,omitempty" json:"since,omitempty"`
	GeneratedAt   time.Time  `bson:"generated_at" json:"generated_at"`
	PurchaseCount int        `bson:"purchase_count" json:"purchase_count"`
	PurchaseCost  float64    `bson:"purchase_cost" json:"purchase_cost"`
	KgBought      float64    `bson:"kg_bought" json:"kg_bought"`
	KgProcessed   float64    `bson:"kg_processed" json:"kg_processed"`
	AverageYield  float64    `bson:"average_yield" json:"average_yield"`
	Expenses      float64    `bson:"expenses" json:"expenses"`
	Revenue       float64    `bson:"revenue" json:"revenue"`
	KgSold        float64    `bson:"kg_sold" json:"kg_sold"`
	Utility       float64    `bson:"utility" json:"utility"`
	NetProfit     float64    `bson:"net_profit" json:"net_profit"`
	SkippedRows   int        `bson:"skipped_rows" json:"skipped_rows"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
}
