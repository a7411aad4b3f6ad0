package reports

import "time"

// MonthlyTotals aggregates ledger activity for one calendar month.
type MonthlyTotals struct {
	Month   time.Month `json:"month"`
	Revenue float64    `json:"revenue"`
	Expense float64    `json:"expense"`
	Net     float64    `json:"net"`
}

// YearSummary is the twelve month revenue/expense breakdown.
type YearSummary struct {
	Year   int             `json:"year"`
	Months []MonthlyTotals `json:"months"`
}

// OccupancySnapshot counts rooms by status.
type OccupancySnapshot struct {
	Total       int64   `json:"total"`
	Available   int64   `json:"available"`
	Occupied    int64   `json:"occupied"`
	Maintenance int64   `json:"maintenance"`
	Rate        float64 `json:"occupancy_rate"`
}

// VendorOutstanding is one row of the payables report.
type VendorOutstanding struct {
	VendorID    int64   `json:"vendor_id"`
	Name        string  `json:"name"`
	Outstanding float64 `json:"outstanding"`
	TotalPaid   float64 `json:"total_paid"`
}

// AgingBucket groups unpaid invoice value by age.
type AgingBucket struct {
	Label string  `json:"label"`
	Count int64   `json:"count"`
	Due   float64 `json:"due"`
}
