package reporting

import (
	"time"

	"telecom-billing/internal/pricing"

	"github.com/shopspring/decimal"
)

// TimeRange is half-open: [From, To).
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallRow is one priced call joined with its origin contact's department.
// Department is empty when the contact has none or no longer exists.
type CallRow struct {
	CallID          string
	DestinationType pricing.NumberType
	Department      string
	DurationSeconds int
	Cost            decimal.Decimal
	FallbackPriced  bool
	CreatedAt       time.Time
}

// UnassignedDepartment labels calls whose contact has no department.
const UnassignedDepartment = "unassigned"

type Breakdown struct {
	Key     string          `json:"key"`
	Calls   int             `json:"calls"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Summary struct {
	Range TimeRange `json:"range"`

	TotalCalls           int             `json:"total_calls"`
	TotalDurationSeconds int             `json:"total_duration_seconds"`
	TotalRevenue         decimal.Decimal `json:"total_revenue"`
	FallbackPricedCalls  int             `json:"fallback_priced_calls"`

	ByDestinationType []Breakdown `json:"by_destination_type"`
	ByDepartment      []Breakdown `json:"by_department"`
}

// Totals counts the records kept by the system.
type Totals struct {
	Contacts int `json:"contacts"`
	Calls    int `json:"calls"`
	Invoices int `json:"invoices"`
}
