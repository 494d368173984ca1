package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "open"
	PeriodStatusClosed PeriodStatus = "closed"
)

// Period is a calendar-month billing window.
//
// Identity is (Year, Month); Name is derived from it in the configured
// locale and kept for display only. StartDate and EndDate are calendar
// dates (midnight, no zone meaning) and EndDate is the last day of the month.
type Period struct {
	ID        string       `json:"id" db:"id"`
	Year      int          `json:"year" db:"year"`
	Month     time.Month   `json:"month" db:"month"`
	Name      string       `json:"name" db:"name"`
	StartDate time.Time    `json:"start_date" db:"start_date"`
	EndDate   time.Time    `json:"end_date" db:"end_date"`
	Status    PeriodStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// CallWindow returns the half-open timestamp range [from, to) covering every
// instant of every day from StartDate through EndDate in loc.
func (p Period) CallWindow(loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	from = time.Date(p.StartDate.Year(), p.StartDate.Month(), p.StartDate.Day(), 0, 0, 0, 0, loc)
	to = time.Date(p.EndDate.Year(), p.EndDate.Month(), p.EndDate.Day()+1, 0, 0, 0, 0, loc)
	return from, to
}

type InvoiceStatus string

const InvoiceStatusPending InvoiceStatus = "pending"

// Invoice is the amount owed by one contact for one period.
// Invoices are derived data: every generation run replaces the period's set.
type Invoice struct {
	ID          string          `json:"id" db:"id"`
	ContactID   string          `json:"contact_id" db:"contact_id"`
	PeriodID    string          `json:"period_id" db:"period_id"`
	Total       decimal.Decimal `json:"total" db:"total"`
	GeneratedAt time.Time       `json:"generated_at" db:"generated_at"`
	Status      InvoiceStatus   `json:"status" db:"status"`
}

// GenerateResult summarizes one invoicing run.
type GenerateResult struct {
	PeriodID     string          `json:"period_id"`
	InvoiceCount int             `json:"invoice_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	// Empty reports the "nothing to invoice" outcome. It is not an error.
	Empty bool `json:"empty"`
}
