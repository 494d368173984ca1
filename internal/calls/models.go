package calls

import (
	"time"

	"telecom-billing/internal/pricing"

	"github.com/shopspring/decimal"
)

// Call is one priced call placed by an internal contact.
//
// Calls are immutable once written: pricing happens exactly once, at record
// time, against the rates and pulse configuration active at that moment.
// Invoicing sums CostTotal per OriginContactID.
type Call struct {
	ID              string `json:"id" db:"id"`
	OriginContactID string `json:"origin_contact_id" db:"origin_contact_id"`

	DestinationNumber string             `json:"destination_number" db:"destination_number"`
	DestinationType   pricing.NumberType `json:"destination_type" db:"destination_type"`

	// DurationSeconds is the call duration in seconds.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`
	Pulses          int `json:"pulses" db:"pulses"`

	CostTotal decimal.Decimal `json:"cost_total" db:"cost_total"`

	// FallbackPriced marks calls priced with the simplified destination table.
	FallbackPriced bool `json:"fallback_priced" db:"fallback_priced"`

	// IdempotencyKey is the client-supplied retry key, empty when none was sent.
	IdempotencyKey string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RecordCallRequest is the boundary input for recording a call.
// Duration is supplied in whole minutes; nil means it was not supplied.
type RecordCallRequest struct {
	ContactID         string `json:"contact_id"`
	DestinationNumber string `json:"destination_number"`
	DurationMinutes   *int   `json:"duration_minutes"`

	// IdempotencyKey makes retries safe: a repeated key returns the call
	// recorded the first time instead of billing it twice.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ListFilter narrows ListCalls. Zero values mean "no filter".
type ListFilter struct {
	ContactID string
	From      time.Time
	To        time.Time
	Limit     int
}
