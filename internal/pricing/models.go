package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// NumberType classifies a phone number for rate selection.
// The string values are stable tags shared with storage and the API.
type NumberType string

const (
	NumberTypeLandline      NumberType = "landline"
	NumberTypeMobile        NumberType = "mobile"
	NumberTypeInternational NumberType = "international"
)

// Valid reports whether t is one of the known tags.
func (t NumberType) Valid() bool {
	switch t {
	case NumberTypeLandline, NumberTypeMobile, NumberTypeInternational:
		return true
	default:
		return false
	}
}

// Rate is the configured charge for an (origin type, destination type) pair.
//
// Carrier and same-region fields are finer discriminators kept for rate
// administration; call pricing matches on the type pair only.
// CostPerMinute is charged once per pulse.
type Rate struct {
	ID              string     `json:"id" db:"id"`
	OriginType      NumberType `json:"origin_type" db:"origin_type"`
	DestinationType NumberType `json:"destination_type" db:"destination_type"`

	OriginCarrier      *string `json:"origin_carrier,omitempty" db:"origin_carrier"`
	DestinationCarrier *string `json:"destination_carrier,omitempty" db:"destination_carrier"`
	SameRegion         bool    `json:"same_region" db:"same_region"`

	CostPerMinute decimal.Decimal `json:"cost_per_minute" db:"cost_per_minute"`
	Description   *string         `json:"description,omitempty" db:"description"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PulseConfig controls how call durations turn into billable pulses.
// The most recently stored row is the active one.
type PulseConfig struct {
	ID                   int64     `json:"id,omitempty" db:"id"`
	PulseDurationSeconds int       `json:"pulse_duration_seconds" db:"pulse_duration_seconds"`
	RoundUp              bool      `json:"round_up" db:"round_up"`
	CreatedAt            time.Time `json:"created_at,omitempty" db:"created_at"`
}

// DefaultPulseSeconds applies when no configuration is stored.
const DefaultPulseSeconds = 60

// DefaultPulseConfig is used when storage holds no configuration row.
func DefaultPulseConfig() PulseConfig {
	return PulseConfig{PulseDurationSeconds: DefaultPulseSeconds, RoundUp: true}
}

// Quote is the result of pricing one call.
type Quote struct {
	OriginType      NumberType `json:"origin_type"`
	DestinationType NumberType `json:"destination_type"`

	DurationSeconds      int  `json:"duration_seconds"`
	PulseDurationSeconds int  `json:"pulse_duration_seconds"`
	RoundUp              bool `json:"round_up"`
	Pulses               int  `json:"pulses"`

	CostPerPulse decimal.Decimal `json:"cost_per_pulse"`
	Cost         decimal.Decimal `json:"cost"`

	// RateID is empty when the default rate or the fallback table was used.
	RateID string `json:"rate_id,omitempty"`

	// Fallback is set when rate/configuration lookup failed and the
	// simplified destination table priced the call.
	Fallback bool `json:"fallback"`
}

// Path names the pricing route taken, for logs and metrics.
func (q Quote) Path() string {
	switch {
	case q.Fallback:
		return "fallback"
	case q.RateID == "":
		return "default_rate"
	default:
		return "rated"
	}
}
