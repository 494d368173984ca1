package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block billing flows on audit failures.
//
// Storage: table audit_events, INSERT only (see internal/migrations).
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event, empty for CLI runs.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP when the event came over HTTP.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	PeriodID string `json:"period_id,omitempty" db:"period_id"`
	RateID   string `json:"rate_id,omitempty" db:"rate_id"`

	// Message is a short human-readable description for operators.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeInvoicesGenerated  EventType = "invoices_generated"
	EventTypeRateCreated        EventType = "rate_created"
	EventTypeRateUpdated        EventType = "rate_updated"
	EventTypeRateDeleted        EventType = "rate_deleted"
	EventTypePulseConfigChanged EventType = "pulse_config_changed"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeInvoicesGenerated, EventTypeRateCreated, EventTypeRateUpdated,
		EventTypeRateDeleted, EventTypePulseConfigChanged:
		return true
	default:
		return false
	}
}
