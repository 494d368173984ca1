package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/contacts"
	"telecom-billing/internal/metrics"
	"telecom-billing/internal/pricing"
	"telecom-billing/pkg/logger"

	"github.com/google/uuid"
)

// Repository persists call records. Calls are insert-only.
type Repository interface {
	// Insert returns ErrDuplicateKey when c.IdempotencyKey is already taken.
	Insert(ctx context.Context, c Call) error
	List(ctx context.Context, f ListFilter) ([]Call, error)
	FindByIdempotencyKey(ctx context.Context, key string) (Call, bool, error)
}

const maxIdempotencyKeyLen = 128

var (
	ErrDuplicateKey        = errors.New("calls: idempotency key already used")
	ErrIdempotencyMismatch = apperr.Conflict("idempotency key was already used for a different call")
)

// ContactLookup resolves the origin contact. *contacts.Service satisfies it.
type ContactLookup interface {
	Get(ctx context.Context, id string) (contacts.Contact, error)
}

// Pricer prices a call. *pricing.Engine satisfies it.
type Pricer interface {
	PriceCall(ctx context.Context, originNumber, destinationNumber string, durationSeconds int) pricing.Quote
}

// Recorder validates, prices and stores calls.
//
// Unlike pricing, nothing here is swallowed: validation, missing contacts
// and storage failures all reach the caller.
type Recorder struct {
	repo     Repository
	contacts ContactLookup
	pricer   Pricer
	clock    func() time.Time
}

func NewRecorder(repo Repository, contactLookup ContactLookup, pricer Pricer) *Recorder {
	return &Recorder{repo: repo, contacts: contactLookup, pricer: pricer, clock: time.Now}
}

func (r *Recorder) RecordCall(ctx context.Context, req RecordCallRequest) (Call, error) {
	contactID := strings.TrimSpace(req.ContactID)
	destination := strings.TrimSpace(req.DestinationNumber)
	if contactID == "" || destination == "" {
		return Call{}, apperr.Validation("origin contact and destination number are required")
	}
	if req.DurationMinutes == nil {
		return Call{}, apperr.Validation("duration_minutes is required")
	}
	if *req.DurationMinutes < 0 {
		return Call{}, apperr.Validation("duration_minutes must not be negative")
	}
	if *req.DurationMinutes > pricing.MaxDurationSeconds/60 {
		return Call{}, apperr.Validation(fmt.Sprintf("duration_minutes must be at most %d", pricing.MaxDurationSeconds/60))
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return Call{}, apperr.Validation("idempotency key is too long")
	}
	seconds := *req.DurationMinutes * 60

	if key != "" {
		if prev, ok, err := r.replay(ctx, key, contactID, destination, seconds); err != nil || ok {
			return prev, err
		}
	}

	origin, err := r.contacts.Get(ctx, contactID)
	if err != nil {
		return Call{}, err
	}

	q := r.pricer.PriceCall(ctx, origin.Number, destination, seconds)

	c := Call{
		ID:                uuid.NewString(),
		OriginContactID:   origin.ID,
		DestinationNumber: destination,
		DestinationType:   pricing.Classify(destination),
		DurationSeconds:   seconds,
		Pulses:            q.Pulses,
		CostTotal:         q.Cost,
		FallbackPriced:    q.Fallback,
		IdempotencyKey:    key,
		CreatedAt:         r.clock().UTC(),
	}
	if err := r.repo.Insert(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// Lost a race with a concurrent retry; answer with the winner.
			if prev, ok, rerr := r.replay(ctx, key, contactID, destination, seconds); rerr != nil || ok {
				return prev, rerr
			}
		}
		return Call{}, apperr.Persistence("insert call", err)
	}

	metrics.RecordCall(string(c.DestinationType))
	logger.From(ctx).Info("call recorded",
		"call_id", c.ID,
		"contact_id", c.OriginContactID,
		"destination_type", c.DestinationType,
		"duration_seconds", c.DurationSeconds,
		"pulses", c.Pulses,
		"cost_total", c.CostTotal.String(),
		"fallback", c.FallbackPriced,
	)
	return c, nil
}

// replay returns the call already recorded under key. A key reused for a
// different contact, destination or duration is a conflict.
func (r *Recorder) replay(ctx context.Context, key, contactID, destination string, seconds int) (Call, bool, error) {
	prev, ok, err := r.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return Call{}, false, apperr.Persistence("find call by idempotency key", err)
	}
	if !ok {
		return Call{}, false, nil
	}
	if prev.OriginContactID != contactID || prev.DestinationNumber != destination || prev.DurationSeconds != seconds {
		return Call{}, false, ErrIdempotencyMismatch
	}
	logger.From(ctx).Info("call replayed", "call_id", prev.ID, "idempotency_key", key)
	return prev, true, nil
}

// ListCalls returns recorded calls, newest first.
func (r *Recorder) ListCalls(ctx context.Context, f ListFilter) ([]Call, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	out, err := r.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.Persistence("list calls", err)
	}
	return out, nil
}
