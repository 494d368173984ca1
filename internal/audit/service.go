package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"telecom-billing/internal/auth"
	"telecom-billing/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, limit int) ([]Event, error)
}

// Service records who changed billing configuration and who regenerated invoices.
//
// Callers treat audit logging as best-effort: the Log* helpers log and
// swallow repository failures so a billing operation never fails on audit.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Append validates and stores e, filling ID, CreatedAt and actor fields
// from ctx when they are empty.
func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if !e.Type.Valid() {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.ActorUserID == "" {
		e.ActorUserID, _ = auth.UserID(ctx)
	}
	if e.ActorRole == "" {
		e.ActorRole, _ = auth.Role(ctx)
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, limit)
}

// LogInvoicesGenerated records one invoice regeneration for a period.
func (s *Service) LogInvoicesGenerated(ctx context.Context, periodID string, invoices int, total string) {
	s.bestEffort(ctx, Event{
		Type:     EventTypeInvoicesGenerated,
		PeriodID: periodID,
		Message:  "invoices regenerated",
		Metadata: metadata(map[string]any{"invoices": invoices, "total": total}),
	})
}

// LogRateChange records a rate create/update/delete.
func (s *Service) LogRateChange(ctx context.Context, typ EventType, rateID string, details map[string]any) {
	s.bestEffort(ctx, Event{
		Type:     typ,
		RateID:   rateID,
		Message:  string(typ),
		Metadata: metadata(details),
	})
}

// LogPulseConfigChange records a new pulse configuration row.
func (s *Service) LogPulseConfigChange(ctx context.Context, pulseSeconds int, roundUp bool) {
	s.bestEffort(ctx, Event{
		Type:     EventTypePulseConfigChanged,
		Message:  "pulse configuration changed",
		Metadata: metadata(map[string]any{"pulse_duration_seconds": pulseSeconds, "round_up": roundUp}),
	})
}

func (s *Service) bestEffort(ctx context.Context, e Event) {
	if s == nil {
		return
	}
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Error("audit append failed", "type", e.Type, "err", err)
	}
}

func metadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
