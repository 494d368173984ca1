package pricing

import (
	"context"
	"strings"
	"time"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/audit"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateRate = apperr.Conflict("a rate with the same characteristics already exists")
	ErrRateNotFound  = apperr.NotFound("rate")
)

// AdminRepository is the write side of pricing configuration.
type AdminRepository interface {
	RateRepository

	ListRates(ctx context.Context) ([]Rate, error)
	GetRate(ctx context.Context, id string) (Rate, bool, error)
	// FindSimilarRate matches on type pair and same_region; a stored NULL
	// carrier matches any candidate carrier.
	FindSimilarRate(ctx context.Context, candidate Rate) (Rate, bool, error)
	InsertRate(ctx context.Context, r Rate) error
	UpdateRate(ctx context.Context, r Rate) (bool, error)
	DeleteRate(ctx context.Context, id string) (bool, error)

	InsertPulseConfig(ctx context.Context, c PulseConfig) (PulseConfig, error)
}

// AuditLogger receives configuration changes. *audit.Service satisfies it.
type AuditLogger interface {
	LogRateChange(ctx context.Context, typ audit.EventType, rateID string, details map[string]any)
	LogPulseConfigChange(ctx context.Context, pulseSeconds int, roundUp bool)
}

// AdminService manages rates and pulse configuration. Engine only reads them.
type AdminService struct {
	repo  AdminRepository
	audit AuditLogger
	clock func() time.Time
}

func NewAdminService(repo AdminRepository, auditLog AuditLogger) *AdminService {
	return &AdminService{repo: repo, audit: auditLog, clock: time.Now}
}

// RateInput is the editable part of a Rate.
type RateInput struct {
	OriginType         NumberType      `json:"origin_type"`
	DestinationType    NumberType      `json:"destination_type"`
	OriginCarrier      *string         `json:"origin_carrier,omitempty"`
	DestinationCarrier *string         `json:"destination_carrier,omitempty"`
	SameRegion         bool            `json:"same_region"`
	CostPerMinute      decimal.Decimal `json:"cost_per_minute"`
	Description        *string         `json:"description,omitempty"`
}

func (in RateInput) validate() error {
	if in.OriginType == "" || in.DestinationType == "" {
		return apperr.Validation("origin_type and destination_type are required")
	}
	if !in.OriginType.Valid() || !in.DestinationType.Valid() {
		return apperr.Validation("number types must be landline, mobile or international")
	}
	if !in.CostPerMinute.IsPositive() {
		return apperr.Validation("cost_per_minute must be greater than zero")
	}
	return nil
}

func (in RateInput) rate(id string, createdAt time.Time) Rate {
	return Rate{
		ID:                 id,
		OriginType:         in.OriginType,
		DestinationType:    in.DestinationType,
		OriginCarrier:      blankToNil(in.OriginCarrier),
		DestinationCarrier: blankToNil(in.DestinationCarrier),
		SameRegion:         in.SameRegion,
		CostPerMinute:      in.CostPerMinute,
		Description:        blankToNil(in.Description),
		CreatedAt:          createdAt,
	}
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *AdminService) ListRates(ctx context.Context) ([]Rate, error) {
	rates, err := s.repo.ListRates(ctx)
	if err != nil {
		return nil, apperr.Persistence("list rates", err)
	}
	return rates, nil
}

// CreateRate stores a new rate unless a similar one already exists.
func (s *AdminService) CreateRate(ctx context.Context, in RateInput) (Rate, error) {
	if err := in.validate(); err != nil {
		return Rate{}, err
	}
	r := in.rate(uuid.NewString(), s.clock().UTC())

	if _, exists, err := s.repo.FindSimilarRate(ctx, r); err != nil {
		return Rate{}, apperr.Persistence("find similar rate", err)
	} else if exists {
		return Rate{}, ErrDuplicateRate
	}

	if err := s.repo.InsertRate(ctx, r); err != nil {
		return Rate{}, apperr.Persistence("insert rate", err)
	}
	s.logRate(ctx, audit.EventTypeRateCreated, r)
	return r, nil
}

// UpdateRate replaces every editable field of an existing rate.
func (s *AdminService) UpdateRate(ctx context.Context, id string, in RateInput) (Rate, error) {
	if strings.TrimSpace(id) == "" {
		return Rate{}, apperr.Validation("rate id is required")
	}
	if err := in.validate(); err != nil {
		return Rate{}, err
	}
	r := in.rate(id, time.Time{})

	ok, err := s.repo.UpdateRate(ctx, r)
	if err != nil {
		return Rate{}, apperr.Persistence("update rate", err)
	}
	if !ok {
		return Rate{}, ErrRateNotFound
	}

	updated, _, err := s.repo.GetRate(ctx, id)
	if err != nil {
		return Rate{}, apperr.Persistence("get rate", err)
	}
	s.logRate(ctx, audit.EventTypeRateUpdated, updated)
	return updated, nil
}

func (s *AdminService) DeleteRate(ctx context.Context, id string) error {
	ok, err := s.repo.DeleteRate(ctx, id)
	if err != nil {
		return apperr.Persistence("delete rate", err)
	}
	if !ok {
		return ErrRateNotFound
	}
	if s.audit != nil {
		s.audit.LogRateChange(ctx, audit.EventTypeRateDeleted, id, nil)
	}
	return nil
}

// CurrentPulseConfig returns the active configuration, or the defaults
// when none is stored.
func (s *AdminService) CurrentPulseConfig(ctx context.Context) (PulseConfig, error) {
	c, ok, err := s.repo.LatestPulseConfig(ctx)
	if err != nil {
		return PulseConfig{}, apperr.Persistence("load pulse config", err)
	}
	if !ok {
		return DefaultPulseConfig(), nil
	}
	return c, nil
}

// SetPulseConfig appends a configuration row that becomes the active one.
func (s *AdminService) SetPulseConfig(ctx context.Context, pulseSeconds int, roundUp bool) (PulseConfig, error) {
	if pulseSeconds <= 0 {
		return PulseConfig{}, apperr.Validation("pulse_duration_seconds must be greater than zero")
	}
	c, err := s.repo.InsertPulseConfig(ctx, PulseConfig{
		PulseDurationSeconds: pulseSeconds,
		RoundUp:              roundUp,
		CreatedAt:            s.clock().UTC(),
	})
	if err != nil {
		return PulseConfig{}, apperr.Persistence("insert pulse config", err)
	}
	if s.audit != nil {
		s.audit.LogPulseConfigChange(ctx, c.PulseDurationSeconds, c.RoundUp)
	}
	return c, nil
}

func (s *AdminService) logRate(ctx context.Context, typ audit.EventType, r Rate) {
	if s.audit == nil {
		return
	}
	s.audit.LogRateChange(ctx, typ, r.ID, map[string]any{
		"origin_type":      r.OriginType,
		"destination_type": r.DestinationType,
		"same_region":      r.SameRegion,
		"cost_per_minute":  r.CostPerMinute.String(),
	})
}
