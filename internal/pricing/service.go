package pricing

import (
	"context"
	"errors"
	"math"

	"telecom-billing/internal/metrics"
	"telecom-billing/pkg/logger"

	"github.com/shopspring/decimal"
)

// Engine prices calls from pulse configuration and the rate table.
//
// Contract:
//   - Pulses replace minutes as the billing unit; a rate's cost per minute is
//     charged once per pulse.
//   - When configuration or rate lookup fails, the call is priced with the
//     simplified destination table instead. PriceCall never returns an error.
type Engine struct {
	repo RateRepository
}

func NewEngine(repo RateRepository) *Engine {
	return &Engine{repo: repo}
}

// RateRepository is the read side of pricing configuration.
type RateRepository interface {
	// LatestPulseConfig returns the most recently stored configuration.
	LatestPulseConfig(ctx context.Context) (PulseConfig, bool, error)
	// FindRate returns the first stored rate for the type pair in storage order.
	FindRate(ctx context.Context, origin, destination NumberType) (Rate, bool, error)
}

var errRepositoryNotConfigured = errors.New("pricing: repository not configured")

var (
	// DefaultCostPerPulse applies when no rate matches the type pair.
	DefaultCostPerPulse = decimal.RequireFromString("0.05")

	// fallbackCostPerMinute prices by destination type alone.
	fallbackCostPerMinute = map[NumberType]decimal.Decimal{
		NumberTypeLandline:      decimal.RequireFromString("0.02"),
		NumberTypeMobile:        decimal.RequireFromString("0.08"),
		NumberTypeInternational: decimal.RequireFromString("0.50"),
	}
)

// PriceCall computes cost and pulses for a call of durationSeconds from
// originNumber to destinationNumber.
func (e *Engine) PriceCall(ctx context.Context, originNumber, destinationNumber string, durationSeconds int) Quote {
	q, err := e.rate(ctx, originNumber, destinationNumber, durationSeconds)
	if err != nil {
		logger.From(ctx).Warn("rate lookup failed, using simplified pricing",
			"err", err,
			"destination", destinationNumber,
			"duration_seconds", durationSeconds,
		)
		q = simplifiedQuote(originNumber, destinationNumber, durationSeconds)
	}

	metrics.RecordQuote(string(q.DestinationType), q.Path())
	logger.From(ctx).Debug("call priced",
		"origin_type", q.OriginType,
		"destination_type", q.DestinationType,
		"duration_seconds", q.DurationSeconds,
		"pulse_seconds", q.PulseDurationSeconds,
		"pulses", q.Pulses,
		"cost_per_pulse", q.CostPerPulse.String(),
		"cost", q.Cost.String(),
		"path", q.Path(),
	)
	return q
}

func (e *Engine) rate(ctx context.Context, originNumber, destinationNumber string, durationSeconds int) (Quote, error) {
	if e.repo == nil {
		return Quote{}, errRepositoryNotConfigured
	}

	cfg, ok, err := e.repo.LatestPulseConfig(ctx)
	if err != nil {
		return Quote{}, err
	}
	if !ok {
		cfg = DefaultPulseConfig()
	}
	if cfg.PulseDurationSeconds <= 0 {
		cfg.PulseDurationSeconds = DefaultPulseSeconds
	}

	if durationSeconds < 0 {
		durationSeconds = 0
	}

	q := Quote{
		OriginType:           Classify(originNumber),
		DestinationType:      Classify(destinationNumber),
		DurationSeconds:      durationSeconds,
		PulseDurationSeconds: cfg.PulseDurationSeconds,
		RoundUp:              cfg.RoundUp,
		Pulses:               Pulses(durationSeconds, cfg.PulseDurationSeconds, cfg.RoundUp),
		CostPerPulse:         DefaultCostPerPulse,
	}

	r, ok, err := e.repo.FindRate(ctx, q.OriginType, q.DestinationType)
	if err != nil {
		return Quote{}, err
	}
	if ok {
		q.CostPerPulse = r.CostPerMinute
		q.RateID = r.ID
	}

	q.Cost = q.CostPerPulse.Mul(decimal.NewFromInt(int64(q.Pulses)))
	return q, nil
}

// simplifiedQuote prices by destination type and whole minutes and always
// reports a single pulse.
func simplifiedQuote(originNumber, destinationNumber string, durationSeconds int) Quote {
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	dest := Classify(destinationNumber)
	perMinute, ok := fallbackCostPerMinute[dest]
	if !ok {
		perMinute = DefaultCostPerPulse
	}
	minutes := durationSeconds / 60

	return Quote{
		OriginType:           Classify(originNumber),
		DestinationType:      dest,
		DurationSeconds:      durationSeconds,
		PulseDurationSeconds: DefaultPulseSeconds,
		RoundUp:              false,
		Pulses:               1,
		CostPerPulse:         perMinute,
		Cost:                 perMinute.Mul(decimal.NewFromInt(int64(minutes))),
		Fallback:             true,
	}
}

// MaxDurationSeconds is the longest call duration that can be priced and
// stored; calls.duration_seconds is a Postgres INTEGER.
const MaxDurationSeconds = math.MaxInt32

// Pulses converts a duration into billable pulses.
// Rounding up uses integer ceiling division: one second past a pulse
// boundary starts a new pulse, an exact multiple does not.
func Pulses(durationSeconds, pulseSeconds int, roundUp bool) int {
	if durationSeconds <= 0 {
		return 0
	}
	if pulseSeconds <= 0 {
		pulseSeconds = DefaultPulseSeconds
	}
	n := durationSeconds / pulseSeconds
	if roundUp && durationSeconds%pulseSeconds != 0 {
		n++
	}
	return n
}
