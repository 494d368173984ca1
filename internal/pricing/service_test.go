package pricing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"telecom-billing/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPulses(t *testing.T) {
	cases := []struct {
		d, p    int
		roundUp bool
		want    int
	}{
		{60, 60, true, 1},
		{61, 60, true, 2},
		{1, 60, true, 1},
		{0, 60, true, 0},
		{-5, 60, true, 0},
		{119, 60, false, 1},
		{120, 60, false, 2},
		{59, 60, false, 0},
		{90, 30, true, 3},
		{91, 30, true, 4},
		{61, 0, true, 2},
		{61, -10, false, 1},
		{math.MaxInt - 10, 60, true, (math.MaxInt-10)/60 + 1},
		{math.MaxInt, 1, true, math.MaxInt},
	}
	for _, tc := range cases {
		if got := Pulses(tc.d, tc.p, tc.roundUp); got != tc.want {
			t.Fatalf("Pulses(%d, %d, %v): expected %d, got %d", tc.d, tc.p, tc.roundUp, tc.want, got)
		}
	}
}

func TestPriceCall_RoundUp(t *testing.T) {
	e := NewEngine(&MemoryRepo{})
	ctx := context.Background()

	q := e.PriceCall(ctx, "22223333", "22224444", 60)
	if q.Pulses != 1 {
		t.Fatalf("expected 1 pulse, got %d", q.Pulses)
	}
	q = e.PriceCall(ctx, "22223333", "22224444", 61)
	if q.Pulses != 2 {
		t.Fatalf("expected 2 pulses, got %d", q.Pulses)
	}
	q = e.PriceCall(ctx, "22223333", "22224444", 0)
	if q.Pulses != 0 || !q.Cost.IsZero() {
		t.Fatalf("expected zero pulses and cost, got %d / %s", q.Pulses, q.Cost)
	}
}

func TestPriceCall_Floor(t *testing.T) {
	repo := &MemoryRepo{Pulses: []PulseConfig{{PulseDurationSeconds: 60, RoundUp: false}}}
	e := NewEngine(repo)

	if q := e.PriceCall(context.Background(), "22223333", "22224444", 119); q.Pulses != 1 {
		t.Fatalf("expected 1 pulse, got %d", q.Pulses)
	}
	if q := e.PriceCall(context.Background(), "22223333", "22224444", 120); q.Pulses != 2 {
		t.Fatalf("expected 2 pulses, got %d", q.Pulses)
	}
}

func TestPriceCall_UsesLatestPulseConfig(t *testing.T) {
	repo := &MemoryRepo{Pulses: []PulseConfig{
		{ID: 1, PulseDurationSeconds: 60, RoundUp: true},
		{ID: 2, PulseDurationSeconds: 30, RoundUp: true},
	}}
	q := NewEngine(repo).PriceCall(context.Background(), "22223333", "22224444", 61)
	if q.Pulses != 3 || q.PulseDurationSeconds != 30 {
		t.Fatalf("expected 3 pulses of 30s, got %d of %ds", q.Pulses, q.PulseDurationSeconds)
	}
}

func TestPriceCall_NonPositivePulseLengthUsesDefault(t *testing.T) {
	repo := &MemoryRepo{Pulses: []PulseConfig{{PulseDurationSeconds: 0, RoundUp: true}}}
	q := NewEngine(repo).PriceCall(context.Background(), "22223333", "22224444", 61)
	if q.Pulses != 2 || q.PulseDurationSeconds != DefaultPulseSeconds {
		t.Fatalf("expected default pulse length, got %+v", q)
	}
}

func TestPriceCall_MatchingRate(t *testing.T) {
	repo := &MemoryRepo{Rates: []Rate{
		{ID: "r1", OriginType: NumberTypeLandline, DestinationType: NumberTypeMobile, CostPerMinute: dec("0.08")},
	}}
	q := NewEngine(repo).PriceCall(context.Background(), "22223333", "88887777", 90)

	if q.OriginType != NumberTypeLandline || q.DestinationType != NumberTypeMobile {
		t.Fatalf("unexpected types: %s -> %s", q.OriginType, q.DestinationType)
	}
	if q.Pulses != 2 {
		t.Fatalf("expected 2 pulses, got %d", q.Pulses)
	}
	if !q.Cost.Equal(dec("0.16")) {
		t.Fatalf("expected 0.16, got %s", q.Cost)
	}
	if q.RateID != "r1" || q.Fallback || q.Path() != "rated" {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestPriceCall_FirstRateInStorageOrderWins(t *testing.T) {
	repo := &MemoryRepo{Rates: []Rate{
		{ID: "old", OriginType: NumberTypeLandline, DestinationType: NumberTypeMobile, CostPerMinute: dec("0.10")},
		{ID: "new", OriginType: NumberTypeLandline, DestinationType: NumberTypeMobile, CostPerMinute: dec("0.01")},
	}}
	q := NewEngine(repo).PriceCall(context.Background(), "22223333", "88887777", 60)
	if q.RateID != "old" || !q.Cost.Equal(dec("0.10")) {
		t.Fatalf("expected first stored rate, got %+v", q)
	}
}

func TestPriceCall_DefaultRate(t *testing.T) {
	q := NewEngine(&MemoryRepo{}).PriceCall(context.Background(), "22223333", "22224444", 30)
	if q.Pulses != 1 {
		t.Fatalf("expected 1 pulse, got %d", q.Pulses)
	}
	if !q.Cost.Equal(dec("0.05")) {
		t.Fatalf("expected 0.05, got %s", q.Cost)
	}
	if q.Path() != "default_rate" {
		t.Fatalf("expected default_rate path, got %s", q.Path())
	}
}

func TestPriceCall_NegativeDurationClampsToZero(t *testing.T) {
	q := NewEngine(&MemoryRepo{}).PriceCall(context.Background(), "22223333", "22224444", -30)
	if q.Pulses != 0 || !q.Cost.IsZero() || q.DurationSeconds != 0 {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestPriceCall_FallbackOnRepositoryError(t *testing.T) {
	before := testutil.ToFloat64(metrics.PricingFallbacksTotal)

	repo := &MemoryRepo{Err: errors.New("connection refused")}
	e := NewEngine(repo)
	ctx := context.Background()

	cases := []struct {
		dest    string
		seconds int
		want    string
		typ     NumberType
	}{
		{"22224444", 150, "0.04", NumberTypeLandline},
		{"88887777", 150, "0.16", NumberTypeMobile},
		{"+50588887777", 150, "1.00", NumberTypeInternational},
		{"88887777", 59, "0", NumberTypeMobile},
	}
	for _, tc := range cases {
		q := e.PriceCall(ctx, "22223333", tc.dest, tc.seconds)
		if !q.Fallback || q.Path() != "fallback" {
			t.Fatalf("%s: expected fallback quote, got %+v", tc.dest, q)
		}
		if q.Pulses != 1 {
			t.Fatalf("%s: expected 1 pulse, got %d", tc.dest, q.Pulses)
		}
		if q.DestinationType != tc.typ {
			t.Fatalf("%s: expected %s, got %s", tc.dest, tc.typ, q.DestinationType)
		}
		if !q.Cost.Equal(dec(tc.want)) {
			t.Fatalf("%s: expected %s, got %s", tc.dest, tc.want, q.Cost)
		}
	}

	if got := testutil.ToFloat64(metrics.PricingFallbacksTotal) - before; got != float64(len(cases)) {
		t.Fatalf("expected %d fallbacks counted, got %v", len(cases), got)
	}
}

type rateErrRepo struct{ MemoryRepo }

func (r *rateErrRepo) FindRate(ctx context.Context, o, d NumberType) (Rate, bool, error) {
	return Rate{}, false, errors.New("timeout")
}

func TestPriceCall_FallbackWhenOnlyRateLookupFails(t *testing.T) {
	q := NewEngine(&rateErrRepo{}).PriceCall(context.Background(), "22223333", "88887777", 120)
	if !q.Fallback || !q.Cost.Equal(dec("0.16")) {
		t.Fatalf("expected fallback pricing, got %+v", q)
	}
}

func TestPriceCall_NilRepositoryFallsBack(t *testing.T) {
	q := NewEngine(nil).PriceCall(context.Background(), "22223333", "22224444", 60)
	if !q.Fallback || !q.Cost.Equal(dec("0.02")) {
		t.Fatalf("expected fallback pricing, got %+v", q)
	}
}

func TestPriceCall_ConcurrentUse(t *testing.T) {
	repo := &MemoryRepo{Rates: []Rate{
		{ID: "r1", OriginType: NumberTypeLandline, DestinationType: NumberTypeLandline, CostPerMinute: dec("0.02"), CreatedAt: time.Now()},
	}}
	e := NewEngine(repo)

	done := make(chan Quote, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- e.PriceCall(context.Background(), "22223333", "22224444", 61) }()
	}
	for i := 0; i < 8; i++ {
		if q := <-done; !q.Cost.Equal(dec("0.04")) {
			t.Fatalf("expected 0.04, got %s", q.Cost)
		}
	}
}
