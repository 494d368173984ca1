package pricing

import (
	"context"
	"errors"
	"testing"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/audit"
)

func strp(s string) *string { return &s }

func newAdmin() (*AdminService, *MemoryRepo, *audit.MemoryRepo) {
	repo := &MemoryRepo{}
	events := audit.NewMemoryRepo()
	return NewAdminService(repo, audit.NewService(events)), repo, events
}

func TestCreateRate_Validation(t *testing.T) {
	svc, _, _ := newAdmin()
	ctx := context.Background()

	bad := []RateInput{
		{DestinationType: NumberTypeMobile, CostPerMinute: dec("0.1")},
		{OriginType: NumberTypeLandline, CostPerMinute: dec("0.1")},
		{OriginType: "satellite", DestinationType: NumberTypeMobile, CostPerMinute: dec("0.1")},
		{OriginType: NumberTypeLandline, DestinationType: NumberTypeMobile},
		{OriginType: NumberTypeLandline, DestinationType: NumberTypeMobile, CostPerMinute: dec("-1")},
	}
	for i, in := range bad {
		if _, err := svc.CreateRate(ctx, in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreateRate_DuplicateDetection(t *testing.T) {
	svc, repo, events := newAdmin()
	ctx := context.Background()

	base := RateInput{OriginType: NumberTypeLandline, DestinationType: NumberTypeMobile, CostPerMinute: dec("0.08")}
	created, err := svc.CreateRate(ctx, base)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at, got %+v", created)
	}

	// A stored NULL carrier matches any carrier.
	withCarrier := base
	withCarrier.OriginCarrier = strp("Claro")
	if _, err := svc.CreateRate(ctx, withCarrier); !errors.Is(err, ErrDuplicateRate) {
		t.Fatalf("expected ErrDuplicateRate, got %v", err)
	}
	if !errors.Is(ErrDuplicateRate, apperr.ErrConflict) {
		t.Fatalf("ErrDuplicateRate must be a conflict")
	}

	// same_region is part of the identity.
	otherRegion := base
	otherRegion.SameRegion = true
	if _, err := svc.CreateRate(ctx, otherRegion); err != nil {
		t.Fatalf("expected distinct rate, got %v", err)
	}

	if len(repo.Rates) != 2 {
		t.Fatalf("expected 2 rates stored, got %d", len(repo.Rates))
	}
	if evs := events.Events(); len(evs) != 2 || evs[0].Type != audit.EventTypeRateCreated {
		t.Fatalf("expected 2 rate_created events, got %+v", evs)
	}
}

func TestCreateRate_StoredCarrierRequiresSameCarrier(t *testing.T) {
	svc, _, _ := newAdmin()
	ctx := context.Background()

	claro := RateInput{OriginType: NumberTypeMobile, DestinationType: NumberTypeMobile, OriginCarrier: strp("Claro"), CostPerMinute: dec("0.05")}
	if _, err := svc.CreateRate(ctx, claro); err != nil {
		t.Fatalf("create: %v", err)
	}

	tigo := claro
	tigo.OriginCarrier = strp("Tigo")
	if _, err := svc.CreateRate(ctx, tigo); err != nil {
		t.Fatalf("expected different carrier to be allowed, got %v", err)
	}

	none := claro
	none.OriginCarrier = strp("  ")
	if _, err := svc.CreateRate(ctx, none); err != nil {
		t.Fatalf("expected blank carrier candidate to be allowed, got %v", err)
	}
}

func TestUpdateAndDeleteRate(t *testing.T) {
	svc, _, events := newAdmin()
	ctx := context.Background()

	r, err := svc.CreateRate(ctx, RateInput{OriginType: NumberTypeLandline, DestinationType: NumberTypeLandline, CostPerMinute: dec("0.02")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateRate(ctx, r.ID, RateInput{
		OriginType: NumberTypeLandline, DestinationType: NumberTypeLandline,
		CostPerMinute: dec("0.03"), Description: strp("local"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CostPerMinute.Equal(dec("0.03")) || updated.Description == nil || !updated.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := svc.UpdateRate(ctx, "missing", RateInput{OriginType: NumberTypeLandline, DestinationType: NumberTypeLandline, CostPerMinute: dec("1")}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := svc.DeleteRate(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteRate(ctx, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	evs := events.Events()
	if evs[len(evs)-1].Type != audit.EventTypeRateDeleted {
		t.Fatalf("expected rate_deleted last, got %s", evs[len(evs)-1].Type)
	}
}

func TestPulseConfigAdmin(t *testing.T) {
	svc, repo, _ := newAdmin()
	ctx := context.Background()

	c, err := svc.CurrentPulseConfig(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if c.PulseDurationSeconds != 60 || !c.RoundUp {
		t.Fatalf("expected defaults, got %+v", c)
	}

	if _, err := svc.SetPulseConfig(ctx, 0, true); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.SetPulseConfig(ctx, 30, false); err != nil {
		t.Fatalf("set: %v", err)
	}

	c, _ = svc.CurrentPulseConfig(ctx)
	if c.PulseDurationSeconds != 30 || c.RoundUp {
		t.Fatalf("expected new config active, got %+v", c)
	}

	// The engine reads the same row.
	q := NewEngine(repo).PriceCall(ctx, "22223333", "22224444", 45)
	if q.Pulses != 1 {
		t.Fatalf("expected 1 floor pulse of 30s, got %d", q.Pulses)
	}
}

func TestAdmin_PersistenceErrors(t *testing.T) {
	svc, repo, _ := newAdmin()
	repo.Err = errors.New("db down")

	if _, err := svc.ListRates(context.Background()); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if _, err := svc.CurrentPulseConfig(context.Background()); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
