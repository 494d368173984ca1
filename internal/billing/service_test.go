package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/audit"
	"telecom-billing/internal/calls"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc    *Service
	repo   *MemoryRepo
	calls  *calls.MemoryRepo
	events *audit.MemoryRepo
	locker *LocalLocker
	now    time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	callRepo := calls.NewMemoryRepo()
	repo := NewMemoryRepo(callRepo)
	events := audit.NewMemoryRepo()
	locker := NewLocalLocker()

	svc := NewService(repo, locker, audit.NewService(events), Options{Locale: "es", Location: time.UTC})
	svc.clock = func() time.Time { return now }
	return &fixture{svc: svc, repo: repo, calls: callRepo, events: events, locker: locker, now: now}
}

func (f *fixture) call(t *testing.T, contactID, cost string, at time.Time) {
	t.Helper()
	if err := f.calls.Insert(context.Background(), calls.Call{
		ID:              contactID + at.String() + cost,
		OriginContactID: contactID,
		CostTotal:       dec(cost),
		CreatedAt:       at,
	}); err != nil {
		t.Fatalf("insert call: %v", err)
	}
}

func TestEnsureCurrentPeriod_Idempotent(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	p1, err := f.svc.EnsureCurrentPeriod(ctx)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	p2, err := f.svc.EnsureCurrentPeriod(ctx)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p1.ID != p2.ID {
		t.Fatalf("expected same period, got %s and %s", p1.ID, p2.ID)
	}
	if p1.Name != "Marzo 2024" || p1.Status != PeriodStatusOpen {
		t.Fatalf("unexpected period: %+v", p1)
	}
	if p1.StartDate.Format(time.DateOnly) != "2024-03-01" || p1.EndDate.Format(time.DateOnly) != "2024-03-31" {
		t.Fatalf("unexpected range: %s..%s", p1.StartDate, p1.EndDate)
	}

	all, _ := f.svc.ListPeriods(ctx)
	if len(all) != 1 {
		t.Fatalf("expected 1 period, got %d", len(all))
	}
}

func TestEnsureCurrentPeriod_Concurrent(t *testing.T) {
	f := newFixture(t, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.svc.EnsureCurrentPeriod(context.Background())
			if err == nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id == "" || id != ids[0] {
			t.Fatalf("expected one shared period, got %v", ids)
		}
	}
	all, _ := f.svc.ListPeriods(context.Background())
	if len(all) != 1 || all[0].Name != "Diciembre 2024" {
		t.Fatalf("unexpected periods: %+v", all)
	}
}

func TestEnsureCurrentPeriod_NewMonthCreatesNewPeriod(t *testing.T) {
	f := newFixture(t, time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC))
	dec2024, _ := f.svc.EnsureCurrentPeriod(context.Background())

	f.svc.clock = func() time.Time { return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC) }
	jan2025, err := f.svc.EnsureCurrentPeriod(context.Background())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if jan2025.ID == dec2024.ID || jan2025.Year != 2025 || jan2025.Month != time.January {
		t.Fatalf("expected a January 2025 period, got %+v", jan2025)
	}

	all, _ := f.svc.ListPeriods(context.Background())
	if len(all) != 2 || all[0].ID != jan2025.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}
}

func TestListPeriods_CreatesCurrentMonth(t *testing.T) {
	f := newFixture(t, time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	all, err := f.svc.ListPeriods(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Year != 2025 || all[0].Month != time.February || all[0].Name != "Febrero 2025" {
		t.Fatalf("expected the current month, got %+v", all)
	}

	again, _ := f.svc.ListPeriods(ctx)
	if len(again) != 1 || again[0].ID != all[0].ID {
		t.Fatalf("expected the same single period, got %+v", again)
	}

	f.repo.Err = errors.New("down")
	if _, err := f.svc.ListPeriods(ctx); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestGenerateInvoices_AggregatesPerContact(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	p, _ := f.svc.EnsureCurrentPeriod(ctx)

	f.call(t, "A", "10.00", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	f.call(t, "A", "2.50", time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC))
	f.call(t, "B", "3.00", time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	f.call(t, "C", "0", time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC))

	res, err := f.svc.GenerateInvoices(ctx, p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.InvoiceCount != 2 || !res.TotalAmount.Equal(dec("15.50")) || res.Empty {
		t.Fatalf("unexpected result: %+v", res)
	}

	invs, err := f.svc.ListInvoices(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := map[string]decimal.Decimal{}
	for _, inv := range invs {
		if inv.Status != InvoiceStatusPending || inv.PeriodID != p.ID {
			t.Fatalf("unexpected invoice: %+v", inv)
		}
		got[inv.ContactID] = inv.Total
	}
	if len(got) != 2 || !got["A"].Equal(dec("12.50")) || !got["B"].Equal(dec("3.00")) {
		t.Fatalf("unexpected invoices: %v", got)
	}

	evs := f.events.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeInvoicesGenerated || evs[0].PeriodID != p.ID {
		t.Fatalf("expected one invoices_generated event, got %+v", evs)
	}
}

func TestGenerateInvoices_RerunReplaces(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	p, _ := f.svc.EnsureCurrentPeriod(ctx)
	f.call(t, "A", "1.00", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	f.call(t, "B", "2.00", time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC))

	first, err := f.svc.GenerateInvoices(ctx, p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	firstInvs, _ := f.svc.ListInvoices(ctx, p.ID)

	second, err := f.svc.GenerateInvoices(ctx, p.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	secondInvs, _ := f.svc.ListInvoices(ctx, p.ID)

	if first.InvoiceCount != second.InvoiceCount || !first.TotalAmount.Equal(second.TotalAmount) {
		t.Fatalf("expected identical runs, got %+v and %+v", first, second)
	}
	if len(secondInvs) != 2 || len(firstInvs) != 2 {
		t.Fatalf("expected replacement not append, got %d then %d", len(firstInvs), len(secondInvs))
	}
	for i := range firstInvs {
		if firstInvs[i].ContactID != secondInvs[i].ContactID || !firstInvs[i].Total.Equal(secondInvs[i].Total) {
			t.Fatalf("invoice sets differ: %+v vs %+v", firstInvs[i], secondInvs[i])
		}
	}

	// A new call shows up in the next run.
	f.call(t, "A", "0.50", time.Date(2024, 3, 19, 9, 0, 0, 0, time.UTC))
	third, _ := f.svc.GenerateInvoices(ctx, p.ID)
	if !third.TotalAmount.Equal(dec("3.50")) || third.InvoiceCount != 2 {
		t.Fatalf("unexpected third run: %+v", third)
	}
}

func TestGenerateInvoices_WindowBoundaries(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	p, _ := f.svc.EnsureCurrentPeriod(ctx)

	f.call(t, "first", "1.00", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	f.call(t, "last", "1.00", time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC))
	f.call(t, "before", "1.00", time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC))
	f.call(t, "after", "1.00", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

	if _, err := f.svc.GenerateInvoices(ctx, p.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	invs, _ := f.svc.ListInvoices(ctx, p.ID)
	if len(invs) != 2 || invs[0].ContactID != "first" || invs[1].ContactID != "last" {
		t.Fatalf("unexpected invoices: %+v", invs)
	}
}

func TestGenerateInvoices_NothingToInvoice(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	p, _ := f.svc.EnsureCurrentPeriod(context.Background())
	f.call(t, "A", "0", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))

	res, err := f.svc.GenerateInvoices(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.Empty || res.InvoiceCount != 0 || !res.TotalAmount.IsZero() {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestGenerateInvoices_UnknownPeriod(t *testing.T) {
	f := newFixture(t, time.Now())
	if _, err := f.svc.GenerateInvoices(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.GenerateInvoices(context.Background(), " "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.ListInvoices(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGenerateInvoices_BusyWhenLocked(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	p, _ := f.svc.EnsureCurrentPeriod(ctx)

	release, err := f.locker.Acquire(ctx, invoicingLockKey(p.ID), time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_, err = f.svc.GenerateInvoices(ctx, p.ID)
	if !errors.Is(err, ErrInvoicingBusy) || !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected busy conflict, got %v", err)
	}

	release(ctx)
	if _, err := f.svc.GenerateInvoices(ctx, p.ID); err != nil {
		t.Fatalf("expected run after release, got %v", err)
	}
	// The run released its own lock.
	if r, err := f.locker.Acquire(ctx, invoicingLockKey(p.ID), time.Minute); err != nil {
		t.Fatalf("expected lock free after run, got %v", err)
	} else {
		r(ctx)
	}
}

func TestGenerateInvoices_LockBackendDownStillRuns(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	f.svc.locker = NewRedisLocker(nil)
	p, _ := f.svc.EnsureCurrentPeriod(context.Background())
	f.call(t, "A", "1.00", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))

	res, err := f.svc.GenerateInvoices(context.Background(), p.ID)
	if err != nil || res.InvoiceCount != 1 {
		t.Fatalf("expected run without lock backend, got %+v %v", res, err)
	}
}

func TestGenerateInvoices_StorageFailure(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	p, _ := f.svc.EnsureCurrentPeriod(context.Background())
	f.call(t, "A", "1.00", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	if _, err := f.svc.GenerateInvoices(context.Background(), p.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}

	f.calls.Err = errors.New("calls table unavailable")
	if _, err := f.svc.GenerateInvoices(context.Background(), p.ID); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}

	// The previous invoice set is untouched.
	f.calls.Err = nil
	invs, _ := f.svc.ListInvoices(context.Background(), p.ID)
	if len(invs) != 1 {
		t.Fatalf("expected previous invoices kept, got %d", len(invs))
	}
}

func TestEnsureCurrentPeriod_StorageFailure(t *testing.T) {
	f := newFixture(t, time.Now())
	f.repo.Err = errors.New("down")
	if _, err := f.svc.EnsureCurrentPeriod(context.Background()); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
