package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"telecom-billing/internal/calls"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CallSource lists priced calls. *calls.MemoryRepo satisfies it.
type CallSource interface {
	List(ctx context.Context, f calls.ListFilter) ([]calls.Call, error)
}

// MemoryRepo keeps periods and invoices in memory and aggregates from a
// CallSource. One mutex makes ReplaceInvoices atomic.
type MemoryRepo struct {
	mu       sync.Mutex
	calls    CallSource
	periods  map[string]Period
	invoices map[string][]Invoice

	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryRepo(callSource CallSource) *MemoryRepo {
	return &MemoryRepo{
		calls:    callSource,
		periods:  map[string]Period{},
		invoices: map[string][]Invoice{},
	}
}

func (r *MemoryRepo) FindPeriod(ctx context.Context, year int, month time.Month) (Period, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Period{}, false, r.Err
	}
	for _, p := range r.periods {
		if p.Year == year && p.Month == month {
			return p, true, nil
		}
	}
	return Period{}, false, nil
}

func (r *MemoryRepo) CreatePeriod(ctx context.Context, p Period) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, existing := range r.periods {
		if existing.Year == p.Year && existing.Month == p.Month {
			return nil
		}
	}
	r.periods[p.ID] = p
	return nil
}

func (r *MemoryRepo) GetPeriod(ctx context.Context, id string) (Period, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return Period{}, false, r.Err
	}
	p, ok := r.periods[id]
	return p, ok, nil
}

func (r *MemoryRepo) ListPeriods(ctx context.Context) ([]Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]Period, 0, len(r.periods))
	for _, p := range r.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (r *MemoryRepo) ReplaceInvoices(ctx context.Context, periodID string, from, to, generatedAt time.Time) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if _, ok := r.periods[periodID]; !ok {
		return nil, ErrPeriodNotFound
	}

	rows, err := r.calls.List(ctx, calls.ListFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	totals := map[string]decimal.Decimal{}
	for _, c := range rows {
		totals[c.OriginContactID] = totals[c.OriginContactID].Add(c.CostTotal)
	}

	contactIDs := make([]string, 0, len(totals))
	for id, total := range totals {
		if total.IsPositive() {
			contactIDs = append(contactIDs, id)
		}
	}
	sort.Strings(contactIDs)

	out := make([]Invoice, 0, len(contactIDs))
	for _, id := range contactIDs {
		out = append(out, Invoice{
			ID:          uuid.NewString(),
			ContactID:   id,
			PeriodID:    periodID,
			Total:       totals[id],
			GeneratedAt: generatedAt,
			Status:      InvoiceStatusPending,
		})
	}
	r.invoices[periodID] = out

	cp := make([]Invoice, len(out))
	copy(cp, out)
	return cp, nil
}

func (r *MemoryRepo) ListInvoices(ctx context.Context, periodID string) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	cp := make([]Invoice, len(r.invoices[periodID]))
	copy(cp, r.invoices[periodID])
	return cp, nil
}

func (r *MemoryRepo) CountInvoices(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	n := 0
	for _, invs := range r.invoices {
		n += len(invs)
	}
	return n, nil
}
