package reporting

import (
	"context"
	"errors"

	"telecom-billing/internal/calls"
	"telecom-billing/internal/contacts"
)

var errRepositoryNotConfigured = errors.New("reporting: repository not configured")

type CallSource interface {
	List(ctx context.Context, f calls.ListFilter) ([]calls.Call, error)
}

type ContactSource interface {
	List(ctx context.Context) ([]contacts.Contact, error)
}

// InvoiceCounter is satisfied by *billing.MemoryRepo.
type InvoiceCounter interface {
	CountInvoices(ctx context.Context) (int, error)
}

// MemoryRepo joins the in-memory call and contact stores.
type MemoryRepo struct {
	calls    CallSource
	contacts ContactSource

	// Invoices is optional; without it the invoice total is zero.
	Invoices InvoiceCounter
}

func NewMemoryRepo(callSrc CallSource, contactSrc ContactSource) *MemoryRepo {
	return &MemoryRepo{calls: callSrc, contacts: contactSrc}
}

func (r *MemoryRepo) ListCallRows(ctx context.Context, tr TimeRange) ([]CallRow, error) {
	cs, err := r.calls.List(ctx, calls.ListFilter{From: tr.From, To: tr.To})
	if err != nil {
		return nil, err
	}
	depts := map[string]string{}
	if r.contacts != nil {
		all, err := r.contacts.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range all {
			if c.Department != nil {
				depts[c.ID] = *c.Department
			}
		}
	}

	out := make([]CallRow, 0, len(cs))
	for _, c := range cs {
		out = append(out, CallRow{
			CallID:          c.ID,
			DestinationType: c.DestinationType,
			Department:      depts[c.OriginContactID],
			DurationSeconds: c.DurationSeconds,
			Cost:            c.CostTotal,
			FallbackPriced:  c.FallbackPriced,
			CreatedAt:       c.CreatedAt,
		})
	}
	return out, nil
}

func (r *MemoryRepo) CountTotals(ctx context.Context) (Totals, error) {
	var t Totals
	cs, err := r.calls.List(ctx, calls.ListFilter{})
	if err != nil {
		return Totals{}, err
	}
	t.Calls = len(cs)
	if r.contacts != nil {
		all, err := r.contacts.List(ctx)
		if err != nil {
			return Totals{}, err
		}
		t.Contacts = len(all)
	}
	if r.Invoices != nil {
		if t.Invoices, err = r.Invoices.CountInvoices(ctx); err != nil {
			return Totals{}, err
		}
	}
	return t, nil
}
