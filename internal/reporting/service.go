package reporting

import (
	"context"
	"sort"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/pricing"

	"github.com/shopspring/decimal"
)

// Repository abstracts data access for reporting.
// Implementations read the immutable calls table only.
type Repository interface {
	ListCallRows(ctx context.Context, r TimeRange) ([]CallRow, error)
	CountTotals(ctx context.Context) (Totals, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

var destinationOrder = []pricing.NumberType{
	pricing.NumberTypeLandline,
	pricing.NumberTypeMobile,
	pricing.NumberTypeInternational,
}

// Summary aggregates the calls placed in r. Every destination type is
// present in the breakdown even with zero calls; departments appear only
// when they have calls.
func (s *Service) Summary(ctx context.Context, r TimeRange) (Summary, error) {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return Summary{}, apperr.Validation("a time range with from before to is required")
	}
	if s.repo == nil {
		return Summary{}, apperr.Persistence("list calls", errRepositoryNotConfigured)
	}

	rows, err := s.repo.ListCallRows(ctx, r)
	if err != nil {
		return Summary{}, apperr.Persistence("list calls", err)
	}

	out := Summary{Range: r, TotalRevenue: decimal.Zero}
	byDest := map[pricing.NumberType]*Breakdown{}
	for _, t := range destinationOrder {
		byDest[t] = &Breakdown{Key: string(t), Revenue: decimal.Zero}
	}
	byDept := map[string]*Breakdown{}

	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		out.TotalRevenue = out.TotalRevenue.Add(c.Cost)
		if c.FallbackPriced {
			out.FallbackPricedCalls++
		}

		d, ok := byDest[c.DestinationType]
		if !ok {
			d = &Breakdown{Key: string(c.DestinationType), Revenue: decimal.Zero}
			byDest[c.DestinationType] = d
		}
		d.Calls++
		d.Revenue = d.Revenue.Add(c.Cost)

		dept := c.Department
		if dept == "" {
			dept = UnassignedDepartment
		}
		b, ok := byDept[dept]
		if !ok {
			b = &Breakdown{Key: dept, Revenue: decimal.Zero}
			byDept[dept] = b
		}
		b.Calls++
		b.Revenue = b.Revenue.Add(c.Cost)
	}

	out.ByDestinationType = flatten(byDest)
	out.ByDepartment = flatten(byDept)
	return out, nil
}

// flatten orders breakdowns by revenue, highest first, then by key.
func flatten[K comparable](m map[K]*Breakdown) []Breakdown {
	out := make([]Breakdown, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (s *Service) Totals(ctx context.Context) (Totals, error) {
	if s.repo == nil {
		return Totals{}, apperr.Persistence("count totals", errRepositoryNotConfigured)
	}
	t, err := s.repo.CountTotals(ctx)
	if err != nil {
		return Totals{}, apperr.Persistence("count totals", err)
	}
	return t, nil
}
