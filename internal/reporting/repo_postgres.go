package reporting

import (
	"context"
	"fmt"

	"telecom-billing/internal/pricing"
	"telecom-billing/pkg/utils"

	"github.com/shopspring/decimal"
)

type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListCallRows(ctx context.Context, tr TimeRange) ([]CallRow, error) {
	const q = `
SELECT c.id, c.destination_type, COALESCE(ct.department, ''), c.duration_seconds,
       c.cost_total::text, c.fallback_priced, c.created_at
FROM calls c
LEFT JOIN contacts ct ON ct.id = c.origin_contact_id
WHERE c.created_at >= $1 AND c.created_at < $2
ORDER BY c.created_at, c.id
`
	rows, err := r.db.Query(ctx, q, tr.From, tr.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRow
	for rows.Next() {
		var (
			row      CallRow
			destType string
			cost     string
		)
		if err := rows.Scan(&row.CallID, &destType, &row.Department, &row.DurationSeconds, &cost, &row.FallbackPriced, &row.CreatedAt); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("call %s: cost: %w", row.CallID, err)
		}
		row.Cost = d
		row.DestinationType = pricing.NumberType(destType)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountTotals(ctx context.Context) (Totals, error) {
	const q = `
SELECT (SELECT COUNT(*) FROM contacts),
       (SELECT COUNT(*) FROM calls),
       (SELECT COUNT(*) FROM invoices)
`
	var t Totals
	if err := r.db.QueryRow(ctx, q).Scan(&t.Contacts, &t.Calls, &t.Invoices); err != nil {
		return Totals{}, err
	}
	return t, nil
}
