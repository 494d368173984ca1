package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telecom-billing/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PostgresRepo stores periods and invoices.
//
// NOTE: Tables are created by internal/migrations:
// - billing_periods, UNIQUE (year, month)
// - invoices, replaced per period inside one transaction
// - calls (read-only here)
type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const periodColumns = `id, year, month, name, start_date, end_date, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (Period, error) {
	var (
		p      Period
		month  int
		status string
	)
	if err := row.Scan(&p.ID, &p.Year, &month, &p.Name, &p.StartDate, &p.EndDate, &status, &p.CreatedAt); err != nil {
		return Period{}, err
	}
	p.Month = time.Month(month)
	p.Status = PeriodStatus(status)
	return p, nil
}

func (r *PostgresRepo) onePeriod(ctx context.Context, q string, args ...any) (Period, bool, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, false, nil
		}
		return Period{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepo) FindPeriod(ctx context.Context, year int, month time.Month) (Period, bool, error) {
	return r.onePeriod(ctx, `SELECT `+periodColumns+` FROM billing_periods WHERE year = $1 AND month = $2`, year, int(month))
}

func (r *PostgresRepo) GetPeriod(ctx context.Context, id string) (Period, bool, error) {
	return r.onePeriod(ctx, `SELECT `+periodColumns+` FROM billing_periods WHERE id = $1`, id)
}

func (r *PostgresRepo) CreatePeriod(ctx context.Context, p Period) error {
	const q = `
INSERT INTO billing_periods (id, year, month, name, start_date, end_date, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (year, month) DO NOTHING
`
	_, err := r.db.Exec(ctx, q, p.ID, p.Year, int(p.Month), p.Name, p.StartDate, p.EndDate, string(p.Status), p.CreatedAt)
	return err
}

func (r *PostgresRepo) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM billing_periods ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func lockPeriod(ctx context.Context, tx pgx.Tx, periodID string) error {
	// Lock the period row to serialize concurrent invoicing runs per period.
	const q = `
SELECT id
FROM billing_periods
WHERE id = $1
FOR UPDATE
`
	var id string
	if err := tx.QueryRow(ctx, q, periodID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPeriodNotFound
		}
		return err
	}
	return nil
}

type contactTotal struct {
	contactID string
	total     decimal.Decimal
}

func sumCallsByContact(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]contactTotal, error) {
	const q = `
SELECT origin_contact_id, SUM(cost_total)::text
FROM calls
WHERE created_at >= $1 AND created_at < $2
GROUP BY origin_contact_id
HAVING SUM(cost_total) > 0
ORDER BY origin_contact_id
`
	rows, err := tx.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contactTotal
	for rows.Next() {
		var (
			ct  contactTotal
			sum string
		)
		if err := rows.Scan(&ct.contactID, &sum); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("contact %s: sum: %w", ct.contactID, err)
		}
		ct.total = d
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ReplaceInvoices(ctx context.Context, periodID string, from, to, generatedAt time.Time) ([]Invoice, error) {
	var out []Invoice
	err := utils.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockPeriod(ctx, tx, periodID); err != nil {
			return err
		}

		totals, err := sumCallsByContact(ctx, tx, from, to)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM invoices WHERE period_id = $1`, periodID); err != nil {
			return err
		}

		const ins = `
INSERT INTO invoices (id, contact_id, period_id, total, generated_at, status)
VALUES ($1,$2,$3,$4::numeric,$5,$6)
`
		out = make([]Invoice, 0, len(totals))
		for _, ct := range totals {
			inv := Invoice{
				ID:          uuid.NewString(),
				ContactID:   ct.contactID,
				PeriodID:    periodID,
				Total:       ct.total,
				GeneratedAt: generatedAt,
				Status:      InvoiceStatusPending,
			}
			if _, err := tx.Exec(ctx, ins, inv.ID, inv.ContactID, inv.PeriodID, inv.Total.String(), inv.GeneratedAt, string(inv.Status)); err != nil {
				return err
			}
			out = append(out, inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepo) ListInvoices(ctx context.Context, periodID string) ([]Invoice, error) {
	const q = `
SELECT id, contact_id, period_id, total::text, generated_at, status
FROM invoices
WHERE period_id = $1
ORDER BY contact_id
`
	rows, err := r.db.Query(ctx, q, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var (
			inv    Invoice
			total  string
			status string
		)
		if err := rows.Scan(&inv.ID, &inv.ContactID, &inv.PeriodID, &total, &inv.GeneratedAt, &status); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: total: %w", inv.ID, err)
		}
		inv.Total = d
		inv.Status = InvoiceStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}
