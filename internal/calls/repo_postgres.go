package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telecom-billing/internal/pricing"
	"telecom-billing/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// PostgresRepo stores calls.
//
// NOTE: idempotency_key carries a partial unique index
// (WHERE idempotency_key IS NOT NULL); calls without a key never collide.
type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const callColumns = `id, origin_contact_id, destination_number, destination_type,
       duration_seconds, pulses, cost_total::text, fallback_priced,
       COALESCE(idempotency_key, ''), created_at`

func (r *PostgresRepo) Insert(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (
  id, origin_contact_id, destination_number, destination_type,
  duration_seconds, pulses, cost_total, fallback_priced, idempotency_key, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7::numeric,$8,$9,$10
)
`
	var key *string
	if c.IdempotencyKey != "" {
		key = &c.IdempotencyKey
	}
	_, err := r.db.Exec(ctx, q,
		c.ID,
		c.OriginContactID,
		c.DestinationNumber,
		string(c.DestinationType),
		c.DurationSeconds,
		c.Pulses,
		c.CostTotal.String(),
		c.FallbackPriced,
		key,
		c.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "calls_idempotency_key_idx" {
		return ErrDuplicateKey
	}
	return err
}

func (r *PostgresRepo) FindByIdempotencyKey(ctx context.Context, key string) (Call, bool, error) {
	c, err := scanCall(r.db.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE idempotency_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Call, error) {
	var (
		where []string
		args  []any
	)
	if f.ContactID != "" {
		args = append(args, f.ContactID)
		where = append(where, fmt.Sprintf("origin_contact_id = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	q := `
SELECT ` + callColumns + `
FROM calls`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var (
		c       Call
		destTyp string
		cost    string
	)
	if err := row.Scan(
		&c.ID,
		&c.OriginContactID,
		&c.DestinationNumber,
		&destTyp,
		&c.DurationSeconds,
		&c.Pulses,
		&cost,
		&c.FallbackPriced,
		&c.IdempotencyKey,
		&c.CreatedAt,
	); err != nil {
		return Call{}, err
	}
	d, err := decimal.NewFromString(cost)
	if err != nil {
		return Call{}, fmt.Errorf("call %s: cost_total: %w", c.ID, err)
	}
	c.DestinationType = pricing.NumberType(destTyp)
	c.CostTotal = d
	return c, nil
}
