package pricing

import (
	"context"
	"errors"
	"fmt"

	"telecom-billing/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PostgresRepo stores rates and pulse configuration.
//
// NOTE: Tables are created by internal/migrations:
// - rates
// - pulse_configs (append-only; the newest row is active)
//
// Money columns are numeric and cross the driver as text so no precision
// is lost in float conversion.
type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const rateColumns = `id, origin_type, destination_type, origin_carrier, destination_carrier,
       same_region, cost_per_minute::text, description, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRate(row rowScanner) (Rate, error) {
	var (
		r           Rate
		origin      string
		destination string
		cost        string
	)
	if err := row.Scan(
		&r.ID,
		&origin,
		&destination,
		&r.OriginCarrier,
		&r.DestinationCarrier,
		&r.SameRegion,
		&cost,
		&r.Description,
		&r.CreatedAt,
	); err != nil {
		return Rate{}, err
	}
	d, err := decimal.NewFromString(cost)
	if err != nil {
		return Rate{}, fmt.Errorf("rate %s: cost_per_minute: %w", r.ID, err)
	}
	r.OriginType = NumberType(origin)
	r.DestinationType = NumberType(destination)
	r.CostPerMinute = d
	return r, nil
}

func (r *PostgresRepo) LatestPulseConfig(ctx context.Context) (PulseConfig, bool, error) {
	const q = `
SELECT id, pulse_duration_seconds, round_up, created_at
FROM pulse_configs
ORDER BY created_at DESC, id DESC
LIMIT 1
`
	var c PulseConfig
	err := r.db.QueryRow(ctx, q).Scan(&c.ID, &c.PulseDurationSeconds, &c.RoundUp, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PulseConfig{}, false, nil
		}
		return PulseConfig{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) FindRate(ctx context.Context, origin, destination NumberType) (Rate, bool, error) {
	q := `
SELECT ` + rateColumns + `
FROM rates
WHERE origin_type = $1 AND destination_type = $2
ORDER BY created_at, id
LIMIT 1
`
	rt, err := scanRate(r.db.QueryRow(ctx, q, string(origin), string(destination)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, false, nil
		}
		return Rate{}, false, err
	}
	return rt, true, nil
}

func (r *PostgresRepo) ListRates(ctx context.Context) ([]Rate, error) {
	q := `
SELECT ` + rateColumns + `
FROM rates
ORDER BY origin_type, destination_type, created_at, id
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		rt, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetRate(ctx context.Context, id string) (Rate, bool, error) {
	q := `
SELECT ` + rateColumns + `
FROM rates
WHERE id = $1
`
	rt, err := scanRate(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, false, nil
		}
		return Rate{}, false, err
	}
	return rt, true, nil
}

func (r *PostgresRepo) FindSimilarRate(ctx context.Context, c Rate) (Rate, bool, error) {
	q := `
SELECT ` + rateColumns + `
FROM rates
WHERE origin_type = $1 AND destination_type = $2
  AND (origin_carrier = $3 OR origin_carrier IS NULL)
  AND (destination_carrier = $4 OR destination_carrier IS NULL)
  AND same_region = $5
ORDER BY created_at, id
LIMIT 1
`
	rt, err := scanRate(r.db.QueryRow(ctx, q,
		string(c.OriginType),
		string(c.DestinationType),
		c.OriginCarrier,
		c.DestinationCarrier,
		c.SameRegion,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, false, nil
		}
		return Rate{}, false, err
	}
	return rt, true, nil
}

func (r *PostgresRepo) InsertRate(ctx context.Context, rt Rate) error {
	const q = `
INSERT INTO rates (
  id, origin_type, destination_type, origin_carrier, destination_carrier,
  same_region, cost_per_minute, description, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7::numeric,$8,$9
)
`
	_, err := r.db.Exec(ctx, q,
		rt.ID,
		string(rt.OriginType),
		string(rt.DestinationType),
		rt.OriginCarrier,
		rt.DestinationCarrier,
		rt.SameRegion,
		rt.CostPerMinute.String(),
		rt.Description,
		rt.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) UpdateRate(ctx context.Context, rt Rate) (bool, error) {
	const q = `
UPDATE rates
SET origin_type = $2, destination_type = $3, origin_carrier = $4, destination_carrier = $5,
    same_region = $6, cost_per_minute = $7::numeric, description = $8
WHERE id = $1
`
	tag, err := r.db.Exec(ctx, q,
		rt.ID,
		string(rt.OriginType),
		string(rt.DestinationType),
		rt.OriginCarrier,
		rt.DestinationCarrier,
		rt.SameRegion,
		rt.CostPerMinute.String(),
		rt.Description,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) DeleteRate(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM rates WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) InsertPulseConfig(ctx context.Context, c PulseConfig) (PulseConfig, error) {
	const q = `
INSERT INTO pulse_configs (pulse_duration_seconds, round_up, created_at)
VALUES ($1,$2,$3)
RETURNING id, created_at
`
	if err := r.db.QueryRow(ctx, q, c.PulseDurationSeconds, c.RoundUp, c.CreatedAt).Scan(&c.ID, &c.CreatedAt); err != nil {
		return PulseConfig{}, err
	}
	return c, nil
}
