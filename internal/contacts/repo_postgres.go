package contacts

import (
	"context"
	"errors"

	"telecom-billing/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepo struct {
	db utils.DB
}

func NewPostgresRepo(db utils.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const contactColumns = `id, name, number, department, carrier, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Name, &c.Number, &c.Department, &c.Carrier, &c.CreatedAt)
	return c, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Contact, error) {
	rows, err := r.db.Query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Contact, bool, error) {
	return r.one(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
}

func (r *PostgresRepo) FindByNumber(ctx context.Context, number string) (Contact, bool, error) {
	return r.one(ctx, `SELECT `+contactColumns+` FROM contacts WHERE number = $1`, number)
}

func (r *PostgresRepo) one(ctx context.Context, q string, arg string) (Contact, bool, error) {
	c, err := scanContact(r.db.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, false, nil
		}
		return Contact{}, false, err
	}
	return c, true, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, c Contact) error {
	const q = `
INSERT INTO contacts (id, name, number, department, carrier, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.Exec(ctx, q, c.ID, c.Name, c.Number, c.Department, c.Carrier, c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateNumber
	}
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
