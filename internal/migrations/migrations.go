// Package migrations embeds the Postgres schema and applies it with
// golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed sql/*.sql
var embedded embed.FS

const migrationsDir = "sql"

// Source returns the embedded migrations as a golang-migrate source.
func Source() (source.Driver, error) {
	sub, err := fs.Sub(embedded, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return src, nil
}

// Status is the schema version after a run.
type Status struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Up applies every pending migration against the pool.
func Up(pool *pgxpool.Pool) (Status, error) {
	if pool == nil {
		return Status{}, errors.New("migration database handle is required")
	}
	// The *sql.DB borrows connections from the pool; closing it leaves the pool open.
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return up(db)
}

func up(db *sql.DB) (Status, error) {
	src, err := Source()
	if err != nil {
		return Status{}, err
	}
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return Status{}, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return Status{}, fmt.Errorf("create migrator: %w", err)
	}

	var st Status
	upErr := m.Up()
	switch {
	case upErr == nil:
		st.Changed = true
	case errors.Is(upErr, migrate.ErrNoChange):
	default:
		return Status{}, fmt.Errorf("apply migrations: %w", upErr)
	}

	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	st.Version, st.Dirty = v, dirty
	return st, nil
}
