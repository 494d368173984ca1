package reporting

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresRepo_ListCallRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(`LEFT JOIN contacts ct ON ct.id = c.origin_contact_id`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"id", "destination_type", "department", "duration_seconds", "cost_total", "fallback_priced", "created_at"}).
			AddRow("k1", "mobile", "Sales", 120, "0.1600", false, from).
			AddRow("k2", "international", "", 60, "0.5000", true, from))

	out, err := NewPostgresRepo(mock).ListCallRows(context.Background(), TimeRange{From: from, To: to})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 || out[0].Department != "Sales" || !out[1].FallbackPriced || out[1].Cost.String() != "0.5" {
		t.Fatalf("unexpected rows: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepo_CountTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT \(SELECT COUNT\(\*\) FROM contacts\)`).
		WillReturnRows(pgxmock.NewRows([]string{"contacts", "calls", "invoices"}).AddRow(4, 10, 3))

	got, err := NewPostgresRepo(mock).CountTotals(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != (Totals{Contacts: 4, Calls: 10, Invoices: 3}) {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
