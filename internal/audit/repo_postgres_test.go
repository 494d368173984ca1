package audit

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO audit_events`).
		WithArgs("e1", "invoices_generated", "u1", "admin", "", "p1", "", "invoices regenerated", "{}", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPostgresRepo(mock)
	err = repo.Append(context.Background(), Event{
		ID:          "e1",
		Type:        EventTypeInvoicesGenerated,
		ActorUserID: "u1",
		ActorRole:   "admin",
		PeriodID:    "p1",
		Message:     "invoices regenerated",
		Metadata:    "{}",
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
