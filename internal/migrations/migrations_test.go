package migrations

import (
	"io"
	"io/fs"
	"strings"
	"testing"
)

func TestSource_ReadsEmbeddedMigrations(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected first version 1, got %d", v)
	}

	r, _, err := src.ReadUp(v)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	defer r.Close()
	body, _ := io.ReadAll(r)
	for _, table := range []string{"users", "contacts", "rates", "pulse_configs", "calls", "billing_periods", "invoices", "audit_events"} {
		if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("expected table %s in initial migration", table)
		}
	}
	if !strings.Contains(string(body), "UNIQUE (year, month)") {
		t.Fatalf("expected billing period uniqueness on (year, month)")
	}
}

func TestEmbedded_UpAndDownPaired(t *testing.T) {
	files, err := fs.Glob(embedded, migrationsDir+"/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, f := range files {
		name := strings.TrimPrefix(f, migrationsDir+"/")
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for k := range ups {
		if !downs[k] {
			t.Fatalf("migration %s has no down file", k)
		}
	}
}

func TestUp_RequiresPool(t *testing.T) {
	if _, err := Up(nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}
