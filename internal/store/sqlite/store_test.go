package sqlite

import (
	"path/filepath"
	"testing"

	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		return s
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
