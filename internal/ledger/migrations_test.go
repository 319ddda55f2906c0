package ledger

import (
	"context"
	"testing"
)

func TestMigrateSetsSchemaVersion(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()

	var version int
	if err := ledger.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", ExpectedSchemaVersion, version)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	ledger, cleanup := createTestLedger(t)
	defer cleanup()
	ctx := context.Background()

	if err := ledger.Migrate(ctx); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	customers, err := ledger.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers failed: %v", err)
	}
	if len(customers) != 3 {
		t.Errorf("Expected 3 seeded customers, got %d", len(customers))
	}
}

func TestMigrationsAreOrdered(t *testing.T) {
	last := 0
	for _, m := range migrations {
		if m.Version <= last {
			t.Errorf("Migration %d out of order after %d", m.Version, last)
		}
		last = m.Version
	}
}
