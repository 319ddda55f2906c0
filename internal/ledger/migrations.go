package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS customers (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					fee_percent TEXT NOT NULL,
					fee_minimum TEXT NOT NULL DEFAULT '0',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS vendors (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					cost_percent TEXT NOT NULL,
					high_risk INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					cheque_number TEXT NOT NULL,
					date DATETIME NOT NULL,
					amount TEXT NOT NULL,
					customer_id TEXT NOT NULL REFERENCES customers(id),
					vendor_id TEXT NOT NULL REFERENCES vendors(id),
					customer_fee TEXT NOT NULL,
					vendor_cost TEXT NOT NULL,
					profit TEXT NOT NULL,
					status TEXT NOT NULL,
					review_required INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(cheque_number, customer_id)
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_status ON transactions(status)`,
				`CREATE INDEX idx_transactions_customer ON transactions(customer_id)`,

				`CREATE TABLE IF NOT EXISTS customer_aggregates (
					customer_id TEXT PRIMARY KEY REFERENCES customers(id),
					total_cleared TEXT NOT NULL DEFAULT '0',
					outstanding_pending TEXT NOT NULL DEFAULT '0',
					total_profit TEXT NOT NULL DEFAULT '0',
					transaction_count INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed counterparty directory",
		Up: func(tx *sql.Tx) error {
			// The CRUD layer that owns these records lives outside this
			// service; a small seed set keeps a fresh database usable.
			queries := []string{
				`INSERT OR IGNORE INTO customers (id, name, fee_percent, fee_minimum) VALUES
					('cus-001', 'Acme Co', '2.5', '5'),
					('cus-002', 'J. Smith', '3', '2'),
					('cus-003', 'Globex Trading', '2', '10')`,
				`INSERT OR IGNORE INTO vendors (id, name, cost_percent, high_risk) VALUES
					('ven-001', 'First National Bank', '1', 0),
					('ven-002', 'Harbor Clearing House', '1.25', 0),
					('ven-003', 'Quickline Exchange', '0.75', 1)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteLedger) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
		current = m.Version
	}

	if current != ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d does not match expected %d", current, ExpectedSchemaVersion)
	}
	return nil
}
