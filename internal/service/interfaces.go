// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hsaleh/chequeflow/internal/model"
)

// TransactionFilter defines filtering options for ledger queries.
type TransactionFilter struct {
	Status     *model.TransactionStatus
	CustomerID string
	Limit      int
	Offset     int
}

// CustomerAggregates holds the per-customer totals recomputed on every commit
// and status change.
type CustomerAggregates struct {
	UpdatedAt          time.Time
	CustomerID         string
	TotalCleared       decimal.Decimal
	OutstandingPending decimal.Decimal
	TotalProfit        decimal.Decimal
	TransactionCount   int
}

// Ledger is the persistence boundary for committed transactions.
type Ledger interface {
	// Commit atomically persists a confirmed draft and recomputes the
	// owning customer's aggregates. A duplicate cheque for the same
	// customer returns the already-committed transaction.
	Commit(ctx context.Context, draft *model.Draft) (*model.Transaction, error)

	// Transition moves a transaction along the status lattice, recomputing
	// profit and aggregates in the same database transaction.
	Transition(ctx context.Context, id string, next model.TransactionStatus) (*model.Transaction, error)

	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetCustomerAggregates(ctx context.Context, customerID string) (*CustomerAggregates, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Directory is the read-only view of the externally owned counterparty
// records the pipeline reconciles against.
type Directory interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	ListVendors(ctx context.Context) ([]model.Vendor, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	GetVendor(ctx context.Context, id string) (*model.Vendor, error)
}

// Recognizer is the opaque external recognition capability. It returns the
// raw, untyped response body; validation happens at the extraction boundary.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
