// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a committed transaction.
type TransactionStatus string

// Transaction status constants. These values are persisted and are the
// contract reporting and list views depend on; do not rename.
const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusBounced   TransactionStatus = "bounced"
)

// statusTransitions describes the monotone status lattice. Terminal states
// have no outgoing edges.
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending: {StatusCompleted, StatusCancelled, StatusBounced},
}

// Valid reports whether the status is a known enumeration value.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusBounced:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s TransactionStatus) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

// CanTransitionTo reports whether the lattice permits moving to next.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transaction is a committed ledger entry. Profit is always derived from the
// stored inputs via ProfitFor; it is recomputed on every status change.
type Transaction struct {
	Date           time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ID             string
	ChequeNumber   string
	CustomerID     string
	VendorID       string
	Status         TransactionStatus
	Amount         decimal.Decimal
	CustomerFee    decimal.Decimal
	VendorCost     decimal.Decimal
	Profit         decimal.Decimal
	ReviewRequired bool
}

// ProfitFor derives profit from a transaction's stored inputs.
//
// While the cheque is live the customer fee is earned and the vendor cost is
// paid. A bounced cheque refunds the fee but the clearing cost is already
// sunk. A cancelled transaction reverses both legs.
func ProfitFor(status TransactionStatus, customerFee, vendorCost decimal.Decimal) decimal.Decimal {
	switch status {
	case StatusBounced:
		return vendorCost.Neg()
	case StatusCancelled:
		return decimal.Zero
	default:
		return customerFee.Sub(vendorCost)
	}
}

// Draft is a fully reconciled transaction awaiting explicit confirmation.
type Draft struct {
	Date           time.Time
	Customer       *Customer
	Vendor         *Vendor
	ChequeNumber   string
	Amount         decimal.Decimal
	CustomerFee    decimal.Decimal
	VendorCost     decimal.Decimal
	Profit         decimal.Decimal
	ReviewRequired bool
}
