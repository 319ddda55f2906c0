package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusLattice(t *testing.T) {
	tests := []struct {
		name    string
		from    TransactionStatus
		to      TransactionStatus
		allowed bool
	}{
		{"pending to completed", StatusPending, StatusCompleted, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to bounced", StatusPending, StatusBounced, true},
		{"pending to pending", StatusPending, StatusPending, false},
		{"completed is terminal", StatusCompleted, StatusPending, false},
		{"completed to bounced", StatusCompleted, StatusBounced, false},
		{"cancelled is terminal", StatusCancelled, StatusCompleted, false},
		{"bounced is terminal", StatusBounced, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusBounced.Terminal())
	assert.False(t, TransactionStatus("voided").Terminal(), "unknown status is not terminal")
}

func TestProfitFor(t *testing.T) {
	fee := decimal.RequireFromString("25.00")
	cost := decimal.RequireFromString("10.00")

	tests := []struct {
		name   string
		status TransactionStatus
		want   string
	}{
		{"pending earns fee minus cost", StatusPending, "15"},
		{"completed earns fee minus cost", StatusCompleted, "15"},
		{"bounced refunds fee, cost is sunk", StatusBounced, "-10"},
		{"cancelled reverses both legs", StatusCancelled, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProfitFor(tt.status, fee, cost)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCustomerFeeSchedule(t *testing.T) {
	c := Customer{
		FeePercent: decimal.RequireFromString("2.5"),
		FeeMinimum: decimal.RequireFromString("5"),
	}

	// 2.5% of 1000 = 25.
	assert.Equal(t, "25", c.FeeFor(decimal.RequireFromString("1000")).String())
	// 2.5% of 100 = 2.50, below the minimum.
	assert.Equal(t, "5", c.FeeFor(decimal.RequireFromString("100")).String())
}

func TestVendorCostBasis(t *testing.T) {
	v := Vendor{CostPercent: decimal.RequireFromString("1.25")}
	assert.Equal(t, "12.5", v.CostFor(decimal.RequireFromString("1000")).String())
}
