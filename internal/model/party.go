package model

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Customer is a counterparty that brings cheques in. The pipeline only reads
// customers; they are owned by the external CRUD layer.
type Customer struct {
	ID         string
	Name       string
	FeePercent decimal.Decimal
	FeeMinimum decimal.Decimal
}

// FeeFor applies the customer's fee schedule to a cheque amount.
func (c *Customer) FeeFor(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(c.FeePercent).Div(oneHundred).Round(2)
	if fee.LessThan(c.FeeMinimum) {
		return c.FeeMinimum
	}
	return fee
}

// Vendor is the counterparty a cheque is cleared through.
type Vendor struct {
	ID          string
	Name        string
	CostPercent decimal.Decimal
	HighRisk    bool
}

// CostFor returns the vendor's cost basis for clearing a cheque amount.
func (v *Vendor) CostFor(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(v.CostPercent).Div(oneHundred).Round(2)
}
