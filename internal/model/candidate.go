package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StringField is a candidate string value with extraction provenance.
type StringField struct {
	Value      string
	Confidence float64
	Turn       int
	Set        bool
}

// DateField is a candidate calendar date with extraction provenance.
type DateField struct {
	Value      time.Time
	Confidence float64
	Turn       int
	Set        bool
}

// AmountField is a candidate positive amount with extraction provenance.
type AmountField struct {
	Value      decimal.Decimal
	Confidence float64
	Turn       int
	Set        bool
}

// Candidate is the partially filled transaction a session accumulates across
// turns. Fields carry per-field confidence and the turn that produced them.
type Candidate struct {
	ChequeNumber StringField
	Date         DateField
	Amount       AmountField
	CustomerHint StringField
	VendorHint   StringField
}

// wins reports whether an incoming read (confidence, turn) may replace an
// existing field cell. A set field is never overwritten by a lower-confidence
// later read; ties on confidence prefer the most recent turn.
func wins(dstSet bool, dstConf float64, dstTurn int, srcConf float64, srcTurn int) bool {
	if !dstSet {
		return true
	}
	if srcConf > dstConf {
		return true
	}
	return srcConf == dstConf && srcTurn >= dstTurn
}

// Merge folds src into the candidate field by field, applying the
// no-regression overwrite rule. Caller corrections arrive with confidence 1.0
// and a later turn index, so they always win.
func (c *Candidate) Merge(src Candidate) {
	if src.ChequeNumber.Set && wins(c.ChequeNumber.Set, c.ChequeNumber.Confidence, c.ChequeNumber.Turn, src.ChequeNumber.Confidence, src.ChequeNumber.Turn) {
		c.ChequeNumber = src.ChequeNumber
	}
	if src.Date.Set && wins(c.Date.Set, c.Date.Confidence, c.Date.Turn, src.Date.Confidence, src.Date.Turn) {
		c.Date = src.Date
	}
	if src.Amount.Set && wins(c.Amount.Set, c.Amount.Confidence, c.Amount.Turn, src.Amount.Confidence, src.Amount.Turn) {
		c.Amount = src.Amount
	}
	if src.CustomerHint.Set && wins(c.CustomerHint.Set, c.CustomerHint.Confidence, c.CustomerHint.Turn, src.CustomerHint.Confidence, src.CustomerHint.Turn) {
		c.CustomerHint = src.CustomerHint
	}
	if src.VendorHint.Set && wins(c.VendorHint.Set, c.VendorHint.Confidence, c.VendorHint.Turn, src.VendorHint.Confidence, src.VendorHint.Turn) {
		c.VendorHint = src.VendorHint
	}
}

// Empty reports whether no field has been set yet.
func (c Candidate) Empty() bool {
	return !c.ChequeNumber.Set && !c.Date.Set && !c.Amount.Set &&
		!c.CustomerHint.Set && !c.VendorHint.Set
}
