package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateMergeFillsEmptyFields(t *testing.T) {
	var cand Candidate
	require.True(t, cand.Empty())

	cand.Merge(Candidate{
		ChequeNumber: StringField{Value: "4512", Confidence: 0.9, Turn: 1, Set: true},
		Amount:       AmountField{Value: decimal.RequireFromString("1000.00"), Confidence: 0.8, Turn: 1, Set: true},
	})

	assert.False(t, cand.Empty())
	assert.Equal(t, "4512", cand.ChequeNumber.Value)
	assert.True(t, cand.Amount.Set)
	assert.False(t, cand.Date.Set)
}

func TestCandidateMergeNeverRegresses(t *testing.T) {
	cand := Candidate{
		Amount: AmountField{Value: decimal.RequireFromString("1000.00"), Confidence: 0.9, Turn: 1, Set: true},
	}

	lower := Candidate{
		Amount: AmountField{Value: decimal.RequireFromString("10.00"), Confidence: 0.4, Turn: 5, Set: true},
	}

	// Re-running the same lower-confidence merge any number of times must
	// not change the field.
	for i := 0; i < 3; i++ {
		cand.Merge(lower)
		assert.Equal(t, "1000", cand.Amount.Value.String())
		assert.Equal(t, 0.9, cand.Amount.Confidence)
		assert.Equal(t, 1, cand.Amount.Turn)
	}
}

func TestCandidateMergeHigherConfidenceWins(t *testing.T) {
	cand := Candidate{
		CustomerHint: StringField{Value: "Acme C", Confidence: 0.6, Turn: 1, Set: true},
	}

	cand.Merge(Candidate{
		CustomerHint: StringField{Value: "Acme Co", Confidence: 0.95, Turn: 2, Set: true},
	})

	assert.Equal(t, "Acme Co", cand.CustomerHint.Value)
}

func TestCandidateMergeTiePrefersRecentTurn(t *testing.T) {
	cand := Candidate{
		ChequeNumber: StringField{Value: "1111", Confidence: 0.7, Turn: 1, Set: true},
	}

	cand.Merge(Candidate{
		ChequeNumber: StringField{Value: "2222", Confidence: 0.7, Turn: 3, Set: true},
	})

	assert.Equal(t, "2222", cand.ChequeNumber.Value)
	assert.Equal(t, 3, cand.ChequeNumber.Turn)
}

func TestCandidateMergeCorrectionAlwaysWins(t *testing.T) {
	cand := Candidate{
		Date: DateField{
			Value:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Confidence: 0.95, Turn: 1, Set: true,
		},
	}

	corrected := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	cand.Merge(Candidate{
		Date: DateField{Value: corrected, Confidence: 1.0, Turn: 2, Set: true},
	})

	assert.Equal(t, corrected, cand.Date.Value)
}

func TestCandidateMergeIgnoresUnsetSource(t *testing.T) {
	cand := Candidate{
		VendorHint: StringField{Value: "First National", Confidence: 0.8, Turn: 1, Set: true},
	}

	cand.Merge(Candidate{})

	assert.Equal(t, "First National", cand.VendorHint.Value)
}
