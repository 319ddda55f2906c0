package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorrectionsSingleField(t *testing.T) {
	cand, ok := ParseCorrections("amount: 1200", 3)
	require.True(t, ok)
	require.True(t, cand.Amount.Set)
	assert.Equal(t, "1200", cand.Amount.Value.String())
	assert.Equal(t, 1.0, cand.Amount.Confidence)
	assert.Equal(t, 3, cand.Amount.Turn)
}

func TestParseCorrectionsMultipleSegments(t *testing.T) {
	cand, ok := ParseCorrections("customer: Acme Co; date: 2024-03-01\ncheck number: 4512", 2)
	require.True(t, ok)

	assert.Equal(t, "Acme Co", cand.CustomerHint.Value)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cand.Date.Value)
	assert.Equal(t, "4512", cand.ChequeNumber.Value)
}

func TestParseCorrectionsAliases(t *testing.T) {
	for _, alias := range []string{"cheque", "check", "Cheque Number", "number"} {
		cand, ok := ParseCorrections(alias+": 99", 1)
		require.True(t, ok, alias)
		assert.Equal(t, "99", cand.ChequeNumber.Value, alias)
	}
}

func TestParseCorrectionsRejectsPlainText(t *testing.T) {
	for _, text := range []string{
		"here is the cheque from this morning",
		"thanks!",
		"weather: dreadful",
	} {
		_, ok := ParseCorrections(text, 1)
		assert.False(t, ok, text)
	}
}

func TestParseCorrectionsSkipsBadValues(t *testing.T) {
	cand, ok := ParseCorrections("amount: minus forty; customer: Acme Co", 1)
	require.True(t, ok, "the valid segment should still apply")
	assert.False(t, cand.Amount.Set)
	assert.Equal(t, "Acme Co", cand.CustomerHint.Value)
}

func TestApplyFieldCorrections(t *testing.T) {
	cand := ApplyFieldCorrections(map[string]string{
		"vendor":  "Quickline Exchange",
		"amount":  "350.25",
		"unknown": "ignored",
	}, 4)

	assert.Equal(t, "Quickline Exchange", cand.VendorHint.Value)
	assert.Equal(t, "350.25", cand.Amount.Value.String())
	assert.Equal(t, 1.0, cand.Amount.Confidence)
	assert.False(t, cand.ChequeNumber.Set)
}
