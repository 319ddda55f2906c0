package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hsaleh/chequeflow/internal/model"
)

// dateFormats are tried in order when parsing a date value. The prompt asks
// for ISO; the rest cover common cheque date renderings the model slips into.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2 January 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

type rawField struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

type rawResponse struct {
	ChequeNumber *rawField `json:"cheque_number"`
	Date         *rawField `json:"date"`
	Amount       *rawField `json:"amount"`
	Customer     *rawField `json:"customer"`
	Vendor       *rawField `json:"vendor"`
}

// parseCandidate validates the untyped recognition response field by field.
// Fields that fail type or range checks are dropped, not fatal: partial
// success is a normal outcome. Only a response that is not JSON at all is an
// error.
func parseCandidate(raw string, turn int) (model.Candidate, error) {
	clean := cleanModelJSON(raw)

	var resp rawResponse
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return model.Candidate{}, fmt.Errorf("unparseable recognition response: %w", err)
	}

	var cand model.Candidate

	if s, conf, ok := stringValue(resp.ChequeNumber); ok {
		cand.ChequeNumber = model.StringField{Value: s, Confidence: conf, Turn: turn, Set: true}
	}
	if s, conf, ok := stringValue(resp.Date); ok {
		if d, err := parseDate(s); err == nil {
			cand.Date = model.DateField{Value: d, Confidence: conf, Turn: turn, Set: true}
		} else {
			slog.Debug("Dropping unparsable date field", "value", s)
		}
	}
	if amt, conf, ok := amountValue(resp.Amount); ok {
		cand.Amount = model.AmountField{Value: amt, Confidence: conf, Turn: turn, Set: true}
	}
	if s, conf, ok := stringValue(resp.Customer); ok {
		cand.CustomerHint = model.StringField{Value: s, Confidence: conf, Turn: turn, Set: true}
	}
	if s, conf, ok := stringValue(resp.Vendor); ok {
		cand.VendorHint = model.StringField{Value: s, Confidence: conf, Turn: turn, Set: true}
	}

	return cand, nil
}

func stringValue(f *rawField) (string, float64, bool) {
	if f == nil || f.Value == nil {
		return "", 0, false
	}
	s, ok := f.Value.(string)
	if !ok {
		return "", 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, false
	}
	return s, clampConfidence(f.Confidence), true
}

func amountValue(f *rawField) (decimal.Decimal, float64, bool) {
	if f == nil || f.Value == nil {
		return decimal.Zero, 0, false
	}

	var amt decimal.Decimal
	switch v := f.Value.(type) {
	case float64:
		amt = decimal.NewFromFloat(v)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(v, ",", "")))
		if err != nil {
			slog.Debug("Dropping unparsable amount field", "value", v)
			return decimal.Zero, 0, false
		}
		amt = parsed
	default:
		return decimal.Zero, 0, false
	}

	if !amt.IsPositive() {
		slog.Debug("Dropping non-positive amount field", "value", amt)
		return decimal.Zero, 0, false
	}
	return amt.Round(2), clampConfidence(f.Confidence), true
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// cleanModelJSON strips Markdown fences and stray text the model sometimes
// wraps around its output despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	// Trim anything before the first brace and after the last.
	if start := strings.Index(s, "{"); start > 0 {
		s = s[start:]
	}
	if end := strings.LastIndex(s, "}"); end != -1 && end < len(s)-1 {
		s = s[:end+1]
	}

	return strings.TrimSpace(s)
}
