package extract

import (
	"strings"

	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/shopspring/decimal"
)

// fieldAliases maps the names callers use in "field: value" corrections onto
// candidate fields.
var fieldAliases = map[string]string{
	"cheque":        "cheque_number",
	"check":         "cheque_number",
	"cheque number": "cheque_number",
	"check number":  "cheque_number",
	"cheque_number": "cheque_number",
	"number":        "cheque_number",
	"date":          "date",
	"amount":        "amount",
	"customer":      "customer",
	"vendor":        "vendor",
}

// ParseCorrections interprets caller text of the form "field: value" (one per
// line or comma-separated) as explicit corrections. Corrections carry
// confidence 1.0 so they always win the merge. Returns false when the text is
// not correction-shaped and should go to the recognizer instead.
func ParseCorrections(text string, turn int) (model.Candidate, bool) {
	var cand model.Candidate
	matched := false

	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ';' || r == ','
	})

	for _, seg := range segments {
		key, value, found := strings.Cut(seg, ":")
		if !found {
			continue
		}
		field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		if applyCorrection(&cand, field, value, turn) {
			matched = true
		}
	}

	return cand, matched
}

// ApplyFieldCorrections applies a map of field name to value, as supplied on
// the confirm endpoint. Unknown fields and unparsable values are ignored.
func ApplyFieldCorrections(corrections map[string]string, turn int) model.Candidate {
	var cand model.Candidate
	for key, value := range corrections {
		field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		applyCorrection(&cand, field, strings.TrimSpace(value), turn)
	}
	return cand
}

func applyCorrection(cand *model.Candidate, field, value string, turn int) bool {
	switch field {
	case "cheque_number":
		cand.ChequeNumber = model.StringField{Value: value, Confidence: 1.0, Turn: turn, Set: true}
	case "date":
		d, err := parseDate(value)
		if err != nil {
			return false
		}
		cand.Date = model.DateField{Value: d, Confidence: 1.0, Turn: turn, Set: true}
	case "amount":
		amt, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
		if err != nil || !amt.IsPositive() {
			return false
		}
		cand.Amount = model.AmountField{Value: amt.Round(2), Confidence: 1.0, Turn: turn, Set: true}
	case "customer":
		cand.CustomerHint = model.StringField{Value: value, Confidence: 1.0, Turn: turn, Set: true}
	case "vendor":
		cand.VendorHint = model.StringField{Value: value, Confidence: 1.0, Turn: turn, Set: true}
	default:
		return false
	}
	return true
}
