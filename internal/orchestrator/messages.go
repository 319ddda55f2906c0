package orchestrator

import (
	"fmt"
	"strings"

	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/reconcile"
)

// fieldLabels render candidate field names for caller-facing prompts.
var fieldLabels = map[string]string{
	"cheque_number": "the cheque number",
	"date":          "the cheque date",
	"amount":        "the amount",
	"customer":      "the customer name",
	"vendor":        "the vendor name",
}

func greetingMessage() string {
	return "Upload a cheque image or describe the transaction to begin."
}

func needsInputMessage(missing []string) string {
	labels := make([]string, 0, len(missing))
	for _, m := range missing {
		if label, ok := fieldLabels[m]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, m)
		}
	}
	return fmt.Sprintf("I still need %s. You can reply with e.g. %q or upload a clearer image.",
		strings.Join(labels, ", "), "amount: 250.50")
}

func ambiguousMessage(candidates []reconcile.Match) string {
	var b strings.Builder
	b.WriteString("More than one counterparty matches:\n")
	for _, m := range candidates {
		fmt.Fprintf(&b, "  - %s %q (%s)\n", m.Kind, m.Name, m.ID)
	}
	b.WriteString("Reply with the right one, e.g. \"customer: cus-001\".")
	return b.String()
}

func draftMessage(d *model.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cheque %s dated %s for %s: %s -> %s. Fee %s, profit %s.",
		d.ChequeNumber, d.Date.Format("2006-01-02"), d.Amount.StringFixed(2),
		d.Customer.Name, d.Vendor.Name,
		d.CustomerFee.StringFixed(2), d.Profit.StringFixed(2))
	if d.ReviewRequired {
		b.WriteString(" This vendor is flagged high-risk; the transaction will require review.")
	}
	b.WriteString(" Confirm to commit, or correct any field.")
	return b.String()
}

func committedMessage(txn *model.Transaction) string {
	return fmt.Sprintf("Committed transaction %s with status %s.", txn.ID, txn.Status)
}

func extractionFailedMessage() string {
	return "I couldn't read that; the recognition service is unavailable. " +
		"Your confirmed fields are preserved -- try again or supply values directly."
}
