package extract

import (
	"strings"

	"github.com/hsaleh/chequeflow/internal/model"
)

const basePrompt = `You are a cheque reading assistant for a cheque cashing desk.

Task:
- Read the attached cheque image and/or the caller's instruction.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).
- Output a single JSON object.

The object must have these fields, each an object with "value" and "confidence":
- "cheque_number": string or null
- "date": string, ISO format "YYYY-MM-DD", or null
- "amount": positive number, or null
- "customer": string, the name of the party cashing the cheque, or null
- "vendor": string, the name of the party the cheque is drawn on, or null

"confidence" is a number between 0 and 1 reflecting how certain you are.

Rules:
- If a field is illegible or absent, set its "value" to null.
- Never guess an amount; only report what is legible.
- Return ONLY valid raw JSON.
- Do NOT wrap the response in code fences.
- Do NOT use ` + "```json" + ` or any Markdown.
- Output must begin with "{" and end with "}".`

// buildPrompt assembles the recognition prompt from the caller's instruction
// and the fields already confirmed in prior turns, so the model focuses on
// the gaps.
func buildPrompt(instruction string, prior model.Candidate) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	var known []string
	if prior.ChequeNumber.Set {
		known = append(known, "cheque_number")
	}
	if prior.Date.Set {
		known = append(known, "date")
	}
	if prior.Amount.Set {
		known = append(known, "amount")
	}
	if prior.CustomerHint.Set {
		known = append(known, "customer")
	}
	if prior.VendorHint.Set {
		known = append(known, "vendor")
	}
	if len(known) > 0 {
		b.WriteString("\n\nAlready confirmed in earlier turns (still include them if clearly visible): ")
		b.WriteString(strings.Join(known, ", "))
		b.WriteString(".")
	}

	if instruction != "" {
		b.WriteString("\n\nCaller instruction:\n")
		b.WriteString(instruction)
	}

	return b.String()
}
