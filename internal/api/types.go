package api

import (
	"time"

	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/orchestrator"
)

// FieldView is one candidate field as returned to callers. Confidence is
// internal and omitted unless the caller asks for it.
type FieldView struct {
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// CandidateView is the redacted candidate accumulator.
type CandidateView struct {
	ChequeNumber *FieldView `json:"cheque_number,omitempty"`
	Date         *FieldView `json:"date,omitempty"`
	Amount       *FieldView `json:"amount,omitempty"`
	Customer     *FieldView `json:"customer,omitempty"`
	Vendor       *FieldView `json:"vendor,omitempty"`
}

// TransactionView is the committed transaction as returned to callers. Field
// names and status values are the persisted contract from the ledger.
type TransactionView struct {
	ID             string `json:"id"`
	ChequeNumber   string `json:"cheque_number"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	CustomerID     string `json:"customer_id"`
	VendorID       string `json:"vendor_id"`
	CustomerFee    string `json:"customer_fee"`
	Profit         string `json:"profit"`
	Status         string `json:"status"`
	ReviewRequired bool   `json:"review_required"`
}

// TurnResponse is returned by the turn, confirm and cancel endpoints.
type TurnResponse struct {
	SessionKey  string           `json:"session_key,omitempty"`
	State       string           `json:"state,omitempty"`
	Message     string           `json:"message"`
	Candidate   *CandidateView   `json:"candidate,omitempty"`
	Transaction *TransactionView `json:"transaction,omitempty"`
}

// ConfirmRequest carries optional field corrections on confirm.
type ConfirmRequest struct {
	Corrections map[string]string `json:"corrections,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func viewCandidate(c model.Candidate, verbose bool) *CandidateView {
	if c.Empty() {
		return nil
	}

	view := &CandidateView{}
	field := func(value string, confidence float64) *FieldView {
		fv := &FieldView{Value: value}
		if verbose {
			conf := confidence
			fv.Confidence = &conf
		}
		return fv
	}

	if c.ChequeNumber.Set {
		view.ChequeNumber = field(c.ChequeNumber.Value, c.ChequeNumber.Confidence)
	}
	if c.Date.Set {
		view.Date = field(c.Date.Value.Format("2006-01-02"), c.Date.Confidence)
	}
	if c.Amount.Set {
		view.Amount = field(c.Amount.Value.StringFixed(2), c.Amount.Confidence)
	}
	if c.CustomerHint.Set {
		view.Customer = field(c.CustomerHint.Value, c.CustomerHint.Confidence)
	}
	if c.VendorHint.Set {
		view.Vendor = field(c.VendorHint.Value, c.VendorHint.Confidence)
	}
	return view
}

func viewTransaction(txn *model.Transaction) *TransactionView {
	if txn == nil {
		return nil
	}
	return &TransactionView{
		ID:             txn.ID,
		ChequeNumber:   txn.ChequeNumber,
		Date:           txn.Date.Format(time.RFC3339),
		Amount:         txn.Amount.StringFixed(2),
		CustomerID:     txn.CustomerID,
		VendorID:       txn.VendorID,
		CustomerFee:    txn.CustomerFee.StringFixed(2),
		Profit:         txn.Profit.StringFixed(2),
		Status:         string(txn.Status),
		ReviewRequired: txn.ReviewRequired,
	}
}

func viewResult(result *orchestrator.TurnResult, verbose bool) TurnResponse {
	resp := TurnResponse{
		Message:     result.Message,
		Transaction: viewTransaction(result.Committed),
	}
	if result.Session != nil {
		resp.SessionKey = result.Session.Key
		resp.State = string(result.Session.State)
		resp.Candidate = viewCandidate(result.Session.Candidate, verbose)
	}
	return resp
}
