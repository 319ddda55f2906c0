// Package reconcile matches candidate fields against known counterparties and
// derives the financial fields of a transaction draft.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/service"
)

// Matching parameters.
const (
	// DefaultMatchThreshold is the minimum similarity for a fuzzy match.
	DefaultMatchThreshold = 0.72
	// DefaultTieMargin is the score gap under which two clearing matches
	// are declared ambiguous rather than guessed between.
	DefaultTieMargin = 0.05
)

// Outcome classifies a reconciliation result.
type Outcome string

// Reconciliation outcomes.
const (
	Resolved   Outcome = "resolved"
	NeedsInput Outcome = "needs_input"
	Ambiguous  Outcome = "ambiguous"
)

// MatchKind distinguishes counterparty match lists.
type MatchKind string

// Match kinds.
const (
	MatchCustomer MatchKind = "customer"
	MatchVendor   MatchKind = "vendor"
)

// Match is one scored counterparty candidate.
type Match struct {
	ID    string
	Name  string
	Kind  MatchKind
	Score float64
}

// Result is the outcome of reconciling a candidate transaction.
type Result struct {
	Draft      *model.Draft
	Outcome    Outcome
	Missing    []string
	Candidates []Match
}

// Config holds matching parameters.
type Config struct {
	MatchThreshold float64
	TieMargin      float64
}

// DefaultConfig returns the default matching parameters.
func DefaultConfig() Config {
	return Config{
		MatchThreshold: DefaultMatchThreshold,
		TieMargin:      DefaultTieMargin,
	}
}

// Engine reconciles candidates against the counterparty directory.
type Engine struct {
	directory service.Directory
	config    Config
}

// New creates a reconciliation engine.
func New(directory service.Directory, config Config) *Engine {
	if config.MatchThreshold <= 0 {
		config.MatchThreshold = DefaultMatchThreshold
	}
	if config.TieMargin <= 0 {
		config.TieMargin = DefaultTieMargin
	}
	return &Engine{directory: directory, config: config}
}

// Reconcile checks the candidate for completeness, resolves the customer and
// vendor, and derives the financial fields. Deterministic for a given
// candidate and directory snapshot.
func (e *Engine) Reconcile(ctx context.Context, cand model.Candidate) (*Result, error) {
	var missing []string
	if !cand.ChequeNumber.Set {
		missing = append(missing, "cheque_number")
	}
	if !cand.Date.Set {
		missing = append(missing, "date")
	}
	if !cand.Amount.Set {
		missing = append(missing, "amount")
	}

	var ambiguous []Match

	var customer *model.Customer
	if !cand.CustomerHint.Set {
		missing = append(missing, "customer")
	} else {
		customers, err := e.directory.ListCustomers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load customers: %w", err)
		}
		matches := scoreCustomers(cand.CustomerHint.Value, customers, e.config.MatchThreshold)
		switch disposition(matches, e.config.TieMargin) {
		case dispositionNone:
			missing = append(missing, "customer")
		case dispositionTied:
			ambiguous = append(ambiguous, matches...)
		default:
			for i := range customers {
				if customers[i].ID == matches[0].ID {
					customer = &customers[i]
				}
			}
		}
	}

	var vendor *model.Vendor
	if !cand.VendorHint.Set {
		missing = append(missing, "vendor")
	} else {
		vendors, err := e.directory.ListVendors(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load vendors: %w", err)
		}
		matches := scoreVendors(cand.VendorHint.Value, vendors, e.config.MatchThreshold)
		switch disposition(matches, e.config.TieMargin) {
		case dispositionNone:
			missing = append(missing, "vendor")
		case dispositionTied:
			ambiguous = append(ambiguous, matches...)
		default:
			for i := range vendors {
				if vendors[i].ID == matches[0].ID {
					vendor = &vendors[i]
				}
			}
		}
	}

	// Ambiguity defers to the caller before anything else: guessing between
	// tied counterparties is never acceptable.
	if len(ambiguous) > 0 {
		return &Result{Outcome: Ambiguous, Candidates: ambiguous, Missing: missing}, nil
	}
	if len(missing) > 0 {
		return &Result{Outcome: NeedsInput, Missing: missing}, nil
	}

	fee := customer.FeeFor(cand.Amount.Value)
	cost := vendor.CostFor(cand.Amount.Value)

	draft := &model.Draft{
		ChequeNumber:   cand.ChequeNumber.Value,
		Date:           cand.Date.Value,
		Amount:         cand.Amount.Value,
		Customer:       customer,
		Vendor:         vendor,
		CustomerFee:    fee,
		VendorCost:     cost,
		Profit:         model.ProfitFor(model.StatusPending, fee, cost),
		ReviewRequired: vendor.HighRisk,
	}

	return &Result{Outcome: Resolved, Draft: draft}, nil
}

type matchDisposition int

const (
	dispositionNone matchDisposition = iota
	dispositionClear
	dispositionTied
)

// disposition decides whether a scored match list yields a clear winner, a
// tie within the margin, or nothing above threshold.
func disposition(matches []Match, tieMargin float64) matchDisposition {
	switch {
	case len(matches) == 0:
		return dispositionNone
	case len(matches) == 1:
		return dispositionClear
	case matches[0].Score-matches[1].Score < tieMargin:
		return dispositionTied
	default:
		return dispositionClear
	}
}

func scoreCustomers(hint string, customers []model.Customer, threshold float64) []Match {
	var matches []Match
	for _, c := range customers {
		if c.ID == hint {
			// Exact id match wins outright.
			return []Match{{ID: c.ID, Name: c.Name, Kind: MatchCustomer, Score: 1}}
		}
		if score := Similarity(hint, c.Name); score >= threshold {
			matches = append(matches, Match{ID: c.ID, Name: c.Name, Kind: MatchCustomer, Score: score})
		}
	}
	sortMatches(matches)
	return matches
}

func scoreVendors(hint string, vendors []model.Vendor, threshold float64) []Match {
	var matches []Match
	for _, v := range vendors {
		if v.ID == hint {
			return []Match{{ID: v.ID, Name: v.Name, Kind: MatchVendor, Score: 1}}
		}
		if score := Similarity(hint, v.Name); score >= threshold {
			matches = append(matches, Match{ID: v.ID, Name: v.Name, Kind: MatchVendor, Score: score})
		}
	}
	sortMatches(matches)
	return matches
}

// sortMatches orders by score descending, breaking ties by id so equal inputs
// always produce identical orderings.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}
