package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsaleh/chequeflow/internal/model"
)

type fakeDirectory struct {
	customers []model.Customer
	vendors   []model.Vendor
}

func (d *fakeDirectory) ListCustomers(_ context.Context) ([]model.Customer, error) {
	return d.customers, nil
}

func (d *fakeDirectory) ListVendors(_ context.Context) ([]model.Vendor, error) {
	return d.vendors, nil
}

func (d *fakeDirectory) GetCustomer(_ context.Context, id string) (*model.Customer, error) {
	for i := range d.customers {
		if d.customers[i].ID == id {
			return &d.customers[i], nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) GetVendor(_ context.Context, id string) (*model.Vendor, error) {
	for i := range d.vendors {
		if d.vendors[i].ID == id {
			return &d.vendors[i], nil
		}
	}
	return nil, nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		customers: []model.Customer{
			{ID: "cus-001", Name: "Acme Co",
				FeePercent: decimal.RequireFromString("2.5"),
				FeeMinimum: decimal.RequireFromString("5")},
			{ID: "cus-002", Name: "Globex Trading",
				FeePercent: decimal.RequireFromString("2"),
				FeeMinimum: decimal.RequireFromString("10")},
		},
		vendors: []model.Vendor{
			{ID: "ven-001", Name: "First National Bank",
				CostPercent: decimal.RequireFromString("1")},
			{ID: "ven-002", Name: "Quickline Exchange",
				CostPercent: decimal.RequireFromString("0.75"), HighRisk: true},
		},
	}
}

func fullCandidate() model.Candidate {
	return model.Candidate{
		ChequeNumber: model.StringField{Value: "4512", Confidence: 0.95, Set: true},
		Date: model.DateField{
			Value: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Confidence: 0.9, Set: true},
		Amount: model.AmountField{
			Value: decimal.RequireFromString("1000.00"), Confidence: 0.9, Set: true},
		CustomerHint: model.StringField{Value: "Acme Co", Confidence: 0.9, Set: true},
		VendorHint:   model.StringField{Value: "First National Bank", Confidence: 0.9, Set: true},
	}
}

func TestReconcileResolvesAndDerivesFees(t *testing.T) {
	engine := New(testDirectory(), DefaultConfig())

	result, err := engine.Reconcile(context.Background(), fullCandidate())
	require.NoError(t, err)
	require.Equal(t, Resolved, result.Outcome)
	require.NotNil(t, result.Draft)

	draft := result.Draft
	assert.Equal(t, "cus-001", draft.Customer.ID)
	assert.Equal(t, "ven-001", draft.Vendor.ID)
	// 2.5% of 1000 = 25; cost 1% of 1000 = 10; profit 15.
	assert.Equal(t, "25", draft.CustomerFee.String())
	assert.Equal(t, "10", draft.VendorCost.String())
	assert.Equal(t, "15", draft.Profit.String())
	assert.False(t, draft.ReviewRequired)
}

func TestReconcileNamesMissingFields(t *testing.T) {
	engine := New(testDirectory(), DefaultConfig())

	cand := fullCandidate()
	cand.Amount = model.AmountField{}
	cand.VendorHint = model.StringField{}

	result, err := engine.Reconcile(context.Background(), cand)
	require.NoError(t, err)
	assert.Equal(t, NeedsInput, result.Outcome)
	assert.Equal(t, []string{"amount", "vendor"}, result.Missing)
	assert.Nil(t, result.Draft)
}

func TestReconcileUnmatchedHintIsMissing(t *testing.T) {
	engine := New(testDirectory(), DefaultConfig())

	cand := fullCandidate()
	cand.CustomerHint.Value = "Completely Unknown Person"

	result, err := engine.Reconcile(context.Background(), cand)
	require.NoError(t, err)
	assert.Equal(t, NeedsInput, result.Outcome)
	assert.Contains(t, result.Missing, "customer")
}

func TestReconcileAmbiguousTie(t *testing.T) {
	dir := testDirectory()
	dir.customers = append(dir.customers,
		model.Customer{ID: "cus-010", Name: "J. Smith",
			FeePercent: decimal.RequireFromString("3")},
		model.Customer{ID: "cus-011", Name: "J Smith",
			FeePercent: decimal.RequireFromString("3")},
	)
	engine := New(dir, DefaultConfig())

	cand := fullCandidate()
	cand.CustomerHint.Value = "J. Smith"

	result, err := engine.Reconcile(context.Background(), cand)
	require.NoError(t, err)
	require.Equal(t, Ambiguous, result.Outcome)
	require.Len(t, result.Candidates, 2)
	assert.Nil(t, result.Draft, "commit must not be reachable while ambiguous")

	ids := []string{result.Candidates[0].ID, result.Candidates[1].ID}
	assert.ElementsMatch(t, []string{"cus-010", "cus-011"}, ids)
}

func TestReconcileExactIDMatchWins(t *testing.T) {
	dir := testDirectory()
	dir.customers = append(dir.customers,
		model.Customer{ID: "cus-010", Name: "J. Smith",
			FeePercent: decimal.RequireFromString("3")},
		model.Customer{ID: "cus-011", Name: "J Smith",
			FeePercent: decimal.RequireFromString("3")},
	)
	engine := New(dir, DefaultConfig())

	cand := fullCandidate()
	cand.CustomerHint.Value = "cus-011"

	result, err := engine.Reconcile(context.Background(), cand)
	require.NoError(t, err)
	require.Equal(t, Resolved, result.Outcome)
	assert.Equal(t, "cus-011", result.Draft.Customer.ID)
}

func TestReconcileHighRiskVendorFlagsReview(t *testing.T) {
	engine := New(testDirectory(), DefaultConfig())

	cand := fullCandidate()
	cand.VendorHint.Value = "Quickline Exchange"

	result, err := engine.Reconcile(context.Background(), cand)
	require.NoError(t, err)
	require.Equal(t, Resolved, result.Outcome)
	assert.True(t, result.Draft.ReviewRequired)
}

func TestReconcileDeterministic(t *testing.T) {
	engine := New(testDirectory(), DefaultConfig())
	cand := fullCandidate()

	first, err := engine.Reconcile(context.Background(), cand)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := engine.Reconcile(context.Background(), cand)
		require.NoError(t, err)
		assert.Equal(t, first.Outcome, again.Outcome)
		assert.Equal(t, first.Draft.Customer.ID, again.Draft.Customer.ID)
		assert.Equal(t, first.Draft.Vendor.ID, again.Draft.Vendor.ID)
	}
}
