package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/model"
)

// The counterparty tables are owned by an external CRUD layer; this file is
// the read surface the pipeline reconciles against.

// ListCustomers returns all known customers, ordered by id.
func (s *SQLiteLedger) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, fee_percent, fee_minimum FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query customers: %v", common.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// GetCustomer returns a customer by id.
func (s *SQLiteLedger) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, fee_percent, fee_minimum FROM customers WHERE id = ?`, id)
	return scanCustomer(row)
}

// ListVendors returns all known vendors, ordered by id.
func (s *SQLiteLedger) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, cost_percent, high_risk FROM vendors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query vendors: %v", common.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	var vendors []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, *v)
	}
	return vendors, rows.Err()
}

// GetVendor returns a vendor by id.
func (s *SQLiteLedger) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, cost_percent, high_risk FROM vendors WHERE id = ?`, id)
	return scanVendor(row)
}

func scanCustomer(row rowScanner) (*model.Customer, error) {
	var c model.Customer
	var feePercent, feeMinimum string

	err := row.Scan(&c.ID, &c.Name, &feePercent, &feeMinimum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan customer: %v", common.ErrPersistence, err)
	}

	if c.FeePercent, err = decimal.NewFromString(feePercent); err != nil {
		return nil, fmt.Errorf("%w: corrupt fee_percent: %v", common.ErrPersistence, err)
	}
	if c.FeeMinimum, err = decimal.NewFromString(feeMinimum); err != nil {
		return nil, fmt.Errorf("%w: corrupt fee_minimum: %v", common.ErrPersistence, err)
	}
	return &c, nil
}

func scanVendor(row rowScanner) (*model.Vendor, error) {
	var v model.Vendor
	var costPercent string

	err := row.Scan(&v.ID, &v.Name, &costPercent, &v.HighRisk)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan vendor: %v", common.ErrPersistence, err)
	}

	if v.CostPercent, err = decimal.NewFromString(costPercent); err != nil {
		return nil, fmt.Errorf("%w: corrupt cost_percent: %v", common.ErrPersistence, err)
	}
	return &v, nil
}
