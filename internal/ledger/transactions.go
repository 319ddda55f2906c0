package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/model"
	"github.com/hsaleh/chequeflow/internal/service"
)

// Commit atomically persists a confirmed draft. The (cheque number, customer)
// pair is the idempotency key: committing the same cheque twice returns the
// transaction the first commit created instead of a duplicate row.
func (s *SQLiteLedger) Commit(ctx context.Context, draft *model.Draft) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", common.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	txn := &model.Transaction{
		ID:             uuid.NewString(),
		ChequeNumber:   draft.ChequeNumber,
		Date:           draft.Date,
		Amount:         draft.Amount,
		CustomerID:     draft.Customer.ID,
		VendorID:       draft.Vendor.ID,
		CustomerFee:    draft.CustomerFee,
		VendorCost:     draft.VendorCost,
		Status:         model.StatusPending,
		ReviewRequired: draft.ReviewRequired,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	txn.Profit = model.ProfitFor(txn.Status, txn.CustomerFee, txn.VendorCost)

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, cheque_number, date, amount, customer_id, vendor_id,
			customer_fee, vendor_cost, profit, status, review_required,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.ChequeNumber, txn.Date, txn.Amount.String(),
		txn.CustomerID, txn.VendorID, txn.CustomerFee.String(),
		txn.VendorCost.String(), txn.Profit.String(), string(txn.Status),
		txn.ReviewRequired, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert transaction: %v", common.ErrPersistence, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if affected == 0 {
		// A commit with the same idempotency key already won; observe it.
		existing, getErr := s.getByChequeTx(ctx, tx, txn.ChequeNumber, txn.CustomerID)
		if getErr != nil {
			return nil, fmt.Errorf("%w: duplicate detected but not readable: %v", common.ErrPersistence, getErr)
		}
		slog.Info("Duplicate commit observed existing transaction",
			"cheque_number", txn.ChequeNumber, "transaction_id", existing.ID)
		return existing, nil
	}

	if err := s.recomputeAggregatesTx(ctx, tx, txn.CustomerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit: %v", common.ErrPersistence, err)
	}

	slog.Info("Committed transaction",
		"transaction_id", txn.ID,
		"cheque_number", txn.ChequeNumber,
		"amount", txn.Amount,
		"profit", txn.Profit)
	return txn, nil
}

// Transition moves a transaction along the status lattice. Profit and the
// owning customer's aggregates are recomputed in the same database
// transaction; an illegal edge leaves the row untouched.
func (s *SQLiteLedger) Transition(ctx context.Context, id string, next model.TransactionStatus) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrInvalidTransition, next)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", common.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	txn, err := s.getTransactionTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if !txn.Status.CanTransitionTo(next) {
		err := fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, txn.Status, next)
		common.LogError(err, "Rejected status transition", common.Fields{"transaction_id": id})
		return nil, err
	}

	txn.Status = next
	txn.Profit = model.ProfitFor(next, txn.CustomerFee, txn.VendorCost)
	txn.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = ?, profit = ?, updated_at = ? WHERE id = ?`,
		string(txn.Status), txn.Profit.String(), txn.UpdatedAt, txn.ID); err != nil {
		return nil, fmt.Errorf("%w: failed to update status: %v", common.ErrPersistence, err)
	}

	if err := s.recomputeAggregatesTx(ctx, tx, txn.CustomerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit: %v", common.ErrPersistence, err)
	}

	slog.Info("Transitioned transaction",
		"transaction_id", txn.ID, "status", txn.Status, "profit", txn.Profit)
	return txn, nil
}

// GetTransaction returns a transaction by id.
func (s *SQLiteLedger) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	return s.getTransactionTx(ctx, tx, id)
}

// ListTransactions returns transactions matching the filter, newest first.
func (s *SQLiteLedger) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, cheque_number, date, amount, customer_id, vendor_id,
		customer_fee, vendor_cost, profit, status, review_required, created_at, updated_at
		FROM transactions WHERE 1=1`
	var args []any

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.CustomerID != "" {
		query += " AND customer_id = ?"
		args = append(args, filter.CustomerID)
	}
	query += " ORDER BY date DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query transactions: %v", common.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// GetCustomerAggregates returns the persisted per-customer totals.
func (s *SQLiteLedger) GetCustomerAggregates(ctx context.Context, customerID string) (*service.CustomerAggregates, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(customerID, "customerID"); err != nil {
		return nil, err
	}

	var agg service.CustomerAggregates
	var cleared, pending, profit string
	err := s.db.QueryRowContext(ctx, `
		SELECT customer_id, total_cleared, outstanding_pending, total_profit, transaction_count, updated_at
		FROM customer_aggregates WHERE customer_id = ?`, customerID).
		Scan(&agg.CustomerID, &cleared, &pending, &profit, &agg.TransactionCount, &agg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read aggregates: %v", common.ErrPersistence, err)
	}

	if agg.TotalCleared, err = decimal.NewFromString(cleared); err != nil {
		return nil, fmt.Errorf("%w: corrupt total_cleared: %v", common.ErrPersistence, err)
	}
	if agg.OutstandingPending, err = decimal.NewFromString(pending); err != nil {
		return nil, fmt.Errorf("%w: corrupt outstanding_pending: %v", common.ErrPersistence, err)
	}
	if agg.TotalProfit, err = decimal.NewFromString(profit); err != nil {
		return nil, fmt.Errorf("%w: corrupt total_profit: %v", common.ErrPersistence, err)
	}
	return &agg, nil
}

// recomputeAggregatesTx rebuilds a customer's totals from the transaction
// rows inside the caller's database transaction, so aggregates can never
// drift from their inputs.
func (s *SQLiteLedger) recomputeAggregatesTx(ctx context.Context, tx *sql.Tx, customerID string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT amount, profit, status FROM transactions WHERE customer_id = ?`, customerID)
	if err != nil {
		return fmt.Errorf("%w: failed to read transactions for aggregates: %v", common.ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	var cleared, pending, totalProfit decimal.Decimal
	count := 0
	for rows.Next() {
		var amountStr, profitStr, status string
		if err := rows.Scan(&amountStr, &profitStr, &status); err != nil {
			return fmt.Errorf("%w: %v", common.ErrPersistence, err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("%w: corrupt amount: %v", common.ErrPersistence, err)
		}
		profit, err := decimal.NewFromString(profitStr)
		if err != nil {
			return fmt.Errorf("%w: corrupt profit: %v", common.ErrPersistence, err)
		}

		count++
		totalProfit = totalProfit.Add(profit)
		switch model.TransactionStatus(status) {
		case model.StatusCompleted:
			cleared = cleared.Add(amount)
		case model.StatusPending:
			pending = pending.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO customer_aggregates (customer_id, total_cleared, outstanding_pending, total_profit, transaction_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			total_cleared = excluded.total_cleared,
			outstanding_pending = excluded.outstanding_pending,
			total_profit = excluded.total_profit,
			transaction_count = excluded.transaction_count,
			updated_at = excluded.updated_at`,
		customerID, cleared.String(), pending.String(), totalProfit.String(),
		count, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: failed to upsert aggregates: %v", common.ErrPersistence, err)
	}
	return nil
}

func (s *SQLiteLedger) getTransactionTx(ctx context.Context, tx *sql.Tx, id string) (*model.Transaction, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, cheque_number, date, amount, customer_id, vendor_id,
			customer_fee, vendor_cost, profit, status, review_required, created_at, updated_at
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *SQLiteLedger) getByChequeTx(ctx context.Context, tx *sql.Tx, chequeNumber, customerID string) (*model.Transaction, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, cheque_number, date, amount, customer_id, vendor_id,
			customer_fee, vendor_cost, profit, status, review_required, created_at, updated_at
		FROM transactions WHERE cheque_number = ? AND customer_id = ?`, chequeNumber, customerID)
	return scanTransaction(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount, fee, cost, profit, status string

	err := row.Scan(&txn.ID, &txn.ChequeNumber, &txn.Date, &amount,
		&txn.CustomerID, &txn.VendorID, &fee, &cost, &profit, &status,
		&txn.ReviewRequired, &txn.CreatedAt, &txn.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan transaction: %v", common.ErrPersistence, err)
	}

	txn.Status = model.TransactionStatus(status)
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("%w: corrupt amount: %v", common.ErrPersistence, err)
	}
	if txn.CustomerFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("%w: corrupt customer_fee: %v", common.ErrPersistence, err)
	}
	if txn.VendorCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("%w: corrupt vendor_cost: %v", common.ErrPersistence, err)
	}
	if txn.Profit, err = decimal.NewFromString(profit); err != nil {
		return nil, fmt.Errorf("%w: corrupt profit: %v", common.ErrPersistence, err)
	}
	return &txn, nil
}
