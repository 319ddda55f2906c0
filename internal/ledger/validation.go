package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/model"
)

// validateContext ensures a context is usable.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("%w: context is nil", common.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: context is done: %v", common.ErrValidation, err)
	}
	return nil
}

// validateString ensures a string parameter is non-empty.
func validateString(s, name string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s is required", common.ErrValidation, name)
	}
	return nil
}

// validateDraft ensures a draft carries everything a committed transaction
// needs.
func validateDraft(d *model.Draft) error {
	if d == nil {
		return fmt.Errorf("%w: draft is nil", common.ErrValidation)
	}
	if err := validateString(d.ChequeNumber, "cheque number"); err != nil {
		return err
	}
	if d.Date.IsZero() {
		return fmt.Errorf("%w: date is required", common.ErrValidation)
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	}
	if d.Customer == nil || d.Customer.ID == "" {
		return fmt.Errorf("%w: customer is required", common.ErrValidation)
	}
	if d.Vendor == nil || d.Vendor.ID == "" {
		return fmt.Errorf("%w: vendor is required", common.ErrValidation)
	}
	if d.CustomerFee.IsNegative() {
		return fmt.Errorf("%w: customer fee must not be negative", common.ErrValidation)
	}
	return nil
}
