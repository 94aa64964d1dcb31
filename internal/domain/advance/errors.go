package advance

import "errors"

var (
	ErrAdvanceNotFound = errors.New("advance not found")
	ErrInvalidAmount   = errors.New("invalid amount: must be a non-negative number")
	// ErrAdvanceOverAllocation signals a broken invariant: a deduction larger
	// than the outstanding balance reached the ledger.
	ErrAdvanceOverAllocation = errors.New("advance deduction exceeds outstanding balance")
)
