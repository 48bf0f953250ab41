package models

import "errors"

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrAlreadyCheckedOut is returned when checking out an item that is on loan.
	ErrAlreadyCheckedOut = errors.New("item is already checked out")

	// ErrAlreadyAvailable is returned when checking in an item that is not on loan.
	ErrAlreadyAvailable = errors.New("item is already available")

	// ErrLimitReached is returned when a borrower already holds MaxLoans items.
	ErrLimitReached = errors.New("loan limit reached")

	// ErrLoanNotFound is returned when removing a loan the borrower does not hold.
	ErrLoanNotFound = errors.New("loan not found")
)
