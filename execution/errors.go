/*
errors.go - Centralized error types for the execution engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Classification errors - code doesn't match the grammar; non-fatal,
     the activity is simply excluded from rollups
  2. Balance errors - accounting identity violated; FATAL for the write
  3. Structural errors - merge produced a record without rollups; fatal,
     rejected before any persistence
  4. Cascade errors - failure recalculating a later quarter; non-fatal,
     logged and surfaced only as status degradation
  5. Store errors - not found, concurrent modification

PROPAGATION POLICY:
  Classification and cascade errors are absorbed locally. Balance-identity
  and structural errors reject the write: a rejected write leaves the
  previously persisted entry untouched.

SEE ALSO:
  - balances.go: Produces the figures carried by BalanceMismatchError
  - cascade.go: Wraps recalculation failures in CascadeError
*/
package execution

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnclassifiableCode is returned when an activity code doesn't match
	// the documented grammar. The activity is excluded from rollups.
	ErrUnclassifiableCode = errors.New("unclassifiable activity code")

	// ErrBalanceMismatch is returned when the accounting identity
	// (net financial assets = closing balance) fails beyond tolerance.
	// The triggering write is rejected.
	ErrBalanceMismatch = errors.New("cumulative balance mismatch")

	// ErrMissingRollups is returned when a merge produced a record without
	// rollup structure. The write is rejected before any persistence.
	ErrMissingRollups = errors.New("missing rollup structure")

	// ErrCascadeRecalculation is returned when recalculating a subsequent
	// quarter fails. Non-fatal: logged and reflected in CascadeImpact only.
	ErrCascadeRecalculation = errors.New("cascade recalculation failed")

	// ErrEntryNotFound is returned when a referenced execution entry
	// doesn't exist.
	ErrEntryNotFound = errors.New("execution entry not found")

	// ErrConcurrentModification is returned when optimistic locking
	// detects a conflicting write to the same entry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidQuarter is returned when a request names a quarter outside Q1-Q4.
	ErrInvalidQuarter = errors.New("invalid quarter")

	// ErrEmptySubmission is returned when a request carries no activity values.
	ErrEmptySubmission = errors.New("submission contains no activities")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BalanceMismatchError reports an accounting identity violation with both
// cumulative figures and the signed difference, as required by the
// rejection surface.
type BalanceMismatchError struct {
	NetFinancialAssets decimal.Decimal
	ClosingBalance     decimal.Decimal
	Difference         decimal.Decimal
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf(
		"cumulative balance mismatch: net financial assets %s != closing balance %s (difference %s)",
		e.NetFinancialAssets, e.ClosingBalance, e.Difference)
}

func (e *BalanceMismatchError) Unwrap() error {
	return ErrBalanceMismatch
}

// CascadeError records which quarter failed to recalculate and why.
type CascadeError struct {
	Quarter Quarter
	Err     error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade recalculation of %s failed: %v", e.Quarter, e.Err)
}

func (e *CascadeError) Unwrap() error {
	return ErrCascadeRecalculation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBalanceMismatch) ||
		errors.Is(err, ErrMissingRollups) ||
		errors.Is(err, ErrInvalidQuarter) ||
		errors.Is(err, ErrEmptySubmission)
}

// IsNotFound returns true if the error indicates a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
