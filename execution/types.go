/*
Package execution provides the quarterly budget execution engine.

PURPOSE:
  This package contains the core types and algorithms for tracking quarterly
  budget execution of health-program facilities: classifying budget lines into
  statement sections, computing cumulative balances with flow/stock semantics,
  rolling activities up into section totals, assembling the named
  financial-statement balances, verifying the accounting identity, and
  propagating an edited quarter's closing balances into later quarters.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quarter: Q1-Q4 within a single fiscal year
  - Section: the statement category a budget line belongs to (A-G)
  - Activity: one budget line with optional per-quarter values
  - QuarterlyTotal / Rollups: per-section and per-sub-section aggregates
  - Balances: the named financial-statement lines plus the identity check
  - ExecutionEntry: the persisted unit, one per (project, facility, period, quarter)
  - CascadeImpact: the outcome of forward propagation after an update

DESIGN PRINCIPLES:
  1. Precision: all monetary values use decimal.Decimal, never float64
  2. Explicit absence: a nil quarter value means "not yet reported",
     which is different from an explicit 0
  3. Derived fields (section, sub-section, cumulative balance, rollups,
     balances) are recomputed on every write, never trusted from input
  4. Type safety: sections and quarters are closed enums, not raw strings

SEE ALSO:
  - classifier.go: Activity code grammar and parsing
  - cumulative.go: Flow/stock cumulative balance rules
  - rollup.go: Section and sub-section aggregation
  - balances.go: Statement assembly and the accounting identity
  - cascade.go: Cross-quarter propagation
*/
package execution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUARTER - Position within a fiscal year
// =============================================================================

// Quarter identifies one quarter of a fiscal year.
type Quarter string

const (
	QuarterQ1 Quarter = "Q1"
	QuarterQ2 Quarter = "Q2"
	QuarterQ3 Quarter = "Q3"
	QuarterQ4 Quarter = "Q4"
)

var quarterOrder = map[Quarter]int{
	QuarterQ1: 1,
	QuarterQ2: 2,
	QuarterQ3: 3,
	QuarterQ4: 4,
}

// Valid reports whether q is one of Q1-Q4.
func (q Quarter) Valid() bool {
	_, ok := quarterOrder[q]
	return ok
}

// Index returns the 1-based position of the quarter (Q1=1 .. Q4=4),
// or 0 if the quarter is invalid.
func (q Quarter) Index() int {
	return quarterOrder[q]
}

// Before reports whether q comes before other in the same fiscal year.
func (q Quarter) Before(other Quarter) bool {
	return q.Index() != 0 && other.Index() != 0 && q.Index() < other.Index()
}

// QuarterFromIndex returns the quarter at the 1-based position,
// or "" if the index is out of range.
func QuarterFromIndex(i int) Quarter {
	switch i {
	case 1:
		return QuarterQ1
	case 2:
		return QuarterQ2
	case 3:
		return QuarterQ3
	case 4:
		return QuarterQ4
	default:
		return ""
	}
}

// AllQuarters lists the quarters in fiscal order.
func AllQuarters() []Quarter {
	return []Quarter{QuarterQ1, QuarterQ2, QuarterQ3, QuarterQ4}
}

// =============================================================================
// SECTION - Financial statement category
// =============================================================================

// Section is the statement category a budget line belongs to.
//
// Flow sections (A, B, C) accumulate across quarters; stock sections
// (D, E, F) carry the latest reported quarter's value; G mixes a
// carried-forward equity balance with period movements.
type Section string

const (
	SectionReceipts             Section = "A"
	SectionExpenditures         Section = "B"
	SectionTransfers            Section = "C"
	SectionFinancialAssets      Section = "D"
	SectionFinancialLiabilities Section = "E"
	SectionNetAssets            Section = "F"
	SectionEquity               Section = "G"

	// SectionUnclassified marks an activity whose code could not be parsed.
	// Such activities are retained on the entry but excluded from rollups.
	SectionUnclassified Section = ""
)

// Valid reports whether s is one of the closed section letters A-G.
func (s Section) Valid() bool {
	switch s {
	case SectionReceipts, SectionExpenditures, SectionTransfers,
		SectionFinancialAssets, SectionFinancialLiabilities,
		SectionNetAssets, SectionEquity:
		return true
	}
	return false
}

// IsFlow reports whether the section accumulates across quarters.
func (s Section) IsFlow() bool {
	switch s {
	case SectionReceipts, SectionExpenditures, SectionTransfers:
		return true
	}
	return false
}

// IsStock reports whether the section carries the latest reported value.
func (s Section) IsStock() bool {
	switch s {
	case SectionFinancialAssets, SectionFinancialLiabilities, SectionNetAssets:
		return true
	}
	return false
}

// =============================================================================
// ACTIVITY - One budget line within an execution entry
// =============================================================================

// Activity is a single budget line. Quarter values are pointers: nil means
// "not yet reported", which the cumulative balance rules treat differently
// from an explicit zero.
type Activity struct {
	Code string
	Name string

	Q1 *decimal.Decimal
	Q2 *decimal.Decimal
	Q3 *decimal.Decimal
	Q4 *decimal.Decimal

	// Derived by the classifier on every write. SectionUnclassified if the
	// code could not be parsed; SubSection is "" when the code has none.
	Section    Section
	SubSection string

	// Derived by the cumulative balance calculator on every write.
	// nil means no quarter has been reported yet (stock sections only).
	CumulativeBalance *decimal.Decimal
}

// QuarterValue returns the value reported for the given quarter (nil if
// not yet reported).
func (a *Activity) QuarterValue(q Quarter) *decimal.Decimal {
	switch q {
	case QuarterQ1:
		return a.Q1
	case QuarterQ2:
		return a.Q2
	case QuarterQ3:
		return a.Q3
	case QuarterQ4:
		return a.Q4
	}
	return nil
}

// SetQuarterValue records a value for the given quarter.
func (a *Activity) SetQuarterValue(q Quarter, v *decimal.Decimal) {
	switch q {
	case QuarterQ1:
		a.Q1 = v
	case QuarterQ2:
		a.Q2 = v
	case QuarterQ3:
		a.Q3 = v
	case QuarterQ4:
		a.Q4 = v
	}
}

// Clone returns a deep copy of the activity.
func (a *Activity) Clone() *Activity {
	c := *a
	c.Q1 = cloneDecimal(a.Q1)
	c.Q2 = cloneDecimal(a.Q2)
	c.Q3 = cloneDecimal(a.Q3)
	c.Q4 = cloneDecimal(a.Q4)
	c.CumulativeBalance = cloneDecimal(a.CumulativeBalance)
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// DecimalPtr returns a pointer to a copy of d. Convenience for building
// activities from literals.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// =============================================================================
// ROLLUPS - Per-section and per-sub-section quarterly totals
// =============================================================================

// QuarterlyTotal aggregates the member activities of one section or
// sub-section. Total is the sum of the members' cumulative balances, NOT
// the raw sum of the quarter columns: this is what lets stock sections
// contribute latest-quarter semantics to an otherwise additive rollup.
type QuarterlyTotal struct {
	Q1    decimal.Decimal
	Q2    decimal.Decimal
	Q3    decimal.Decimal
	Q4    decimal.Decimal
	Total decimal.Decimal
}

// QuarterValue returns the aggregate for the given quarter.
func (t QuarterlyTotal) QuarterValue(q Quarter) decimal.Decimal {
	switch q {
	case QuarterQ1:
		return t.Q1
	case QuarterQ2:
		return t.Q2
	case QuarterQ3:
		return t.Q3
	case QuarterQ4:
		return t.Q4
	}
	return decimal.Zero
}

// Rollups holds the full aggregation of an entry's activities. Rollups are
// recomputed from scratch on every write, never incrementally patched.
type Rollups struct {
	BySection    map[Section]*QuarterlyTotal
	BySubSection map[string]*QuarterlyTotal
}

// =============================================================================
// BALANCES - Named financial-statement lines
// =============================================================================

// BalanceLine is one named statement line with its per-quarter values and
// cumulative figure.
type BalanceLine struct {
	Q1                decimal.Decimal
	Q2                decimal.Decimal
	Q3                decimal.Decimal
	Q4                decimal.Decimal
	CumulativeBalance decimal.Decimal
}

// Balances is the assembled financial statement for one entry. Derived
// solely from Rollups; cached on the entry for read efficiency but never
// persisted independently of the entry that produced it.
type Balances struct {
	Receipts             BalanceLine
	Expenditures         BalanceLine
	Surplus              BalanceLine
	FinancialAssets      BalanceLine
	FinancialLiabilities BalanceLine
	NetFinancialAssets   BalanceLine
	ClosingBalance       BalanceLine

	// IsBalanced is the accounting identity: net financial assets must
	// equal the closing balance within IdentityTolerance. Difference is
	// signed (net financial assets minus closing balance).
	IsBalanced bool
	Difference decimal.Decimal
}

// =============================================================================
// EXECUTION ENTRY - The persisted unit
// =============================================================================

// EntryMetadata records reporting progress and cascade bookkeeping.
type EntryMetadata struct {
	LastQuarterReported Quarter
	LastReportedAt      time.Time

	// AffectedQuarters summarizes the most recent cascade triggered by an
	// update to this entry. Empty when no later quarters were on file.
	AffectedQuarters []Quarter
}

// ExecutionEntry is one facility's execution record for one quarter of a
// reporting period. Created on first submission for its key; mutated
// (merged, not replaced) on every subsequent submission.
type ExecutionEntry struct {
	ID                uuid.UUID
	ProjectID         string
	FacilityID        string
	ReportingPeriodID string
	Quarter           Quarter

	Activities     map[string]*Activity
	Rollups        *Rollups
	ComputedValues *Balances
	Metadata       EntryMetadata

	// Version supports optimistic concurrency in the store: Save rejects
	// an entry whose version no longer matches the persisted row.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key identifies the (project, facility, period) scope an entry belongs to.
func (e *ExecutionEntry) Key() EntryKey {
	return EntryKey{
		ProjectID:         e.ProjectID,
		FacilityID:        e.FacilityID,
		ReportingPeriodID: e.ReportingPeriodID,
	}
}

// EntryKey scopes entries to one facility's reporting period. All quarters
// of the same period share a key; cascade writes are serialized per key.
type EntryKey struct {
	ProjectID         string
	FacilityID        string
	ReportingPeriodID string
}

// CloneActivities returns a deep copy of the entry's activity map.
func (e *ExecutionEntry) CloneActivities() map[string]*Activity {
	out := make(map[string]*Activity, len(e.Activities))
	for code, a := range e.Activities {
		out[code] = a.Clone()
	}
	return out
}

// =============================================================================
// CASCADE IMPACT - Outcome of forward propagation
// =============================================================================

// CascadeStatus is the terminal state of one propagation run.
type CascadeStatus string

const (
	// CascadeNone: no subsequent quarters were on file.
	CascadeNone CascadeStatus = "none"

	// CascadePartialComplete: the immediately following quarter was
	// recalculated (or attempted) and further quarters remain queued.
	CascadePartialComplete CascadeStatus = "partial_complete"

	// CascadeComplete: no further quarters remained beyond the one
	// recalculated synchronously.
	CascadeComplete CascadeStatus = "complete"
)

// CascadeImpact reports what a single update did to later quarters. It is
// ephemeral: produced per update and summarized into the triggering entry's
// metadata, never persisted as its own entity.
type CascadeImpact struct {
	AffectedQuarters        []Quarter
	ImmediatelyRecalculated []Quarter
	QueuedForRecalculation  []Quarter
	Status                  CascadeStatus
}
