/*
cascade.go - Cross-quarter propagation of closing balances

PURPOSE:
  After a quarter is successfully saved, later quarters already on file
  must stay consistent with the new closing position. The engine
  recalculates the immediately following quarter synchronously and only
  FLAGS further-out quarters for deferred recalculation; consuming that
  queue is an external collaborator's job.

STATE MACHINE (terminal per update):
  none             no subsequent quarters on file
  partial_complete Q+1 recalculated (or attempted), more quarters remain flagged
  complete         nothing remains beyond the quarter just recalculated

OPENING CONTEXT:
  Recalculating Q+1 overlays the edited quarter's stock-section values
  (sections D and E, including their sub-ledgers such as a VAT
  sub-section) for quarters up to and including the edited one onto Q+1's
  activity map, then re-runs the full pipeline. Flow sections are left
  alone: their history belongs to Q+1's own submissions.

FAILURE SEMANTICS:
  Best-effort, not transactional. A failure recalculating Q+1 is logged
  and degrades the impact status; it never rolls back the triggering
  update.

SEE ALSO:
  - quarter.go: NextQuarter
  - service.go: Invokes Propagate after every successful save
*/
package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CascadeEngine propagates an updated quarter's closing balances forward.
type CascadeEngine struct {
	Store  ExecutionStore
	Logger zerolog.Logger

	// Now is overridable for tests.
	Now func() time.Time
}

// NewCascadeEngine creates a cascade engine over the given store.
func NewCascadeEngine(store ExecutionStore, logger zerolog.Logger) *CascadeEngine {
	return &CascadeEngine{Store: store, Logger: logger, Now: time.Now}
}

// Propagate runs the cascade for a just-saved entry and returns the
// impact. Propagate never returns an error: failures are logged and
// reflected in the impact status only.
func (c *CascadeEngine) Propagate(ctx context.Context, entry *ExecutionEntry) CascadeImpact {
	later, err := c.Store.FindSubsequentQuarters(ctx, entry.Key(), entry.Quarter)
	if err != nil {
		c.Logger.Error().Err(err).
			Str("project", entry.ProjectID).
			Str("facility", entry.FacilityID).
			Str("quarter", string(entry.Quarter)).
			Msg("cascade: failed to query subsequent quarters")
		return CascadeImpact{Status: CascadeNone}
	}

	if len(later) == 0 {
		return CascadeImpact{Status: CascadeNone}
	}

	impact := CascadeImpact{}
	for _, e := range later {
		impact.AffectedQuarters = append(impact.AffectedQuarters, e.Quarter)
	}

	next := NextQuarter(entry.Quarter)
	recalculated := false
	for _, e := range later {
		if e.Quarter == next {
			if err := c.recalculate(ctx, entry, e); err != nil {
				c.Logger.Error().Err(err).
					Str("quarter", string(e.Quarter)).
					Msg("cascade: synchronous recalculation failed")
				impact.QueuedForRecalculation = append(impact.QueuedForRecalculation, e.Quarter)
			} else {
				impact.ImmediatelyRecalculated = append(impact.ImmediatelyRecalculated, e.Quarter)
				recalculated = true
			}
			continue
		}
		// Beyond Q+1: flagged only. Execution of the queue is deferred to
		// an external worker.
		impact.QueuedForRecalculation = append(impact.QueuedForRecalculation, e.Quarter)
	}

	if recalculated && len(impact.QueuedForRecalculation) == 0 {
		impact.Status = CascadeComplete
	} else {
		impact.Status = CascadePartialComplete
	}

	c.Logger.Info().
		Str("project", entry.ProjectID).
		Str("facility", entry.FacilityID).
		Str("period", entry.ReportingPeriodID).
		Str("quarter", string(entry.Quarter)).
		Str("status", string(impact.Status)).
		Int("recalculated", len(impact.ImmediatelyRecalculated)).
		Int("queued", len(impact.QueuedForRecalculation)).
		Msg("cascade: propagation finished")

	return impact
}

// recalculate re-runs the pipeline for the next quarter's entry with the
// edited quarter's closing balances as its opening context, then saves it.
func (c *CascadeEngine) recalculate(ctx context.Context, source, next *ExecutionEntry) error {
	OverlayOpeningBalances(source, next)

	for _, a := range next.Activities {
		a.CumulativeBalance = CumulativeBalance(a)
	}
	next.Rollups = Aggregate(next.Activities)
	if err := ValidateRollups(next.Rollups); err != nil {
		return &CascadeError{Quarter: next.Quarter, Err: err}
	}
	next.ComputedValues = Assemble(next.Rollups)
	if !next.ComputedValues.IsBalanced {
		// The assembler never fails and a cascade must not reject a write
		// it didn't trigger; an identity drift here is an operator signal.
		c.Logger.Warn().
			Str("quarter", string(next.Quarter)).
			Str("difference", next.ComputedValues.Difference.String()).
			Msg("cascade: recalculated quarter fails the accounting identity")
	}
	next.UpdatedAt = c.Now()

	if err := c.Store.Save(ctx, next); err != nil {
		return &CascadeError{Quarter: next.Quarter, Err: err}
	}
	return nil
}

// OverlayOpeningBalances copies the source entry's stock-section activity
// values (sections D and E, sub-ledgers included) for quarters up to and
// including the source quarter onto the target's activity map, creating
// activities the target has never seen. Flow sections are untouched.
func OverlayOpeningBalances(source, target *ExecutionEntry) {
	if target.Activities == nil {
		target.Activities = make(map[string]*Activity)
	}

	for code, a := range source.Activities {
		letter := effectiveSectionLetter(a.Section, a.SubSection)
		if letter != SectionFinancialAssets && letter != SectionFinancialLiabilities {
			continue
		}

		t, ok := target.Activities[code]
		if !ok {
			t = &Activity{
				Code:       a.Code,
				Name:       a.Name,
				Section:    a.Section,
				SubSection: a.SubSection,
			}
			target.Activities[code] = t
		}

		for i := 1; i <= source.Quarter.Index(); i++ {
			q := QuarterFromIndex(i)
			t.SetQuarterValue(q, cloneDecimal(a.QuarterValue(q)))
		}
	}
}
