/*
quarter.go - Quarter sequencing within and across fiscal years

PURPOSE:
  Computes the previous/next quarter labels for a reporting quarter,
  including the fiscal-year rollover case: Q1's previous quarter is the
  PRIOR year's Q4, but only when a prior-year Q4 execution actually exists.
  Q4 has no next quarter within the same fiscal year; the cross-year next
  is outside this engine.

SEE ALSO:
  - cascade.go: Uses Next() to find the quarter to recalculate
*/
package execution

// QuarterSequence describes a quarter's neighbors within the fiscal year.
type QuarterSequence struct {
	Current  Quarter
	Previous Quarter // "" when HasPrevious is false
	Next     Quarter // "" when HasNext is false

	HasPrevious    bool
	HasNext        bool
	IsFirstQuarter bool

	// IsCrossFiscalYearRollover is set when Previous refers to the prior
	// fiscal year's Q4 rather than a quarter of the same year.
	IsCrossFiscalYearRollover bool
}

// Sequence computes the neighbors of current. crossYearPreviousExists
// states whether a prior fiscal year's Q4 execution is on file; without
// it, Q1 has no previous quarter at all.
func Sequence(current Quarter, crossYearPreviousExists bool) (QuarterSequence, error) {
	if !current.Valid() {
		return QuarterSequence{}, ErrInvalidQuarter
	}

	seq := QuarterSequence{
		Current:        current,
		IsFirstQuarter: current == QuarterQ1,
	}

	if current == QuarterQ1 {
		if crossYearPreviousExists {
			seq.Previous = QuarterQ4
			seq.HasPrevious = true
			seq.IsCrossFiscalYearRollover = true
		}
	} else {
		seq.Previous = QuarterFromIndex(current.Index() - 1)
		seq.HasPrevious = true
	}

	if current != QuarterQ4 {
		seq.Next = QuarterFromIndex(current.Index() + 1)
		seq.HasNext = true
	}

	return seq, nil
}

// Next returns the quarter following q within the same fiscal year, or ""
// for Q4.
func NextQuarter(q Quarter) Quarter {
	if q == QuarterQ4 {
		return ""
	}
	return QuarterFromIndex(q.Index() + 1)
}
