/*
rollup.go - Section and sub-section aggregation

PURPOSE:
  Folds all activities of an execution entry into per-section and
  per-sub-section quarterly totals. Rollups feed the balance assembler and
  are fully recomputed on every write.

DOUBLE-COUNTING GUARD:
  The "Surplus/Deficit of the Period" line is skipped entirely from Section
  G rollups. The assembler reintroduces it independently as A.total -
  B.total; including it here would count it twice in the closing balance.

TOTAL SEMANTICS:
  Quarter columns are raw sums (missing treated as 0), but Total is the sum
  of the members' CUMULATIVE balances. For stock sections this makes Total
  carry latest-quarter semantics even though the quarter columns look
  additive.

SEE ALSO:
  - cumulative.go: Per-activity cumulative figures
  - balances.go: Consumes these rollups
*/
package execution

// Aggregate folds the activity map into fresh rollups. Unclassifiable
// activities (SectionUnclassified) are excluded. The input is never
// mutated.
func Aggregate(activities map[string]*Activity) *Rollups {
	r := &Rollups{
		BySection:    make(map[Section]*QuarterlyTotal),
		BySubSection: make(map[string]*QuarterlyTotal),
	}

	for _, a := range activities {
		if a.Section == SectionUnclassified {
			continue
		}
		if a.Section == SectionEquity && IsPeriodSurplus(a) {
			// Reintroduced at assembly time as A.total - B.total.
			continue
		}

		addToTotal(sectionTotal(r, a.Section), a)
		if a.SubSection != "" {
			addToTotal(subSectionTotal(r, a.SubSection), a)
		}
	}

	return r
}

func sectionTotal(r *Rollups, s Section) *QuarterlyTotal {
	t, ok := r.BySection[s]
	if !ok {
		t = &QuarterlyTotal{}
		r.BySection[s] = t
	}
	return t
}

func subSectionTotal(r *Rollups, sub string) *QuarterlyTotal {
	t, ok := r.BySubSection[sub]
	if !ok {
		t = &QuarterlyTotal{}
		r.BySubSection[sub] = t
	}
	return t
}

func addToTotal(t *QuarterlyTotal, a *Activity) {
	if v := a.Q1; v != nil {
		t.Q1 = t.Q1.Add(*v)
	}
	if v := a.Q2; v != nil {
		t.Q2 = t.Q2.Add(*v)
	}
	if v := a.Q3; v != nil {
		t.Q3 = t.Q3.Add(*v)
	}
	if v := a.Q4; v != nil {
		t.Q4 = t.Q4.Add(*v)
	}
	// The activity's own cumulative balance, not its raw quarter sum.
	if a.CumulativeBalance != nil {
		t.Total = t.Total.Add(*a.CumulativeBalance)
	}
}

// ValidateRollups checks the structural invariant every persisted entry
// must satisfy: both rollup maps present. A merge that loses this
// structure rejects the write before any persistence.
func ValidateRollups(r *Rollups) error {
	if r == nil || r.BySection == nil || r.BySubSection == nil {
		return ErrMissingRollups
	}
	return nil
}
