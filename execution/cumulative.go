/*
cumulative.go - Cumulative balance rules per activity

PURPOSE:
  Computes the single cumulative figure for one budget line from its four
  quarter values and its classification. This is the kernel the rollups and
  statement assembly are built on.

RULES (in order):
  1. Effective section = sub-section if present, else section, upper-cased.
  2. Flow sections {A, B, C}: sum of the four values, missing treated as 0.
     Always defined.
  3. Stock sections {D, E, F}: value of the latest REPORTED quarter,
     scanning Q4 -> Q1. An explicit 0 counts as data and stops the scan.
     If no quarter has been reported, the result is "no data" (nil), not 0.
  4. Section G (mixed):
       - "Accumulated Surplus/Deficit" lines are a carried-forward constant:
         return Q1 (upstream writes the same figure into every reported quarter)
       - "Prior Year Adjustments" (sub-section G-01) and "Surplus/Deficit of
         the Period" are flows
       - everything else in G defaults to flow
  5. Unclassified sections default to flow so unknown codes still aggregate.

RATIONALE:
  Flow sections are income-statement-like (additive across the year); stock
  sections are balance-sheet-like (point-in-time, only the newest figure
  matters); G mixes a carried-forward equity balance with period movements.

SEE ALSO:
  - rollup.go: Sums these cumulative figures into section totals
*/
package execution

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CumulativeBalance computes the cumulative figure for one activity from
// its quarter values and classification. A nil result means no quarter has
// been reported yet (possible for stock sections only). Pure function: the
// result depends on nothing but the activity's own fields.
func CumulativeBalance(a *Activity) *decimal.Decimal {
	letter := effectiveSectionLetter(a.Section, a.SubSection)

	switch {
	case letter.IsFlow():
		return DecimalPtr(sumQuarters(a))

	case letter.IsStock():
		return latestReportedQuarter(a)

	case letter == SectionEquity:
		return equityCumulative(a)

	default:
		// Unknown codes still aggregate. Safe default.
		return DecimalPtr(sumQuarters(a))
	}
}

// effectiveSectionLetter resolves the section letter the accumulation rules
// key off: the sub-section's leading letter when present, else the section.
func effectiveSectionLetter(section Section, subSection string) Section {
	eff := strings.ToUpper(subSection)
	if eff == "" {
		eff = strings.ToUpper(string(section))
	}
	if eff == "" {
		return SectionUnclassified
	}
	return Section(eff[:1])
}

func sumQuarters(a *Activity) decimal.Decimal {
	sum := decimal.Zero
	for _, q := range AllQuarters() {
		if v := a.QuarterValue(q); v != nil {
			sum = sum.Add(*v)
		}
	}
	return sum
}

// latestReportedQuarter scans Q4 -> Q1 for the newest reported value.
// An explicit zero is data and stops the scan; nil quarters are skipped.
func latestReportedQuarter(a *Activity) *decimal.Decimal {
	for i := 4; i >= 1; i-- {
		if v := a.QuarterValue(QuarterFromIndex(i)); v != nil {
			return cloneDecimal(v)
		}
	}
	return nil
}

func equityCumulative(a *Activity) *decimal.Decimal {
	switch {
	case IsAccumulatedSurplus(a):
		// Carried-forward constant. Upstream writes the same figure into
		// all reported quarters, so Q1 is authoritative.
		return cloneDecimal(a.Q1)
	case isPriorYearAdjustment(a), IsPeriodSurplus(a):
		return DecimalPtr(sumQuarters(a))
	default:
		return DecimalPtr(sumQuarters(a))
	}
}

// IsAccumulatedSurplus identifies the carried-forward equity line
// ("Accumulated Surplus/Deficit") by name or code.
func IsAccumulatedSurplus(a *Activity) bool {
	text := strings.ToLower(a.Name + " " + a.Code)
	return strings.Contains(text, "accumulated") &&
		(strings.Contains(text, "surplus") || strings.Contains(text, "deficit"))
}

// IsPeriodSurplus identifies the "Surplus/Deficit of the Period" line.
// This line is excluded from G rollups and reintroduced at assembly time
// as A.total - B.total; matching it here and in the aggregator is what
// prevents double counting.
func IsPeriodSurplus(a *Activity) bool {
	name := strings.ToLower(a.Name)
	return strings.Contains(name, "surplus") &&
		strings.Contains(name, "deficit") &&
		strings.Contains(name, "period") &&
		!strings.Contains(name, "accumulated")
}

func isPriorYearAdjustment(a *Activity) bool {
	if strings.EqualFold(a.SubSection, "G-01") {
		return true
	}
	return strings.Contains(strings.ToLower(a.Name), "prior year adjustment")
}
