/*
balances.go - Financial statement assembly and the accounting identity

PURPOSE:
  Turns rollups into the named statement lines and checks the fundamental
  identity: Net Financial Assets (D - E) must equal the Closing Balance
  (carried-forward equity + period surplus) within a small tolerance.

LINE DEFINITIONS:
  receipts             = section A
  expenditures         = section B
  surplus              = A - B, per quarter and cumulatively (independent of
                         whatever is stored under G)
  financialAssets      = section D; cumulative = section-level reverse scan
  financialLiabilities = section E; same scan
  netFinancialAssets   = D - E per quarter; cumulative = reverse scan over
                         the per-quarter differences, gated on "does this
                         quarter have any non-zero D or E"
  closingBalance       = G + surplus per quarter; cumulative =
                         G.total + surplus.cumulative (this is where the
                         period-surplus exclusion in rollup.go is recombined
                         exactly once)

FAILURE SEMANTICS:
  Assemble never fails. It reports IsBalanced=false and the signed
  difference; the create/update flow is responsible for rejecting the
  write. The identity is mandatory for every facility type and every
  quarter, with no exemptions.

SEE ALSO:
  - rollup.go: Produces the input
  - service.go: Rejects writes when IsBalanced is false
*/
package execution

import "github.com/shopspring/decimal"

// IdentityTolerance is the maximum absolute difference between net
// financial assets and the closing balance for an entry to count as
// balanced.
var IdentityTolerance = decimal.RequireFromString("0.01")

// Assemble builds the named statement lines from rollups. Sections absent
// from the rollups contribute zeroes.
func Assemble(r *Rollups) *Balances {
	receipts := lineFromTotal(total(r, SectionReceipts))
	expenditures := lineFromTotal(total(r, SectionExpenditures))

	surplus := subtractLines(receipts, expenditures)
	surplus.CumulativeBalance = receipts.CumulativeBalance.Sub(expenditures.CumulativeBalance)

	assets := total(r, SectionFinancialAssets)
	liabilities := total(r, SectionFinancialLiabilities)

	assetsLine := lineFromTotal(assets)
	assetsLine.CumulativeBalance = latestNonZeroQuarter(assets)

	liabilitiesLine := lineFromTotal(liabilities)
	liabilitiesLine.CumulativeBalance = latestNonZeroQuarter(liabilities)

	net := subtractLines(assetsLine, liabilitiesLine)
	net.CumulativeBalance = latestNetPosition(assets, liabilities)

	equity := lineFromTotal(total(r, SectionEquity))
	closing := addLines(equity, surplus)
	closing.CumulativeBalance = equity.CumulativeBalance.Add(surplus.CumulativeBalance)

	difference := net.CumulativeBalance.Sub(closing.CumulativeBalance)

	return &Balances{
		Receipts:             receipts,
		Expenditures:         expenditures,
		Surplus:              surplus,
		FinancialAssets:      assetsLine,
		FinancialLiabilities: liabilitiesLine,
		NetFinancialAssets:   net,
		ClosingBalance:       closing,
		IsBalanced:           difference.Abs().LessThan(IdentityTolerance),
		Difference:           difference,
	}
}

// MismatchError builds the rejection error for an imbalanced statement,
// carrying both cumulative figures and the signed difference. Returns nil
// when the statement is balanced.
func (b *Balances) MismatchError() error {
	if b.IsBalanced {
		return nil
	}
	return &BalanceMismatchError{
		NetFinancialAssets: b.NetFinancialAssets.CumulativeBalance,
		ClosingBalance:     b.ClosingBalance.CumulativeBalance,
		Difference:         b.Difference,
	}
}

func total(r *Rollups, s Section) QuarterlyTotal {
	if t, ok := r.BySection[s]; ok {
		return *t
	}
	return QuarterlyTotal{}
}

func lineFromTotal(t QuarterlyTotal) BalanceLine {
	return BalanceLine{
		Q1:                t.Q1,
		Q2:                t.Q2,
		Q3:                t.Q3,
		Q4:                t.Q4,
		CumulativeBalance: t.Total,
	}
}

func subtractLines(a, b BalanceLine) BalanceLine {
	return BalanceLine{
		Q1:                a.Q1.Sub(b.Q1),
		Q2:                a.Q2.Sub(b.Q2),
		Q3:                a.Q3.Sub(b.Q3),
		Q4:                a.Q4.Sub(b.Q4),
		CumulativeBalance: a.CumulativeBalance.Sub(b.CumulativeBalance),
	}
}

func addLines(a, b BalanceLine) BalanceLine {
	return BalanceLine{
		Q1:                a.Q1.Add(b.Q1),
		Q2:                a.Q2.Add(b.Q2),
		Q3:                a.Q3.Add(b.Q3),
		Q4:                a.Q4.Add(b.Q4),
		CumulativeBalance: a.CumulativeBalance.Add(b.CumulativeBalance),
	}
}

// latestNonZeroQuarter is the SECTION-level reverse scan: the newest
// quarter whose aggregate is non-zero, scanning Q4 -> Q1. At this level
// reported-vs-missing is no longer visible, so zero is the gate.
func latestNonZeroQuarter(t QuarterlyTotal) decimal.Decimal {
	for i := 4; i >= 1; i-- {
		if v := t.QuarterValue(QuarterFromIndex(i)); !v.IsZero() {
			return v
		}
	}
	return decimal.Zero
}

// latestNetPosition reverse-scans the per-quarter D-E series, using the
// same gate as the section scan: a quarter participates if it has any
// non-zero assets or liabilities.
func latestNetPosition(assets, liabilities QuarterlyTotal) decimal.Decimal {
	for i := 4; i >= 1; i-- {
		q := QuarterFromIndex(i)
		d := assets.QuarterValue(q)
		e := liabilities.QuarterValue(q)
		if !d.IsZero() || !e.IsZero() {
			return d.Sub(e)
		}
	}
	return decimal.Zero
}
