package execution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/execution-engine/execution"
)

// Helpers (dec, ptr, act, compute, balancedStatement) are defined in spec_test.go.

func TestAssemble_SurplusIsIndependentOfG(t *testing.T) {
	// Surplus is always A - B, regardless of what clients filed under G.
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_A_1": act("HIV_EXEC_HC_A_1", "Receipts", ptr(900), ptr(100), nil, nil),
		"HIV_EXEC_HC_B_1": act("HIV_EXEC_HC_B_1", "Expenditures", ptr(400), ptr(300), nil, nil),
		"HIV_EXEC_HC_G_2": act("HIV_EXEC_HC_G_2", "Surplus/Deficit of the Period", ptr(9999), nil, nil, nil),
	}
	_, balances := compute(activities)

	assert.True(t, balances.Surplus.Q1.Equal(dec(500)))
	assert.True(t, balances.Surplus.Q2.Equal(dec(-200)))
	assert.True(t, balances.Surplus.CumulativeBalance.Equal(dec(300)))
}

func TestAssemble_SectionLevelReverseScan(t *testing.T) {
	// The D/E cumulative figures come from the SECTION aggregate's own
	// reverse scan over non-zero quarters, not from per-activity scans.
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_D_1": act("HIV_EXEC_HC_D_1", "Cash at bank", ptr(500), ptr(800), nil, nil),
		"HIV_EXEC_HC_E_1": act("HIV_EXEC_HC_E_1", "Payables", ptr(200), nil, nil, nil),
	}
	_, balances := compute(activities)

	// E reported nothing in Q2: its section scan lands on Q1.
	assert.True(t, balances.FinancialAssets.CumulativeBalance.Equal(dec(800)))
	assert.True(t, balances.FinancialLiabilities.CumulativeBalance.Equal(dec(200)))

	// The net scan gates on "any non-zero D or E this quarter": Q2 has
	// D=800, so the net position is Q2's 800 - 0.
	assert.True(t, balances.NetFinancialAssets.CumulativeBalance.Equal(dec(800)))
}

func TestAssemble_NetScanSkipsQuartersWithNoPosition(t *testing.T) {
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_D_1": act("HIV_EXEC_HC_D_1", "Cash at bank", ptr(300), nil, nil, nil),
		"HIV_EXEC_HC_E_1": act("HIV_EXEC_HC_E_1", "Payables", ptr(100), nil, nil, nil),
	}
	_, balances := compute(activities)

	// Q2-Q4 have no D/E at all; the scan falls through to Q1.
	assert.True(t, balances.NetFinancialAssets.CumulativeBalance.Equal(dec(200)))
}

func TestAssemble_MissingSectionsContributeZeroes(t *testing.T) {
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_A_1": act("HIV_EXEC_HC_A_1", "Receipts", ptr(100), nil, nil, nil),
	}
	_, balances := compute(activities)

	assert.True(t, balances.Expenditures.CumulativeBalance.IsZero())
	assert.True(t, balances.FinancialAssets.CumulativeBalance.IsZero())
	assert.True(t, balances.NetFinancialAssets.CumulativeBalance.IsZero())
	// A=100, B=0 -> surplus 100; G absent -> closing 100; NFA 0.
	assert.True(t, balances.ClosingBalance.CumulativeBalance.Equal(dec(100)))
	assert.False(t, balances.IsBalanced)
	assert.True(t, balances.Difference.Equal(dec(-100)))
}

func TestAssemble_ToleranceIsStrict(t *testing.T) {
	// A difference of exactly 0.01 is NOT balanced; anything strictly
	// below is.
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_A_1": act("HIV_EXEC_HC_A_1", "Receipts", ptr(100.01), nil, nil, nil),
		"HIV_EXEC_HC_D_1": act("HIV_EXEC_HC_D_1", "Cash at bank", ptr(100), nil, nil, nil),
	}
	_, balances := compute(activities)
	assert.False(t, balances.IsBalanced, "0.01 difference must be rejected")

	activities["HIV_EXEC_HC_A_1"] = act("HIV_EXEC_HC_A_1", "Receipts", ptr(100.005), nil, nil, nil)
	_, balances = compute(activities)
	assert.True(t, balances.IsBalanced, "0.005 difference is within tolerance")
}

func TestAssemble_NeverFails(t *testing.T) {
	// Assemble reports, never rejects: an empty rollup assembles to an
	// all-zero, balanced statement.
	balances := execution.Assemble(&execution.Rollups{
		BySection:    map[execution.Section]*execution.QuarterlyTotal{},
		BySubSection: map[string]*execution.QuarterlyTotal{},
	})
	require.NotNil(t, balances)
	assert.True(t, balances.IsBalanced)
	assert.NoError(t, balances.MismatchError())
}
