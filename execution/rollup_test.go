package execution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/execution-engine/execution"
)

// Helpers (dec, ptr, act, compute) are defined in spec_test.go.

func TestAggregate_QuarterColumnsAreRawSums(t *testing.T) {
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_A_1": act("HIV_EXEC_HC_A_1", "Transfers", ptr(100), ptr(200), nil, nil),
		"HIV_EXEC_HC_A_2": act("HIV_EXEC_HC_A_2", "Other receipts", ptr(50), nil, ptr(25), nil),
	}
	rollups, _ := compute(activities)

	a := rollups.BySection[execution.SectionReceipts]
	require.NotNil(t, a)
	assert.True(t, a.Q1.Equal(dec(150)))
	assert.True(t, a.Q2.Equal(dec(200)))
	assert.True(t, a.Q3.Equal(dec(25)))
	assert.True(t, a.Q4.IsZero())
	assert.True(t, a.Total.Equal(dec(375)))
}

func TestAggregate_StockSectionTotal_SumsCumulativesNotQuarters(t *testing.T) {
	// Two D activities: raw quarter sums would give 500+800+300 = 1600,
	// but Total must be the sum of the members' cumulative balances
	// (latest reported each): 800 + 300 = 1100.
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_D_1": act("HIV_EXEC_HC_D_1", "Cash at bank", ptr(500), ptr(800), nil, nil),
		"HIV_EXEC_HC_D_2": act("HIV_EXEC_HC_D_2", "Petty cash", nil, nil, ptr(300), nil),
	}
	rollups, _ := compute(activities)

	d := rollups.BySection[execution.SectionFinancialAssets]
	require.NotNil(t, d)
	assert.True(t, d.Total.Equal(dec(1100)),
		"stock total must use cumulative balances, got %s", d.Total)
	assert.True(t, d.Q1.Equal(dec(500)), "quarter columns stay raw sums")
}

func TestAggregate_SubSectionRollups(t *testing.T) {
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_E_E-02_1": act("HIV_EXEC_HC_E_E-02_1", "VAT payable", ptr(40), ptr(25), nil, nil),
		"HIV_EXEC_HC_E_E-02_2": act("HIV_EXEC_HC_E_E-02_2", "VAT withheld", ptr(10), nil, nil, nil),
		"HIV_EXEC_HC_E_1":      act("HIV_EXEC_HC_E_1", "Payables", ptr(60), nil, nil, nil),
	}
	rollups, _ := compute(activities)

	// Members appear in both the section and their sub-section.
	e := rollups.BySection[execution.SectionFinancialLiabilities]
	require.NotNil(t, e)
	assert.True(t, e.Q1.Equal(dec(110)))

	vat := rollups.BySubSection["E-02"]
	require.NotNil(t, vat)
	assert.True(t, vat.Q1.Equal(dec(50)))
	// VAT cumulative: 25 (latest of first) + 10 (latest of second).
	assert.True(t, vat.Total.Equal(dec(35)))
}

func TestAggregate_UnclassifiableActivitiesExcluded(t *testing.T) {
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_A_1": act("HIV_EXEC_HC_A_1", "Transfers", ptr(100), nil, nil, nil),
		"GARBAGE":         act("GARBAGE", "Mystery line", ptr(999), nil, nil, nil),
	}
	rollups, _ := compute(activities)

	assert.Len(t, rollups.BySection, 1)
	assert.True(t, rollups.BySection[execution.SectionReceipts].Total.Equal(dec(100)))
}

func TestAggregate_PeriodSurplusNeverReachesGRollup(t *testing.T) {
	activities := map[string]*execution.Activity{
		"HIV_EXEC_HC_G_1": act("HIV_EXEC_HC_G_1", "Accumulated Surplus/Deficit", ptr(300), ptr(300), nil, nil),
		"HIV_EXEC_HC_G_2": act("HIV_EXEC_HC_G_2", "Surplus/Deficit of the Period", ptr(100), ptr(50), nil, nil),
	}
	rollups, _ := compute(activities)

	g := rollups.BySection[execution.SectionEquity]
	require.NotNil(t, g)
	assert.True(t, g.Total.Equal(dec(300)), "period surplus would double-count")
	assert.True(t, g.Q1.Equal(dec(300)))
}

func TestAggregate_EmptyInputStillHasStructure(t *testing.T) {
	rollups := execution.Aggregate(map[string]*execution.Activity{})
	require.NoError(t, execution.ValidateRollups(rollups))
	assert.Empty(t, rollups.BySection)
	assert.Empty(t, rollups.BySubSection)
}

func TestValidateRollups_MissingStructureIsFatal(t *testing.T) {
	assert.ErrorIs(t, execution.ValidateRollups(nil), execution.ErrMissingRollups)
	assert.ErrorIs(t, execution.ValidateRollups(&execution.Rollups{}), execution.ErrMissingRollups)
	assert.ErrorIs(t, execution.ValidateRollups(&execution.Rollups{
		BySection: map[execution.Section]*execution.QuarterlyTotal{},
	}), execution.ErrMissingRollups)
}
