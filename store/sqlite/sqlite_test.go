package sqlite_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/execution-engine/execution"
	"github.com/warp/execution-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testKey() execution.EntryKey {
	return execution.EntryKey{
		ProjectID:         "proj-1",
		FacilityID:        "fac-1",
		ReportingPeriodID: "fy-2026",
	}
}

func sampleEntry(quarter execution.Quarter) *execution.ExecutionEntry {
	v := decimal.NewFromInt(100)
	a := &execution.Activity{
		Code:              "HIV_EXEC_HC_A_1",
		Name:              "Receipts",
		Q1:                &v,
		Section:           execution.SectionReceipts,
		CumulativeBalance: &v,
	}
	activities := map[string]*execution.Activity{a.Code: a}

	return &execution.ExecutionEntry{
		ID:                uuid.New(),
		ProjectID:         "proj-1",
		FacilityID:        "fac-1",
		ReportingPeriodID: "fy-2026",
		Quarter:           quarter,
		Activities:        activities,
		Rollups:           execution.Aggregate(activities),
		ComputedValues:    execution.Assemble(execution.Aggregate(activities)),
		Metadata: execution.EntryMetadata{
			LastQuarterReported: quarter,
		},
	}
}

func TestSaveAndFindByKey_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := sampleEntry(execution.QuarterQ1)
	require.NoError(t, s.Save(ctx, entry))
	assert.EqualValues(t, 1, entry.Version)

	got, err := s.FindByKey(ctx, testKey(), execution.QuarterQ1)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, execution.QuarterQ1, got.Quarter)
	assert.EqualValues(t, 1, got.Version)

	a := got.Activities["HIV_EXEC_HC_A_1"]
	require.NotNil(t, a)
	require.NotNil(t, a.Q1)
	assert.True(t, a.Q1.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, a.CumulativeBalance)
	assert.True(t, a.CumulativeBalance.Equal(decimal.NewFromInt(100)))

	require.NotNil(t, got.Rollups)
	assert.True(t, got.Rollups.BySection[execution.SectionReceipts].Total.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, got.ComputedValues)
	assert.Equal(t, execution.QuarterQ1, got.Metadata.LastQuarterReported)
}

func TestFindByKey_AbsentReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.FindByKey(context.Background(), testKey(), execution.QuarterQ3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindSubsequentQuarters_OrderedAndExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, q := range []execution.Quarter{execution.QuarterQ3, execution.QuarterQ1, execution.QuarterQ2} {
		require.NoError(t, s.Save(ctx, sampleEntry(q)))
	}

	later, err := s.FindSubsequentQuarters(ctx, testKey(), execution.QuarterQ1)
	require.NoError(t, err)
	require.Len(t, later, 2)
	assert.Equal(t, execution.QuarterQ2, later[0].Quarter)
	assert.Equal(t, execution.QuarterQ3, later[1].Quarter)

	all, err := s.FindQuarters(ctx, testKey())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSave_OptimisticVersionCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := sampleEntry(execution.QuarterQ1)
	require.NoError(t, s.Save(ctx, entry))

	// A stale copy (version 0 insert or outdated version) must be rejected.
	stale := sampleEntry(execution.QuarterQ1)
	err := s.Save(ctx, stale)
	assert.ErrorIs(t, err, execution.ErrConcurrentModification)

	stale.Version = 99
	err = s.Save(ctx, stale)
	assert.ErrorIs(t, err, execution.ErrConcurrentModification)

	// The current holder updates fine.
	require.NoError(t, s.Save(ctx, entry))
	assert.EqualValues(t, 2, entry.Version)
}

func TestCatalog_SeedAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []execution.CatalogItem{
		{Code: "HIV_EXEC_HC_B_1", Name: "Salaries", DisplayOrder: 2},
		{Code: "HIV_EXEC_HC_A_1", Name: "Transfers", DisplayOrder: 1},
	}
	require.NoError(t, s.SeedCatalog(ctx, "HIV", "HC", items))

	got, err := s.Lookup(ctx, "HIV", "HC")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Transfers", got[0].Name, "lookup returns display order")

	_, err = s.Lookup(ctx, "HIV", "DH")
	assert.Error(t, err)

	// Reseeding replaces, not appends.
	require.NoError(t, s.SeedCatalog(ctx, "HIV", "HC", items[:1]))
	got, err = s.Lookup(ctx, "HIV", "HC")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
