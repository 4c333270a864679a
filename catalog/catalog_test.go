package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/execution-engine/catalog"
	"github.com/warp/execution-engine/execution"
)

func TestDefaults_CoverAllPairs(t *testing.T) {
	c := catalog.NewWithDefaults()
	ctx := context.Background()

	for _, project := range []string{"HIV", "TB", "MAL"} {
		for _, facility := range []string{"HC", "DH"} {
			items, err := c.Lookup(ctx, project, facility)
			require.NoError(t, err, "%s/%s", project, facility)
			assert.NotEmpty(t, items)

			// Every built-in code parses against the grammar.
			for _, item := range items {
				_, err := execution.ParseCode(item.Code)
				assert.NoError(t, err, "code %s", item.Code)
			}
		}
	}
}

func TestLookup_IsCaseInsensitiveAndSorted(t *testing.T) {
	c := catalog.NewWithDefaults()

	items, err := c.Lookup(context.Background(), "hiv", "hc")
	require.NoError(t, err)
	for i := 1; i < len(items); i++ {
		assert.LessOrEqual(t, items[i-1].DisplayOrder, items[i].DisplayOrder)
	}
}

func TestLookup_UnknownPair(t *testing.T) {
	c := catalog.New()
	_, err := c.Lookup(context.Background(), "HIV", "HC")
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	c := catalog.New()
	def, err := c.LoadJSON(strings.NewReader(`{
		"projectType": "EPI",
		"facilityType": "HC",
		"activities": [
			{"code": "EPI_EXEC_HC_A_1", "name": "Transfers", "displayOrder": 2},
			{"code": "EPI_EXEC_HC_B_1", "name": "Salaries", "displayOrder": 1}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "EPI", def.ProjectType)

	items, err := c.Lookup(context.Background(), "EPI", "HC")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Salaries", items[0].Name, "items come back display-ordered")
}

func TestLoadJSON_RejectsMalformedCodes(t *testing.T) {
	c := catalog.New()
	_, err := c.LoadJSON(strings.NewReader(`{
		"projectType": "EPI",
		"facilityType": "HC",
		"activities": [{"code": "NOT_A_CODE", "name": "Broken", "displayOrder": 1}]
	}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, execution.ErrUnclassifiableCode)

	_, err = c.Lookup(context.Background(), "EPI", "HC")
	assert.Error(t, err, "a rejected catalog must not be partially registered")
}
