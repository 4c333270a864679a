package execution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/execution-engine/execution"
)

// =============================================================================
// CODE GRAMMAR
// =============================================================================

func TestParseCode_FullGrammar(t *testing.T) {
	tests := []struct {
		name string
		code string
		want execution.ParsedCode
	}{
		{
			name: "plain section with sequence",
			code: "HIV_EXEC_HC_A_1",
			want: execution.ParsedCode{
				Project:      "HIV",
				Module:       "EXEC",
				FacilityType: "HC",
				Section:      execution.SectionReceipts,
				Sequence:     1,
			},
		},
		{
			name: "sub-section before sequence",
			code: "MAL_EXEC_DH_G_G-01_2",
			want: execution.ParsedCode{
				Project:      "MAL",
				Module:       "EXEC",
				FacilityType: "DH",
				Section:      execution.SectionEquity,
				SubSection:   "G-01",
				Sequence:     2,
			},
		},
		{
			name: "multi-token facility type",
			code: "TB_EXEC_BCC_SITE_B_3",
			want: execution.ParsedCode{
				Project:      "TB",
				Module:       "EXEC",
				FacilityType: "BCC_SITE",
				Section:      execution.SectionExpenditures,
				Sequence:     3,
			},
		},
		{
			name: "lowercase tokens are normalized",
			code: "hiv_exec_hc_d_4",
			want: execution.ParsedCode{
				Project:      "hiv",
				Module:       "EXEC",
				FacilityType: "hc",
				Section:      execution.SectionFinancialAssets,
				Sequence:     4,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execution.ParseCode(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCode_BareNumberIsSequenceNotSubSection(t *testing.T) {
	// A bare numeric token after the section is the item sequence number;
	// only LETTER-NN qualifies as a sub-section.
	parsed, err := execution.ParseCode("HIV_EXEC_HC_G_12")
	require.NoError(t, err)
	assert.Empty(t, parsed.SubSection)
	assert.Equal(t, 12, parsed.Sequence)
}

func TestParseCode_Unclassifiable(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"missing marker", "HIV_HC_A_1"},
		{"no section letter after marker", "HIV_EXEC_HC_99"},
		{"section letter outside A-G", "HIV_EXEC_HC_Z_1"},
		{"empty code", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execution.ParseCode(tt.code)
			require.Error(t, err)
			assert.ErrorIs(t, err, execution.ErrUnclassifiableCode)

			var classErr *execution.ClassificationError
			assert.ErrorAs(t, err, &classErr)
			assert.Equal(t, tt.code, classErr.Code)
		})
	}
}

func TestClassify_UnclassifiableReturnsUnclassifiedSection(t *testing.T) {
	section, subSection, err := execution.Classify("NOT_A_REAL_SHAPE")
	assert.Error(t, err)
	assert.Equal(t, execution.SectionUnclassified, section)
	assert.Empty(t, subSection)
}

func TestClassify_SectionLetterAfterMultiTokenFacility(t *testing.T) {
	// The first SINGLE-LETTER token after the marker is the section; longer
	// facility tokens must not shadow it.
	section, subSection, err := execution.Classify("HIV_EXEC_BCC_SITE_E_E-02_7")
	require.NoError(t, err)
	assert.Equal(t, execution.SectionFinancialLiabilities, section)
	assert.Equal(t, "E-02", subSection)
}
