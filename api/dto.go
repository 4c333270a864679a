/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

NUMERIC REPRESENTATION:
  Quarter values cross the wire as JSON numbers (pointers: absent/null
  means "not yet reported", 0 is an explicit zero). Internally everything
  is decimal; the conversion happens here and only here.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/execution-engine/execution"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitExecutionRequest carries one quarter's raw activity values.
type SubmitExecutionRequest struct {
	Quarter      string                        `json:"quarter"`
	ProjectType  string                        `json:"projectType"`
	FacilityType string                        `json:"facilityType"`
	Activities   map[string]ActivityValuesJSON `json:"activities"`
}

// ActivityValuesJSON is one budget line's submitted values. Nil quarters
// are not carried by the request.
type ActivityValuesJSON struct {
	Name string   `json:"name,omitempty"`
	Q1   *float64 `json:"q1,omitempty"`
	Q2   *float64 `json:"q2,omitempty"`
	Q3   *float64 `json:"q3,omitempty"`
	Q4   *float64 `json:"q4,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ActivityDTO is one budget line with its derived fields.
type ActivityDTO struct {
	Code              string   `json:"code"`
	Name              string   `json:"name,omitempty"`
	Section           string   `json:"section,omitempty"`
	SubSection        string   `json:"subSection,omitempty"`
	Q1                *float64 `json:"q1"`
	Q2                *float64 `json:"q2"`
	Q3                *float64 `json:"q3"`
	Q4                *float64 `json:"q4"`
	CumulativeBalance *float64 `json:"cumulativeBalance"`
}

// QuarterlyTotalDTO mirrors execution.QuarterlyTotal.
type QuarterlyTotalDTO struct {
	Q1    float64 `json:"q1"`
	Q2    float64 `json:"q2"`
	Q3    float64 `json:"q3"`
	Q4    float64 `json:"q4"`
	Total float64 `json:"total"`
}

// RollupsDTO mirrors execution.Rollups.
type RollupsDTO struct {
	BySection    map[string]QuarterlyTotalDTO `json:"bySection"`
	BySubSection map[string]QuarterlyTotalDTO `json:"bySubSection"`
}

// BalanceLineDTO is one named statement line.
type BalanceLineDTO struct {
	Q1                float64 `json:"q1"`
	Q2                float64 `json:"q2"`
	Q3                float64 `json:"q3"`
	Q4                float64 `json:"q4"`
	CumulativeBalance float64 `json:"cumulativeBalance"`
}

// BalancesDTO is the assembled statement.
type BalancesDTO struct {
	Receipts             BalanceLineDTO `json:"receipts"`
	Expenditures         BalanceLineDTO `json:"expenditures"`
	Surplus              BalanceLineDTO `json:"surplus"`
	FinancialAssets      BalanceLineDTO `json:"financialAssets"`
	FinancialLiabilities BalanceLineDTO `json:"financialLiabilities"`
	NetFinancialAssets   BalanceLineDTO `json:"netFinancialAssets"`
	ClosingBalance       BalanceLineDTO `json:"closingBalance"`
	IsBalanced           bool           `json:"isBalanced"`
	Difference           float64        `json:"difference"`
}

// CascadeImpactDTO summarizes forward propagation for one update.
type CascadeImpactDTO struct {
	AffectedQuarters        []string `json:"affectedQuarters"`
	ImmediatelyRecalculated []string `json:"immediatelyRecalculated"`
	QueuedForRecalculation  []string `json:"queuedForRecalculation"`
	Status                  string   `json:"status"`
}

// QuarterSequenceDTO mirrors execution.QuarterSequence.
type QuarterSequenceDTO struct {
	Current                   string `json:"current"`
	Previous                  string `json:"previous,omitempty"`
	Next                      string `json:"next,omitempty"`
	HasPrevious               bool   `json:"hasPrevious"`
	HasNext                   bool   `json:"hasNext"`
	IsFirstQuarter            bool   `json:"isFirstQuarter"`
	IsCrossFiscalYearRollover bool   `json:"isCrossFiscalYearRollover"`
}

// ExecutionDTO is a stored entry with its computed values.
type ExecutionDTO struct {
	ID                  string                 `json:"id"`
	ProjectID           string                 `json:"projectId"`
	FacilityID          string                 `json:"facilityId"`
	ReportingPeriodID   string                 `json:"reportingPeriodId"`
	Quarter             string                 `json:"quarter"`
	Activities          map[string]ActivityDTO `json:"activities"`
	Rollups             RollupsDTO             `json:"rollups"`
	Balances            BalancesDTO            `json:"balances"`
	IsBalanced          bool                   `json:"isBalanced"`
	LastQuarterReported string                 `json:"lastQuarterReported,omitempty"`
	LastReportedAt      string                 `json:"lastReportedAt,omitempty"`
	AffectedQuarters    []string               `json:"affectedQuarters,omitempty"`
	Version             int64                  `json:"version"`
}

// SubmitExecutionResponse wraps a successful write.
type SubmitExecutionResponse struct {
	ExecutionDTO
	Created         bool               `json:"created"`
	CascadeImpact   CascadeImpactDTO   `json:"cascadeImpact"`
	QuarterSequence QuarterSequenceDTO `json:"quarterSequence"`
}

// CatalogItemDTO is one catalog line.
type CatalogItemDTO struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
}

// ErrorDTO is the JSON error envelope.
type ErrorDTO struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toDecimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v, _ := d.Float64()
	return &v
}

func toFloat(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func toActivityDTO(a *execution.Activity) ActivityDTO {
	return ActivityDTO{
		Code:              a.Code,
		Name:              a.Name,
		Section:           string(a.Section),
		SubSection:        a.SubSection,
		Q1:                toFloatPtr(a.Q1),
		Q2:                toFloatPtr(a.Q2),
		Q3:                toFloatPtr(a.Q3),
		Q4:                toFloatPtr(a.Q4),
		CumulativeBalance: toFloatPtr(a.CumulativeBalance),
	}
}

func toQuarterlyTotalDTO(t *execution.QuarterlyTotal) QuarterlyTotalDTO {
	return QuarterlyTotalDTO{
		Q1:    toFloat(t.Q1),
		Q2:    toFloat(t.Q2),
		Q3:    toFloat(t.Q3),
		Q4:    toFloat(t.Q4),
		Total: toFloat(t.Total),
	}
}

func toRollupsDTO(r *execution.Rollups) RollupsDTO {
	dto := RollupsDTO{
		BySection:    make(map[string]QuarterlyTotalDTO, len(r.BySection)),
		BySubSection: make(map[string]QuarterlyTotalDTO, len(r.BySubSection)),
	}
	for section, t := range r.BySection {
		dto.BySection[string(section)] = toQuarterlyTotalDTO(t)
	}
	for sub, t := range r.BySubSection {
		dto.BySubSection[sub] = toQuarterlyTotalDTO(t)
	}
	return dto
}

func toBalanceLineDTO(l execution.BalanceLine) BalanceLineDTO {
	return BalanceLineDTO{
		Q1:                toFloat(l.Q1),
		Q2:                toFloat(l.Q2),
		Q3:                toFloat(l.Q3),
		Q4:                toFloat(l.Q4),
		CumulativeBalance: toFloat(l.CumulativeBalance),
	}
}

func toBalancesDTO(b *execution.Balances) BalancesDTO {
	return BalancesDTO{
		Receipts:             toBalanceLineDTO(b.Receipts),
		Expenditures:         toBalanceLineDTO(b.Expenditures),
		Surplus:              toBalanceLineDTO(b.Surplus),
		FinancialAssets:      toBalanceLineDTO(b.FinancialAssets),
		FinancialLiabilities: toBalanceLineDTO(b.FinancialLiabilities),
		NetFinancialAssets:   toBalanceLineDTO(b.NetFinancialAssets),
		ClosingBalance:       toBalanceLineDTO(b.ClosingBalance),
		IsBalanced:           b.IsBalanced,
		Difference:           toFloat(b.Difference),
	}
}

func quartersToStrings(quarters []execution.Quarter) []string {
	if len(quarters) == 0 {
		return []string{}
	}
	out := make([]string, len(quarters))
	for i, q := range quarters {
		out[i] = string(q)
	}
	return out
}

func toCascadeImpactDTO(impact execution.CascadeImpact) CascadeImpactDTO {
	return CascadeImpactDTO{
		AffectedQuarters:        quartersToStrings(impact.AffectedQuarters),
		ImmediatelyRecalculated: quartersToStrings(impact.ImmediatelyRecalculated),
		QueuedForRecalculation:  quartersToStrings(impact.QueuedForRecalculation),
		Status:                  string(impact.Status),
	}
}

func toQuarterSequenceDTO(seq execution.QuarterSequence) QuarterSequenceDTO {
	return QuarterSequenceDTO{
		Current:                   string(seq.Current),
		Previous:                  string(seq.Previous),
		Next:                      string(seq.Next),
		HasPrevious:               seq.HasPrevious,
		HasNext:                   seq.HasNext,
		IsFirstQuarter:            seq.IsFirstQuarter,
		IsCrossFiscalYearRollover: seq.IsCrossFiscalYearRollover,
	}
}

func toExecutionDTO(e *execution.ExecutionEntry) ExecutionDTO {
	activities := make(map[string]ActivityDTO, len(e.Activities))
	for code, a := range e.Activities {
		activities[code] = toActivityDTO(a)
	}

	dto := ExecutionDTO{
		ID:                  e.ID.String(),
		ProjectID:           e.ProjectID,
		FacilityID:          e.FacilityID,
		ReportingPeriodID:   e.ReportingPeriodID,
		Quarter:             string(e.Quarter),
		Activities:          activities,
		LastQuarterReported: string(e.Metadata.LastQuarterReported),
		Version:             e.Version,
	}
	if e.Rollups != nil {
		dto.Rollups = toRollupsDTO(e.Rollups)
	}
	if e.ComputedValues != nil {
		dto.Balances = toBalancesDTO(e.ComputedValues)
		dto.IsBalanced = e.ComputedValues.IsBalanced
	}
	if !e.Metadata.LastReportedAt.IsZero() {
		dto.LastReportedAt = e.Metadata.LastReportedAt.Format(time.RFC3339)
	}
	if len(e.Metadata.AffectedQuarters) > 0 {
		dto.AffectedQuarters = quartersToStrings(e.Metadata.AffectedQuarters)
	}
	return dto
}
