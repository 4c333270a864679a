/*
defaults.go - Built-in activity catalogs

PURPOSE:
  Ships the standard health-program execution catalogs so a fresh server
  can accept submissions without external configuration. Health centers
  (HC) and district hospitals (DH) share the statement structure; the
  hospital catalogs carry a few extra lines.

These define LABELS only. All calculation semantics derive from the code
grammar, never from this list.
*/
package catalog

import "github.com/warp/execution-engine/execution"

type defaultCatalog struct {
	ProjectType  string
	FacilityType string
	Activities   []execution.CatalogItem
}

func defaultCatalogs() []defaultCatalog {
	var out []defaultCatalog
	for _, project := range []string{"HIV", "TB", "MAL"} {
		for _, facility := range []string{"HC", "DH"} {
			out = append(out, defaultCatalog{
				ProjectType:  project,
				FacilityType: facility,
				Activities:   statementCatalog(project, facility),
			})
		}
	}
	return out
}

// statementCatalog builds the standard statement layout for one pair.
func statementCatalog(project, facility string) []execution.CatalogItem {
	prefix := project + "_EXEC_" + facility
	items := []execution.CatalogItem{
		// A - Receipts
		{Code: prefix + "_A_1", Name: "Transfers from SPIU/RBC", DisplayOrder: 1},
		{Code: prefix + "_A_2", Name: "Other incomes", DisplayOrder: 2},

		// B - Expenditures
		{Code: prefix + "_B_B-01_1", Name: "Compensation of employees", DisplayOrder: 10},
		{Code: prefix + "_B_B-02_1", Name: "Goods and services", DisplayOrder: 11},
		{Code: prefix + "_B_B-03_1", Name: "Grants and transfers", DisplayOrder: 12},

		// C - Transfers between units
		{Code: prefix + "_C_1", Name: "Transfers to other reporting entities", DisplayOrder: 20},

		// D - Financial assets
		{Code: prefix + "_D_1", Name: "Cash at bank", DisplayOrder: 30},
		{Code: prefix + "_D_2", Name: "Petty cash", DisplayOrder: 31},
		{Code: prefix + "_D_3", Name: "Receivables", DisplayOrder: 32},

		// E - Financial liabilities
		{Code: prefix + "_E_1", Name: "Payables", DisplayOrder: 40},
		{Code: prefix + "_E_E-02_1", Name: "VAT payable", DisplayOrder: 41},

		// G - Equity
		{Code: prefix + "_G_1", Name: "Accumulated Surplus/Deficit", DisplayOrder: 50},
		{Code: prefix + "_G_G-01_1", Name: "Prior Year Adjustments", DisplayOrder: 51},
		{Code: prefix + "_G_2", Name: "Surplus/Deficit of the Period", DisplayOrder: 52},
	}

	if facility == "DH" {
		items = append(items,
			execution.CatalogItem{Code: prefix + "_B_B-04_1", Name: "Contractual personnel", DisplayOrder: 13},
			execution.CatalogItem{Code: prefix + "_D_4", Name: "Advance payments", DisplayOrder: 33},
		)
	}

	return items
}
