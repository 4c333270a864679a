/*
Package catalog provides the activity catalog: the budget line definitions
for each (project type, facility type) pair.

PURPOSE:
  The engine computes from code shapes alone; the catalog only supplies
  human-readable labels and display ordering for submitted codes. Catalogs
  can be registered programmatically, loaded from JSON, or taken from the
  built-in defaults.

JSON FORMAT:
  {
    "projectType": "HIV",
    "facilityType": "HC",
    "activities": [
      {"code": "HIV_EXEC_HC_A_1", "name": "Transfers from SPIU/RBC", "displayOrder": 1},
      ...
    ]
  }

SEE ALSO:
  - execution/store.go: The CatalogService interface this package implements
*/
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/warp/execution-engine/execution"
)

// Catalog is an in-memory CatalogService implementation.
type Catalog struct {
	mu    sync.RWMutex
	items map[catalogKey][]execution.CatalogItem
}

type catalogKey struct {
	ProjectType  string
	FacilityType string
}

func normalizeKey(projectType, facilityType string) catalogKey {
	return catalogKey{
		ProjectType:  strings.ToUpper(projectType),
		FacilityType: strings.ToUpper(facilityType),
	}
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{items: make(map[catalogKey][]execution.CatalogItem)}
}

// NewWithDefaults returns a catalog pre-populated with the built-in
// health-program catalogs.
func NewWithDefaults() *Catalog {
	c := New()
	for _, d := range defaultCatalogs() {
		c.Register(d.ProjectType, d.FacilityType, d.Activities)
	}
	return c
}

// Register installs (or replaces) the catalog for one pair. Items are kept
// sorted by display order.
func (c *Catalog) Register(projectType, facilityType string, items []execution.CatalogItem) {
	sorted := make([]execution.CatalogItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[normalizeKey(projectType, facilityType)] = sorted
}

// Lookup implements execution.CatalogService.
func (c *Catalog) Lookup(_ context.Context, projectType, facilityType string) ([]execution.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items, ok := c.items[normalizeKey(projectType, facilityType)]
	if !ok {
		return nil, fmt.Errorf("no catalog for project type %q, facility type %q", projectType, facilityType)
	}
	out := make([]execution.CatalogItem, len(items))
	copy(out, items)
	return out, nil
}

// Pairs lists the (project type, facility type) pairs with a catalog on
// file, for seeding persistent copies.
func (c *Catalog) Pairs() [][2]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out [][2]string
	for k := range c.items {
		out = append(out, [2]string{k.ProjectType, k.FacilityType})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// =============================================================================
// JSON LOADING
// =============================================================================

// Definition is the JSON shape of one catalog.
type Definition struct {
	ProjectType  string         `json:"projectType"`
	FacilityType string         `json:"facilityType"`
	Activities   []ActivityJSON `json:"activities"`
}

// ActivityJSON is one budget line definition as configured.
type ActivityJSON struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
}

// LoadJSON reads one catalog definition and registers it. Every code must
// parse against the activity code grammar; a catalog with malformed codes
// is rejected whole.
func (c *Catalog) LoadJSON(r io.Reader) (*Definition, error) {
	var def Definition
	if err := json.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}
	if def.ProjectType == "" || def.FacilityType == "" {
		return nil, fmt.Errorf("catalog definition missing projectType or facilityType")
	}

	items := make([]execution.CatalogItem, 0, len(def.Activities))
	for _, a := range def.Activities {
		if _, err := execution.ParseCode(a.Code); err != nil {
			return nil, fmt.Errorf("catalog for %s/%s: %w", def.ProjectType, def.FacilityType, err)
		}
		items = append(items, execution.CatalogItem{
			Code:         a.Code,
			Name:         a.Name,
			DisplayOrder: a.DisplayOrder,
		})
	}

	c.Register(def.ProjectType, def.FacilityType, items)
	return &def, nil
}
