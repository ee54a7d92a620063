package holdings

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// Taxonomy names one rollup dimension (asset class, sector, region, risk,
// security type, or a custom taxonomy) and the categories it's made of.
type Taxonomy struct {
	ID         string
	Name       string
	Categories []Category
}

// TaxonomyRepository is the contract SPEC_FULL.md §6 lists.
type TaxonomyRepository interface {
	TaxonomiesWithCategories(ctx context.Context) ([]Taxonomy, error)
	AssignmentsForAsset(ctx context.Context, assetID string) ([]Assignment, error)
	UpsertAssignment(ctx context.Context, a Assignment) error
}

const (
	unknownCategoryID = "__UNKNOWN__"
	unknownColor      = "#878580"
	cashCategoryID    = "CASH"
	cashColor         = "#c437c2"
)

// Category is one node in a taxonomy, optionally hierarchical.
type Category struct {
	ID       string
	ParentID string // empty for top-level
	Name     string
	Color    string
}

// Assignment maps an asset to a category with a basis-point weight
// (0-10000); an asset may carry multiple assignments within one taxonomy
// (e.g. split across two sectors). AssetID may be left blank when Assignment
// is returned from AssignmentsForAsset, since the caller already knows which
// asset it asked for; it must be set by callers that build one to persist.
type Assignment struct {
	AssetID    string
	TaxonomyID string
	CategoryID string
	WeightBP   int32
}

// CategoryAllocation is one row of a taxonomy rollup.
type CategoryAllocation struct {
	CategoryID   string
	CategoryName string
	Color        string
	Value        decimal.Decimal
	Percentage   decimal.Decimal
}

// TaxonomyAllocation is the full rollup for one taxonomy.
type TaxonomyAllocation struct {
	TaxonomyID   string
	TaxonomyName string
	Color        string
	Categories   []CategoryAllocation
}

// buildTopLevelMap maps every category id to its top-level ancestor's id,
// walking ParentID links to the root.
func buildTopLevelMap(categories []Category) map[string]string {
	parentOf := make(map[string]string, len(categories))
	for _, c := range categories {
		parentOf[c.ID] = c.ParentID
	}

	result := make(map[string]string, len(categories))
	for _, c := range categories {
		result[c.ID] = findTopLevelAncestor(c.ID, parentOf)
	}
	return result
}

func findTopLevelAncestor(categoryID string, parentOf map[string]string) string {
	parent, ok := parentOf[categoryID]
	if !ok || parent == "" {
		return categoryID
	}
	return findTopLevelAncestor(parent, parentOf)
}

// AggregateByTaxonomy rolls holdings up into one taxonomy's categories.
// Cash holdings are always excluded here; asset-class cash handling is
// layered on top by AssetClassAllocation. Assets with no assignment in
// this taxonomy fall into the Unknown bucket. rollupToTopLevel folds
// every category to its hierarchy root (used for sectors/regions).
func AggregateByTaxonomy(
	holdings []Holding,
	taxonomyID, taxonomyName, taxonomyColor string,
	categories []Category,
	assignmentsByAsset map[string][]Assignment,
	totalValue decimal.Decimal,
	rollupToTopLevel bool,
) TaxonomyAllocation {
	categoryByID := make(map[string]Category, len(categories))
	for _, c := range categories {
		categoryByID[c.ID] = c
	}

	var topLevel map[string]string
	if rollupToTopLevel {
		topLevel = buildTopLevelMap(categories)
	}

	categoryValues := make(map[string]decimal.Decimal)
	addValue := func(id string, v decimal.Decimal) {
		categoryValues[id] = categoryValues[id].Add(v)
	}

	for _, h := range holdings {
		if h.Type == HoldingCash {
			continue
		}
		marketValue := h.MarketValue.Base

		assignments, ok := assignmentsByAsset[h.AssetID]
		if !ok {
			addValue(unknownCategoryID, marketValue)
			continue
		}

		var matched bool
		for _, a := range assignments {
			if a.TaxonomyID != taxonomyID {
				continue
			}
			matched = true
			weight := decimal.New(int64(a.WeightBP), 0).Div(decimal.New(10000, 0))
			effectiveID := a.CategoryID
			if rollupToTopLevel {
				if top, ok := topLevel[a.CategoryID]; ok {
					effectiveID = top
				}
			}
			addValue(effectiveID, marketValue.Mul(weight))
		}
		if !matched {
			addValue(unknownCategoryID, marketValue)
		}
	}

	allocations := make([]CategoryAllocation, 0, len(categoryValues))
	for id, value := range categoryValues {
		if !value.IsPositive() {
			continue
		}
		name, color := id, "#808080"
		if id == unknownCategoryID {
			name, color = "Unknown", unknownColor
		} else if c, ok := categoryByID[id]; ok {
			name, color = c.Name, c.Color
		}
		allocations = append(allocations, CategoryAllocation{
			CategoryID:   id,
			CategoryName: name,
			Color:        color,
			Value:        value,
			Percentage:   percentOf(value, totalValue),
		})
	}

	sort.Slice(allocations, func(i, j int) bool { return allocations[i].Value.GreaterThan(allocations[j].Value) })

	return TaxonomyAllocation{
		TaxonomyID:   taxonomyID,
		TaxonomyName: taxonomyName,
		Color:        taxonomyColor,
		Categories:   allocations,
	}
}

// AssetClassAllocation is AggregateByTaxonomy (no rollup) plus a synthetic
// Cash category absorbing every cash holding's value, since cash has no
// taxonomy assignment of its own. The cash-inclusive total (totalWithCash)
// is used for percentages, unlike the asset-only taxonomies.
func AssetClassAllocation(
	holdings []Holding,
	taxonomyID, taxonomyName, taxonomyColor string,
	categories []Category,
	assignmentsByAsset map[string][]Assignment,
	totalWithCash decimal.Decimal,
) TaxonomyAllocation {
	alloc := AggregateByTaxonomy(holdings, taxonomyID, taxonomyName, taxonomyColor, categories, assignmentsByAsset, totalWithCash, false)

	cashValue := money.Zero
	for _, h := range holdings {
		if h.Type == HoldingCash {
			cashValue = cashValue.Add(h.MarketValue.Base)
		}
	}
	if !cashValue.IsPositive() {
		return alloc
	}

	found := false
	for i, c := range alloc.Categories {
		if c.CategoryID == cashCategoryID {
			alloc.Categories[i].Value = c.Value.Add(cashValue)
			alloc.Categories[i].Percentage = percentOf(alloc.Categories[i].Value, totalWithCash)
			found = true
			break
		}
	}
	if !found {
		alloc.Categories = append(alloc.Categories, CategoryAllocation{
			CategoryID:   cashCategoryID,
			CategoryName: "Cash",
			Color:        cashColor,
			Value:        cashValue,
			Percentage:   percentOf(cashValue, totalWithCash),
		})
	}

	sort.Slice(alloc.Categories, func(i, j int) bool { return alloc.Categories[i].Value.GreaterThan(alloc.Categories[j].Value) })
	return alloc
}

func percentOf(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return money.Zero
	}
	return value.Div(total).Mul(decimal.New(100, 0)).Round(2)
}

// TotalValue sums MarketValue.Base across every holding, cash included.
func TotalValue(holdings []Holding) decimal.Decimal {
	total := money.Zero
	for _, h := range holdings {
		total = total.Add(h.MarketValue.Base)
	}
	return total
}

// TotalAssetValue sums MarketValue.Base across non-cash holdings only,
// the denominator AggregateByTaxonomy's non-asset-class callers use.
func TotalAssetValue(holdings []Holding) decimal.Decimal {
	total := money.Zero
	for _, h := range holdings {
		if h.Type == HoldingCash {
			continue
		}
		total = total.Add(h.MarketValue.Base)
	}
	return total
}
