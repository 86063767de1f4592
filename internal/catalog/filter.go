package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey enumerates the catalog orderings offered by the storefront.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortName      SortKey = "name"
)

// ParseSortKey maps a query parameter to a SortKey.
// Unknown or empty values fall back to newest, matching the storefront default.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortPriceLow, SortPriceHigh, SortName:
		return SortKey(s)
	default:
		return SortNewest
	}
}

// FilterAndSort derives the sequence to render from the last-fetched product
// set: a case-insensitive substring match on the name, then the requested
// ordering. The sort is stable, so equal keys keep their fetch order. The
// input slice is never modified; a fresh slice is returned on every call.
func FilterAndSort(products []Product, search string, key SortKey) []Product {
	needle := strings.ToLower(strings.TrimSpace(search))
	result := make([]Product, 0, len(products))
	for _, p := range products {
		if needle == "" || strings.Contains(strings.ToLower(p.Name), needle) {
			result = append(result, p)
		}
	}

	switch key {
	case SortPriceLow:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Price < result[j].Price
		})
	case SortPriceHigh:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Price > result[j].Price
		})
	case SortName:
		// Locale-aware comparison, the way the storefront sorts names.
		c := collate.New(language.Und)
		sort.SliceStable(result, func(i, j int) bool {
			return c.CompareString(result[i].Name, result[j].Name) < 0
		})
	default: // SortNewest
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}
	return result
}
