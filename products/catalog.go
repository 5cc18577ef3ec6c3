package products

import (
	"sort"
	"strings"

	"bakehouse/models"
	"bakehouse/utils"
)

// Sort orders accepted by the listing endpoint.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortNewest    = "newest"
	SortName      = "name"
)

// Filter narrows the storefront listing. Zero fields do not filter.
type Filter struct {
	Category string
	Search   string
	MinPrice float64
	MaxPrice float64
	Featured bool
}

func (f Filter) match(p models.Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.Featured && !p.Featured {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!hasTag(p.Tags, q) {
			return false
		}
	}
	return true
}

func hasTag(tags []string, q string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Apply returns the products matching f, keeping their order.
func Apply(list []models.Product, f Filter) []models.Product {
	out := make([]models.Product, 0, len(list))
	for _, p := range list {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Sort orders list in place. Unknown orders fall back to featured first,
// then newest. Ties always break on id.
func Sort(list []models.Product, by string) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch by {
		case SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case SortRating:
			if a.AverageRating != b.AverageRating {
				return a.AverageRating > b.AverageRating
			}
			if a.ReviewCount != b.ReviewCount {
				return a.ReviewCount > b.ReviewCount
			}
		case SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		case SortNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if a.Featured != b.Featured {
				return a.Featured
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

// Page cuts one page out of list.
func Page(list []models.Product, q utils.QueryOptions) []models.Product {
	skip := q.Skip()
	if skip < 0 || skip >= len(list) {
		return []models.Product{}
	}
	end := len(list)
	if q.Limit > 0 && q.Limit < end-skip {
		end = skip + q.Limit
	}
	return list[skip:end]
}
