package product

import "strings"

// Collection groups map a storefront slug onto several categories. Any slug
// not listed here matches only the category of the same name.
var collectionGroups = map[string][]Category{
	"APPAREL":     {CategoryHoodies, CategoryShirts, CategoryJackets},
	"ACCESSORIES": {CategoryBags, CategoryHeadwear, CategorySocks, CategoryStickers},
}

// InCollection reports whether category c belongs to the collection slug.
// Matching is case-insensitive.
func InCollection(slug string, c Category) bool {
	target := strings.ToUpper(slug)
	got := Category(strings.ToUpper(string(c)))

	if group, ok := collectionGroups[target]; ok {
		for _, member := range group {
			if got == member {
				return true
			}
		}
		return false
	}
	return string(got) == target
}

// FilterCollection returns the products whose category belongs to slug,
// preserving order.
func FilterCollection(products []Product, slug string) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if InCollection(slug, p.Category) {
			out = append(out, p)
		}
	}
	return out
}

// CollectionTitle formats a slug for display: first letter upper-cased.
func CollectionTitle(slug string) string {
	if slug == "" {
		return ""
	}
	return strings.ToUpper(slug[:1]) + slug[1:]
}
