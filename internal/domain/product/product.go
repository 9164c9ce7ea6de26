package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrUnknownCategory is returned when a category value is outside the catalog enumeration.
var ErrUnknownCategory = errors.New("unknown category")

// Category is the closed enumeration of catalog categories.
type Category string

const (
	CategoryBags        Category = "BAGS"
	CategoryDrinkware   Category = "DRINKWARE"
	CategoryElectronics Category = "ELECTRONICS"
	CategoryFootware    Category = "FOOTWARE"
	CategoryHeadwear    Category = "HEADWEAR"
	CategoryHoodies     Category = "HOODIES"
	CategoryJackets     Category = "JACKETS"
	CategoryKids        Category = "KIDS"
	CategoryPets        Category = "PETS"
	CategoryShirts      Category = "SHIRTS"
	CategoryStickers    Category = "STICKERS"

	// CategorySocks is matched by the accessories collection even though the
	// remote API does not currently define it.
	CategorySocks Category = "SOCKS"
)

var categories = []Category{
	CategoryBags,
	CategoryDrinkware,
	CategoryElectronics,
	CategoryFootware,
	CategoryHeadwear,
	CategoryHoodies,
	CategoryJackets,
	CategoryKids,
	CategoryPets,
	CategoryShirts,
	CategoryStickers,
}

// Categories returns the categories accepted by the remote API, in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory parses s case-insensitively into a known Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownCategory, "%q", s)
}

// Variant is a named customization axis with a closed set of options.
type Variant struct {
	Name    string
	Options []string
}

// HasOption reports whether value is one of the variant's options.
func (v Variant) HasOption(value string) bool {
	for _, o := range v.Options {
		if o == value {
			return true
		}
	}
	return false
}

// Selection is a chosen value for one variant group.
type Selection struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product represents a catalog item as served by the remote API.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURLs   []string
	Category    Category
	Variants    []Variant
}

// PrimaryImage returns the first image URL or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

// InStock reports whether the product has any stock left.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Repository defines catalog operations backed by the remote API.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, in CreateInput) (*Product, error)
	Remove(ctx context.Context, id string) error
}

// Index maps products by ID.
func Index(products []Product) map[string]Product {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
