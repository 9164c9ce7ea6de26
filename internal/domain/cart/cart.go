package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/mercado-storefront/internal/domain/product"
)

// Item is a cart line as stored by the remote API.
type Item struct {
	ID        string
	ProductID string
	Quantity  int
	Variants  []product.Selection
}

// Cart is the signed-in user's in-progress order.
type Cart struct {
	UserID    string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddRequest holds the payload for adding a product to the cart.
type AddRequest struct {
	ProductID string
	Quantity  int
	Variants  []product.Selection
}

// Repository defines cart operations for the current user. The user is
// identified by the credentials carried in ctx.
type Repository interface {
	Get(ctx context.Context) (*Cart, error)
	Add(ctx context.Context, req AddRequest) error
	// ChangeQuantity applies a signed delta to the item's quantity.
	ChangeQuantity(ctx context.Context, itemID string, change int) error
	Remove(ctx context.Context, itemID string) error
}

// Line is a cart item joined with its catalog product.
type Line struct {
	Item
	Product product.Product
	Total   decimal.Decimal
}

// UnitPrice returns the product price for one unit.
func (l Line) UnitPrice() decimal.Decimal {
	return l.Product.Price
}

// View is the display-ready cart.
type View struct {
	Lines    []Line
	Subtotal decimal.Decimal
	// Unavailable lists IDs of cart items whose product no longer exists.
	// They are excluded from Lines and Subtotal.
	Unavailable []string
}

// Total returns the amount due. Shipping is free and no tax is applied.
func (v View) Total() decimal.Decimal {
	return v.Subtotal
}

// Empty reports whether there is nothing to display or check out.
func (v View) Empty() bool {
	return len(v.Lines) == 0
}

// Enrich joins items with products by ID, computing line totals and the
// subtotal. Items whose product is missing are dropped.
func Enrich(items []Item, products []product.Product) View {
	byID := product.Index(products)

	v := View{
		Lines:    make([]Line, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			v.Unavailable = append(v.Unavailable, item.ID)
			continue
		}
		total := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		v.Lines = append(v.Lines, Line{Item: item, Product: p, Total: total})
		v.Subtotal = v.Subtotal.Add(total)
	}
	return v
}

// Count returns the total quantity across items, as shown on the cart badge.
func Count(items []Item) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
