package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/mercado-storefront/internal/domain/product"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Label returns the status in title case for display.
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(string(s))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Item is an order line. Name and price are copied from the product at the
// time of purchase.
type Item struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Variants  []product.Selection
}

// Total returns price × quantity.
func (i Item) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a placed customer order.
type Order struct {
	ID        string
	UserID    string
	InvoiceID string
	Items     []Item
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
}

// CreateRequest is the payload sent to the remote API to place an order.
type CreateRequest struct {
	Items  []Item
	Status Status
	Total  decimal.Decimal
}

// Placement is the result of placing an order. RedirectURL, when set, points
// at the payment provider.
type Placement struct {
	Order       Order
	RedirectURL string
}

// Repository defines order operations for the current user.
type Repository interface {
	Create(ctx context.Context, req CreateRequest) (*Placement, error)
	List(ctx context.Context) ([]Order, error)
}
