package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/mercado-storefront/internal/domain/cart"
)

// ErrEmptyCart is returned when checkout is attempted with nothing to buy.
var ErrEmptyCart = errors.New("cart is empty")

// NewRequest builds the order payload from an enriched cart: one item per
// line, status PENDING, total equal to the subtotal.
func NewRequest(v cart.View) (CreateRequest, error) {
	if v.Empty() {
		return CreateRequest{}, ErrEmptyCart
	}

	items := make([]Item, len(v.Lines))
	for i, l := range v.Lines {
		items[i] = Item{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice(),
			Variants:  l.Variants,
		}
	}
	return CreateRequest{
		Items:  items,
		Status: StatusPending,
		Total:  v.Total(),
	}, nil
}

// Service encapsulates checkout and order history.
type Service struct {
	carts  *cart.Service
	orders Repository
}

// NewService creates an order Service.
func NewService(carts *cart.Service, orders Repository) *Service {
	return &Service{
		carts:  carts,
		orders: orders,
	}
}

// Checkout validates the shipping address, re-reads the cart so totals
// reflect the current catalog, and places the order.
func (s *Service) Checkout(ctx context.Context, addr Address) (*Placement, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	v, err := s.carts.View(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	req, err := NewRequest(v)
	if err != nil {
		return nil, err
	}

	p, err := s.orders.Create(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", p.Order.ID),
		zap.Int("items", len(req.Items)),
		zap.String("total", req.Total.StringFixed(2)),
		zap.String("city", addr.Normalize().City),
		zap.Bool("payment_redirect", p.RedirectURL != ""),
	)
	return p, nil
}

// List returns the current user's orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}
