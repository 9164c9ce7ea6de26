package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mercado-storefront/internal/domain/product"
)

var (
	// ErrItemNotFound is returned when a cart item ID is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrMinimumQuantity is returned when a decrement would take an item below one.
	ErrMinimumQuantity = errors.New("quantity cannot go below 1")
)

// Service encapsulates cart reads and mutations on top of the remote API.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// View fetches the cart and the catalog concurrently and enriches the items.
func (s *Service) View(ctx context.Context) (View, error) {
	var (
		c        *Cart
		products []product.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if c, err = s.carts.Get(gctx); err != nil {
			return errors.Wrap(err, "get cart")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if products, err = s.products.List(gctx); err != nil {
			return errors.Wrap(err, "list products")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	v := Enrich(c.Items, products)
	if len(v.Unavailable) > 0 {
		zctx.From(ctx).Warn("Cart items reference missing products",
			zap.Strings("item_ids", v.Unavailable),
		)
	}
	return v, nil
}

// Count returns the number of units in the cart.
func (s *Service) Count(ctx context.Context) (int, error) {
	c, err := s.carts.Get(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "get cart")
	}
	return Count(c.Items), nil
}

// Add validates the variant selection locally and adds the product to the
// cart. No request is sent when validation fails.
func (s *Service) Add(ctx context.Context, p product.Product, quantity int, selected map[string]string) error {
	variants, err := p.SelectVariants(selected)
	if err != nil {
		return err
	}
	if quantity < 1 {
		quantity = 1
	}

	if err := s.carts.Add(ctx, AddRequest{
		ProductID: p.ID,
		Quantity:  quantity,
		Variants:  variants,
	}); err != nil {
		return errors.Wrap(err, "add item")
	}
	return nil
}

// Increment adds one unit to the item.
func (s *Service) Increment(ctx context.Context, itemID string) error {
	if err := s.carts.ChangeQuantity(ctx, itemID, 1); err != nil {
		return errors.Wrap(err, "increment item")
	}
	return nil
}

// Decrement removes one unit from the item, refusing to go below one.
func (s *Service) Decrement(ctx context.Context, itemID string) error {
	c, err := s.carts.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "get cart")
	}

	var item *Item
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			item = &c.Items[i]
			break
		}
	}
	if item == nil {
		return ErrItemNotFound
	}
	if item.Quantity <= 1 {
		return ErrMinimumQuantity
	}

	if err := s.carts.ChangeQuantity(ctx, itemID, -1); err != nil {
		return errors.Wrap(err, "decrement item")
	}
	return nil
}

// Remove deletes the item from the cart.
func (s *Service) Remove(ctx context.Context, itemID string) error {
	if err := s.carts.Remove(ctx, itemID); err != nil {
		return errors.Wrap(err, "remove item")
	}
	return nil
}
