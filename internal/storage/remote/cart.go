package remote

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/cart"
	"github.com/xenking/mercado-storefront/internal/graphql"
)

var _ cart.Repository = (*CartRepository)(nil)

const (
	cartQuery = `query GetCart {
  cart {
    userId
    createdAt
    updatedAt
    items {
      id
      productId
      quantity
      variants {
        name
        value
      }
    }
  }
}`

	createItemMutation = `mutation AddToCart($input: CreateCartItemDto!) {
  createItem(createCartItemInput: $input) {
    userId
  }
}`

	updateItemMutation = `mutation UpdateItem($id: String!, $input: UpdateCartItemDto!) {
  updateItem(id: $id, updateCartItemInput: $input) {
    id
    quantity
  }
}`

	removeItemMutation = `mutation RemoveItem($id: String!) {
  removeItem(id: $id) {
    userId
  }
}`
)

// CartRepository implements cart.Repository over GraphQL. The cart belongs
// to the user whose token is in the request context.
type CartRepository struct {
	gql GraphQL
}

// NewCartRepository returns a CartRepository that uses gql.
func NewCartRepository(gql GraphQL) *CartRepository {
	return &CartRepository{gql: gql}
}

func (r *CartRepository) Get(ctx context.Context) (*cart.Cart, error) {
	var resp struct {
		Cart *cartDTO `json:"cart"`
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         cartQuery,
		OperationName: "GetCart",
	}, &resp); err != nil {
		return nil, errors.Wrap(err, "query cart")
	}
	if resp.Cart == nil {
		return &cart.Cart{}, nil
	}
	return resp.Cart.toDomain(), nil
}

func (r *CartRepository) Add(ctx context.Context, req cart.AddRequest) error {
	input := createCartItemInput{
		ProductID: req.ProductID,
		Quantity:  float64(req.Quantity),
		Variants:  selectionsToWire(req.Variants),
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         createItemMutation,
		OperationName: "AddToCart",
		Variables:     inputVars[createCartItemInput]{Input: input},
	}, nil); err != nil {
		return errors.Wrap(err, "create item")
	}
	return nil
}

func (r *CartRepository) ChangeQuantity(ctx context.Context, itemID string, change int) error {
	vars := struct {
		ID    string              `json:"id"`
		Input updateCartItemInput `json:"input"`
	}{
		ID:    itemID,
		Input: updateCartItemInput{Change: float64(change)},
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         updateItemMutation,
		OperationName: "UpdateItem",
		Variables:     vars,
	}, nil); err != nil {
		return errors.Wrapf(err, "update item %q", itemID)
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, itemID string) error {
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         removeItemMutation,
		OperationName: "RemoveItem",
		Variables:     idVars{ID: itemID},
	}, nil); err != nil {
		return errors.Wrapf(err, "remove item %q", itemID)
	}
	return nil
}
