package remote

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/order"
	"github.com/xenking/mercado-storefront/internal/graphql"
)

var _ order.Repository = (*OrderRepository)(nil)

const orderFields = `
    id
    userId
    invoiceId
    status
    timestamp
    totalPrice
    orderItems {
      name
      productId
      quantity
      price
      variants {
        name
        value
      }
    }`

const (
	ordersQuery = `query GetOrders {
  orders {` + orderFields + `
  }
}`

	createOrderMutation = `mutation CreateOrder($input: CreateOrderDto!) {
  createOrder(createOrderInput: $input) {
    order {` + orderFields + `
    }
    redirectUrl
  }
}`
)

// OrderRepository implements order.Repository over GraphQL.
type OrderRepository struct {
	gql GraphQL
}

// NewOrderRepository returns an OrderRepository that uses gql.
func NewOrderRepository(gql GraphQL) *OrderRepository {
	return &OrderRepository{gql: gql}
}

// Create places an order and returns it with the payment redirect URL.
func (r *OrderRepository) Create(ctx context.Context, req order.CreateRequest) (*order.Placement, error) {
	input := createOrderInput{
		OrderItems: make([]orderItemInput, len(req.Items)),
		Status:     string(req.Status),
		TotalPrice: req.Total.InexactFloat64(),
	}
	for i, item := range req.Items {
		input.OrderItems[i] = orderItemInput{
			Name:      item.Name,
			ProductID: item.ProductID,
			Quantity:  float64(item.Quantity),
			Price:     item.Price.InexactFloat64(),
			Variants:  selectionsToWire(item.Variants),
		}
	}

	var resp struct {
		CreateOrder struct {
			Order       orderDTO `json:"order"`
			RedirectURL string   `json:"redirectUrl"`
		} `json:"createOrder"`
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         createOrderMutation,
		OperationName: "CreateOrder",
		Variables:     inputVars[createOrderInput]{Input: input},
	}, &resp); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &order.Placement{
		Order:       resp.CreateOrder.Order.toDomain(),
		RedirectURL: resp.CreateOrder.RedirectURL,
	}, nil
}

// List returns the current user's orders.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	var resp struct {
		Orders []orderDTO `json:"orders"`
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         ordersQuery,
		OperationName: "GetOrders",
	}, &resp); err != nil {
		return nil, errors.Wrap(err, "query orders")
	}

	out := make([]order.Order, len(resp.Orders))
	for i, o := range resp.Orders {
		out[i] = o.toDomain()
	}
	return out, nil
}
