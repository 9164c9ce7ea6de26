package remote

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/product"
	"github.com/xenking/mercado-storefront/internal/graphql"
)

var _ product.Repository = (*ProductRepository)(nil)

const productFields = `
    id
    name
    description
    price
    stock
    imageUrls
    category
    variants {
      name
      options
    }`

const (
	productsQuery = `query GetProducts {
  products {` + productFields + `
  }
}`

	productQuery = `query GetProduct($id: String!) {
  product(id: $id) {` + productFields + `
  }
}`

	createProductMutation = `mutation CreateProduct($input: CreateProductDto!) {
  createProduct(createProductInput: $input) {` + productFields + `
  }
}`

	removeProductMutation = `mutation RemoveProduct($id: String!) {
  removeProduct(id: $id) {
    id
  }
}`
)

// ProductRepository implements product.Repository over GraphQL.
type ProductRepository struct {
	gql GraphQL
}

// NewProductRepository returns a ProductRepository that uses gql.
func NewProductRepository(gql GraphQL) *ProductRepository {
	return &ProductRepository{gql: gql}
}

// List returns the full catalog.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	var resp struct {
		Products []productDTO `json:"products"`
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         productsQuery,
		OperationName: "GetProducts",
	}, &resp); err != nil {
		return nil, errors.Wrap(err, "query products")
	}

	out := make([]product.Product, len(resp.Products))
	for i, p := range resp.Products {
		out[i] = p.toDomain()
	}
	return out, nil
}

// GetByID returns a single product. A null result or a NOT_FOUND error maps
// to product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var resp struct {
		Product *productDTO `json:"product"`
	}
	err := r.gql.Do(ctx, graphql.Request{
		Query:         productQuery,
		OperationName: "GetProduct",
		Variables:     idVars{ID: id},
	}, &resp)
	if graphql.IsNotFound(err) {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query product %q", id)
	}
	if resp.Product == nil {
		return nil, product.ErrNotFound
	}

	p := resp.Product.toDomain()
	return &p, nil
}

// Create adds a product to the catalog.
func (r *ProductRepository) Create(ctx context.Context, in product.CreateInput) (*product.Product, error) {
	input := createProductInput{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.InexactFloat64(),
		Stock:       float64(in.Stock),
		Category:    string(in.Category),
		ImageURLs:   in.ImageURLs,
		Variants:    make([]variantDTO, len(in.Variants)),
	}
	if input.ImageURLs == nil {
		input.ImageURLs = []string{}
	}
	for i, v := range in.Variants {
		input.Variants[i] = variantDTO{Name: v.Name, Options: v.Options}
	}

	var resp struct {
		CreateProduct productDTO `json:"createProduct"`
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         createProductMutation,
		OperationName: "CreateProduct",
		Variables:     inputVars[createProductInput]{Input: input},
	}, &resp); err != nil {
		return nil, errors.Wrap(err, "create product")
	}

	p := resp.CreateProduct.toDomain()
	return &p, nil
}

// Remove deletes a product from the catalog.
func (r *ProductRepository) Remove(ctx context.Context, id string) error {
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         removeProductMutation,
		OperationName: "RemoveProduct",
		Variables:     idVars{ID: id},
	}, nil); err != nil {
		return errors.Wrapf(err, "remove product %q", id)
	}
	return nil
}
