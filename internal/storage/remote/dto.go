package remote

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/domain/cart"
	"github.com/xenking/mercado-storefront/internal/domain/order"
	"github.com/xenking/mercado-storefront/internal/domain/product"
)

// Wire types mirror the API's GraphQL models. Numeric fields are GraphQL
// Floats; prices decode straight into decimal.Decimal.

type variantDTO struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

type selectionDTO struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       float64         `json:"stock"`
	ImageURLs   []string        `json:"imageUrls"`
	Category    string          `json:"category"`
	Variants    []variantDTO    `json:"variants"`
}

func (d productDTO) toDomain() product.Product {
	p := product.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Stock:       int(d.Stock),
		ImageURLs:   d.ImageURLs,
		Category:    product.Category(d.Category),
	}
	if len(d.Variants) > 0 {
		p.Variants = make([]product.Variant, len(d.Variants))
		for i, v := range d.Variants {
			p.Variants[i] = product.Variant{Name: v.Name, Options: v.Options}
		}
	}
	return p
}

type cartItemDTO struct {
	ID        string         `json:"id"`
	ProductID string         `json:"productId"`
	Quantity  float64        `json:"quantity"`
	Variants  []selectionDTO `json:"variants"`
}

func (d cartItemDTO) toDomain() cart.Item {
	return cart.Item{
		ID:        d.ID,
		ProductID: d.ProductID,
		Quantity:  int(d.Quantity),
		Variants:  selectionsToDomain(d.Variants),
	}
}

type cartDTO struct {
	UserID    string        `json:"userId"`
	Items     []cartItemDTO `json:"items"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (d cartDTO) toDomain() *cart.Cart {
	c := &cart.Cart{
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Items:     make([]cart.Item, len(d.Items)),
	}
	for i, item := range d.Items {
		c.Items[i] = item.toDomain()
	}
	return c
}

type orderItemDTO struct {
	Name      string          `json:"name"`
	ProductID string          `json:"productId"`
	Quantity  float64         `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Variants  []selectionDTO  `json:"variants"`
}

type orderDTO struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	InvoiceID  string          `json:"invoiceId"`
	Status     string          `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	OrderItems []orderItemDTO  `json:"orderItems"`
}

func (d orderDTO) toDomain() order.Order {
	o := order.Order{
		ID:        d.ID,
		UserID:    d.UserID,
		InvoiceID: d.InvoiceID,
		Status:    order.Status(d.Status),
		CreatedAt: d.Timestamp,
		Total:     d.TotalPrice,
		Items:     make([]order.Item, len(d.OrderItems)),
	}
	for i, item := range d.OrderItems {
		o.Items[i] = order.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  int(item.Quantity),
			Price:     item.Price,
			Variants:  selectionsToDomain(item.Variants),
		}
	}
	return o
}

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (d userDTO) toDomain() auth.User {
	return auth.User{ID: d.ID, Email: d.Email}
}

func selectionsToDomain(in []selectionDTO) []product.Selection {
	if len(in) == 0 {
		return nil
	}
	out := make([]product.Selection, len(in))
	for i, s := range in {
		out[i] = product.Selection{Name: s.Name, Value: s.Value}
	}
	return out
}

func selectionsToWire(in []product.Selection) []selectionDTO {
	out := make([]selectionDTO, len(in))
	for i, s := range in {
		out[i] = selectionDTO{Name: s.Name, Value: s.Value}
	}
	return out
}

// Input types. Prices are sent as JSON numbers since the API takes Float.

type createProductInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       float64      `json:"price"`
	Stock       float64      `json:"stock"`
	Category    string       `json:"category"`
	ImageURLs   []string     `json:"imageUrls"`
	Variants    []variantDTO `json:"variants"`
}

type createCartItemInput struct {
	ProductID string         `json:"productId"`
	Quantity  float64        `json:"quantity"`
	Variants  []selectionDTO `json:"variants"`
}

type updateCartItemInput struct {
	Change float64 `json:"change"`
}

type orderItemInput struct {
	Name      string         `json:"name"`
	ProductID string         `json:"productId"`
	Quantity  float64        `json:"quantity"`
	Price     float64        `json:"price"`
	Variants  []selectionDTO `json:"variants"`
}

type createOrderInput struct {
	OrderItems []orderItemInput `json:"orderItems"`
	Status     string           `json:"status"`
	TotalPrice float64          `json:"totalPrice"`
}

type createUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type inputVars[T any] struct {
	Input T `json:"input"`
}

type idVars struct {
	ID string `json:"id"`
}
