package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/domain/product"
)

// variantField prefixes the form field carrying a variant group's value.
const variantField = "variant."

type listingData struct {
	Heading  string
	Products []product.Product
}

type productData struct {
	Product  product.Product
	Selected map[string]string
	Quantity int
}

// Home lists the whole catalog.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	var products []product.Product
	p, err := h.load(r, "", func(ctx context.Context) error {
		var err error
		products, err = h.products.List(ctx)
		return err
	})
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	p.Data = listingData{Heading: "New Arrivals", Products: products}
	h.render(w, r, http.StatusOK, "home", p)
}

// Collection lists the products of one collection slug.
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "category")
	title := product.CollectionTitle(slug)

	var products []product.Product
	p, err := h.load(r, title, func(ctx context.Context) error {
		all, err := h.products.List(ctx)
		if err != nil {
			return err
		}
		products = product.FilterCollection(all, slug)
		return nil
	})
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	p.Data = listingData{Heading: title, Products: products}
	h.render(w, r, http.StatusOK, "home", p)
}

// Product shows one product with its variant picker.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	prod, p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	p.Data = productData{Product: *prod, Selected: map[string]string{}, Quantity: 1}
	h.render(w, r, http.StatusOK, "product", p)
}

// AddToCart validates the variant selection and adds the product to the
// visitor's cart. Validation failures re-render the product page keeping
// the visitor's choices.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	prod, p, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	selected := make(map[string]string, len(prod.Variants))
	for _, v := range prod.Variants {
		selected[v.Name] = strings.TrimSpace(r.PostForm.Get(variantField + v.Name))
	}
	quantity, err := strconv.Atoi(r.PostForm.Get("quantity"))
	if err != nil || quantity < 1 {
		quantity = 1
	}
	p.Data = productData{Product: *prod, Selected: selected, Quantity: quantity}

	ctx := r.Context()
	if !auth.FromContext(ctx).IsAuthenticated() {
		p.Error = msgLoginRequired
		h.render(w, r, http.StatusUnauthorized, "product", p)
		return
	}

	if err := h.carts.Add(ctx, *prod, quantity, selected); err != nil {
		if msg, ok := localMessage(err); ok {
			p.Error = msg
			h.render(w, r, http.StatusUnprocessableEntity, "product", p)
			return
		}
		p.Error = failureMessage(prefixAddToCart, err)
		h.render(w, r, http.StatusBadGateway, "product", p)
		return
	}
	redirect(w, r, "/products/"+prod.ID, msgAddedToCart)
}

// loadProduct fetches the product named in the URL. It writes the response
// itself and returns false when the product is missing or the lookup fails.
func (h *Handler) loadProduct(w http.ResponseWriter, r *http.Request) (*product.Product, Page, bool) {
	id := chi.URLParam(r, "productID")

	var prod *product.Product
	p, err := h.load(r, "", func(ctx context.Context) error {
		var err error
		prod, err = h.products.GetByID(ctx, id)
		return err
	})
	switch {
	case errors.Is(err, product.ErrNotFound):
		h.notFound(w, r, "Product not found")
		return nil, p, false
	case err != nil:
		h.fail(w, r, errors.Wrap(err, "get product"))
		return nil, p, false
	}
	p.Title = prod.Name
	return prod, p, true
}
