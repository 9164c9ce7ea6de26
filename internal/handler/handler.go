// Package handler serves the storefront pages.
//
// Every page is rendered on the server from data fetched through the domain
// services. Mutations follow POST-redirect-GET and report their outcome
// through a flash message stored in the session.
package handler

import (
	"context"
	"io"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/domain/cart"
	"github.com/xenking/mercado-storefront/internal/domain/order"
	"github.com/xenking/mercado-storefront/internal/domain/product"
	"github.com/xenking/mercado-storefront/pkg/httpmiddleware"
)

// Renderer writes a named page.
type Renderer interface {
	Render(w io.Writer, page string, data any) error
}

// ImageUploader stores an uploaded product image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Deps are the collaborators a Handler needs.
type Deps struct {
	Products product.Repository
	Carts    *cart.Service
	Orders   *order.Service
	Auth     *auth.Service
	Uploader ImageUploader
	Renderer Renderer
	// LoginLimiter throttles sign-in attempts per email. Nil disables it.
	LoginLimiter *httpmiddleware.Limiter
}

// Handler implements the storefront routes.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	orders   *order.Service
	auth     *auth.Service
	uploader ImageUploader
	renderer Renderer
	limiter  *httpmiddleware.Limiter

	now func() time.Time
}

// New creates a Handler.
func New(d Deps) *Handler {
	return &Handler{
		products: d.Products,
		carts:    d.Carts,
		orders:   d.Orders,
		auth:     d.Auth,
		uploader: d.Uploader,
		renderer: d.Renderer,
		limiter:  d.LoginLimiter,
		now:      time.Now,
	}
}

// Routes returns the page router. Session and authentication middlewares
// must run before it; see Authenticate.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Home)
	r.Get("/collections/{category}", h.Collection)
	r.Get("/products/{productID}", h.Product)
	r.Post("/products/{productID}/cart", h.AddToCart)

	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.Register)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(requireLogin)
		r.Post("/cart/items/{itemID}", h.UpdateCartItem)
		r.Get("/checkout", h.CheckoutPage)
		r.Post("/checkout", h.Checkout)
		r.Get("/orders", h.OrdersPage)

		r.Get("/admin", h.AdminPage)
		r.Post("/admin/products", h.CreateProduct)
		r.Post("/admin/products/{productID}/delete", h.DeleteProduct)
		r.Post("/admin/users/{userID}/delete", h.DeleteUser)
	})
	r.Get("/cart", h.CartPage)
	r.Get("/api/cart/count", h.CartCount)

	r.NotFound(h.NotFound)
	return r
}
