package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/cart"
	"github.com/xenking/mercado-storefront/internal/domain/order"
	"github.com/xenking/mercado-storefront/internal/graphql"
)

type checkoutData struct {
	View    cart.View
	Address order.Address
}

type ordersData struct {
	Orders []order.Order
}

// CheckoutPage shows the address form next to the order summary. An empty
// cart sends the visitor back to the cart page.
func (h *Handler) CheckoutPage(w http.ResponseWriter, r *http.Request) {
	h.renderCheckout(w, r, http.StatusOK, order.Address{Country: order.DefaultCountry}, "")
}

// Checkout places the order. A payment redirect URL returned by the API is
// followed, otherwise the visitor lands on the home page.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	addr := order.Address{
		Street: r.PostForm.Get("street"),
		City:   r.PostForm.Get("city"),
		Zip:    r.PostForm.Get("zip"),
	}.Normalize()

	placement, err := h.orders.Checkout(r.Context(), addr)
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	case graphql.IsUnauthenticated(err):
		h.fail(w, r, err)
		return
	case err != nil:
		status := http.StatusBadGateway
		if _, local := localMessage(err); local {
			status = http.StatusUnprocessableEntity
		}
		h.renderCheckout(w, r, status, addr, failureMessage(prefixCheckout, err))
		return
	}

	if placement.RedirectURL != "" {
		http.Redirect(w, r, placement.RedirectURL, http.StatusSeeOther)
		return
	}
	redirect(w, r, "/", msgOrderPlaced)
}

func (h *Handler) renderCheckout(w http.ResponseWriter, r *http.Request, status int, addr order.Address, msg string) {
	var view cart.View
	p, err := h.load(r, "Checkout", func(ctx context.Context) error {
		var err error
		view, err = h.carts.View(ctx)
		return err
	})
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "view cart"))
		return
	}
	if view.Empty() {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	p.Error = msg
	p.Data = checkoutData{View: view, Address: addr}
	h.render(w, r, status, "checkout", p)
}

// OrdersPage lists the signed-in user's orders.
func (h *Handler) OrdersPage(w http.ResponseWriter, r *http.Request) {
	var orders []order.Order
	p, err := h.load(r, "Orders", func(ctx context.Context) error {
		var err error
		orders, err = h.orders.List(ctx)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p.Data = ordersData{Orders: orders}
	h.render(w, r, http.StatusOK, "orders", p)
}
