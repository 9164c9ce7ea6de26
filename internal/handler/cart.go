package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/domain/cart"
	"github.com/xenking/mercado-storefront/internal/graphql"
)

type cartData struct {
	View cart.View
}

// CartPage shows the enriched cart. Anonymous visitors get a prompt to log
// in instead.
func (h *Handler) CartPage(w http.ResponseWriter, r *http.Request) {
	var view cart.View
	var fetch func(ctx context.Context) error
	if auth.FromContext(r.Context()).IsAuthenticated() {
		fetch = func(ctx context.Context) error {
			var err error
			view, err = h.carts.View(ctx)
			return err
		}
	}
	p, err := h.load(r, "Shopping Bag", fetch)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "view cart"))
		return
	}
	p.Data = cartData{View: view}
	h.render(w, r, http.StatusOK, "cart", p)
}

// UpdateCartItem applies the form's action (inc, dec or remove) to one item
// and returns to the cart.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := chi.URLParam(r, "itemID")

	var err error
	switch action := r.PostFormValue("action"); action {
	case "inc":
		err = h.carts.Increment(ctx, itemID)
	case "dec":
		err = h.carts.Decrement(ctx, itemID)
	case "remove":
		err = h.carts.Remove(ctx, itemID)
	default:
		http.Error(w, "unknown cart action", http.StatusBadRequest)
		return
	}
	if err != nil {
		if graphql.IsUnauthenticated(err) {
			h.fail(w, r, err)
			return
		}
		redirect(w, r, "/cart", failureMessage(prefixUpdateCart, err))
		return
	}
	redirect(w, r, "/cart", "")
}

// CartCount answers {"count":N} for the header badge. Anonymous visitors
// always have zero items.
func (h *Handler) CartCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count := 0
	if auth.FromContext(ctx).IsAuthenticated() {
		n, err := h.carts.Count(ctx)
		if err != nil {
			writeJSONError(w, http.StatusBadGateway, "cart unavailable")
			return
		}
		count = n
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("count", func(e *jx.Encoder) { e.Int(count) })
	})
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(e.Bytes())
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
