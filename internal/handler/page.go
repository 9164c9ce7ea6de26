package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/session"
)

// Page is the data every template receives. Data holds the page specific
// part.
type Page struct {
	Title     string
	User      *auth.User
	CartCount int
	Flash     string
	Error     string
	Data      any
}

type errorData struct {
	Heading string
	Message string
}

// load prepares the common page data. fetch, when set, runs concurrently
// with the header cart count and its error is returned as is. A failing
// cart count only hides the badge.
func (h *Handler) load(r *http.Request, title string, fetch func(ctx context.Context) error) (Page, error) {
	ctx := r.Context()
	holder := auth.FromContext(ctx)

	p := Page{Title: title}
	g, gctx := errgroup.WithContext(ctx)
	if fetch != nil {
		g.Go(func() error { return fetch(gctx) })
	}
	if holder.IsAuthenticated() {
		p.User = holder.User()
		g.Go(func() error {
			n, err := h.carts.Count(gctx)
			if err != nil {
				if ctx.Err() == nil {
					zctx.From(ctx).Warn("Count cart items", zap.Error(err))
				}
				return nil
			}
			p.CartCount = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p, err
	}
	p.Flash = popFlash(ctx)
	return p, nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, p); err != nil {
		zctx.From(r.Context()).Error("Render page", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail renders the generic error page for an unexpected failure. A token
// the API no longer accepts signs the visitor out.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	if graphql.IsUnauthenticated(err) {
		if lerr := auth.FromContext(ctx).Logout(ctx); lerr != nil {
			lg.Warn("Logout after rejected token", zap.Error(lerr))
		}
		setFlash(ctx, msgSessionExpired)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(err, graphql.ErrTransport) {
		status = http.StatusBadGateway
	}
	lg.Error("Request failed", zap.Error(err))
	h.render(w, r, status, "error", Page{
		Title: "Error",
		User:  auth.FromContext(ctx).User(),
		Data: errorData{
			Heading: "Something went wrong",
			Message: "We could not load this page. Please try again.",
		},
	})
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r, "Page not found")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, heading string) {
	p, _ := h.load(r, "Not found", nil)
	p.Data = errorData{Heading: heading, Message: "It may have been removed."}
	h.render(w, r, http.StatusNotFound, "error", p)
}

// redirect finishes a mutation: it stores msg as the flash for the next page
// and sends the browser to url.
func redirect(w http.ResponseWriter, r *http.Request, url, msg string) {
	if msg != "" {
		setFlash(r.Context(), msg)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func setFlash(ctx context.Context, msg string) {
	ns, ok := session.FromContext(ctx)
	if !ok {
		return
	}
	if err := ns.SetFlash(ctx, msg); err != nil {
		zctx.From(ctx).Warn("Set flash", zap.Error(err))
	}
}

func popFlash(ctx context.Context) string {
	ns, ok := session.FromContext(ctx)
	if !ok {
		return ""
	}
	msg, err := ns.PopFlash(ctx)
	if err != nil {
		zctx.From(ctx).Warn("Pop flash", zap.Error(err))
		return ""
	}
	return msg
}
