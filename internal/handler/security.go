package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/session"
)

// Authenticate restores the auth state of the request's session and makes
// the stored token available to outgoing GraphQL calls. It must run after
// the session middleware. A session that cannot be read is served logged
// out.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ns, ok := session.FromContext(ctx)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		holder := auth.NewHolder(ns)
		if err := holder.Restore(ctx); err != nil {
			zctx.From(ctx).Warn("Restore session", zap.Error(err))
		}
		ctx = auth.WithHolder(ctx, holder)
		if token := holder.Token(); token != "" {
			ctx = graphql.WithToken(ctx, token)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireLogin sends anonymous visitors to the login page.
func requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).IsAuthenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
