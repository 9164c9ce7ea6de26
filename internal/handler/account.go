package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/session"
)

type accountForm struct {
	Email string
}

// LoginPage shows the sign-in form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderAccount(w, r, http.StatusOK, "login", "", "")
}

// Login exchanges the submitted credentials for a token and stores the
// session. Attempts are throttled per email.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	email := strings.TrimSpace(r.PostForm.Get("email"))

	if h.limiter != nil {
		if d := h.limiter.Allow(strings.ToLower(email), h.now()); !d.Allowed {
			zctx.From(ctx).Warn("Login throttled")
			h.renderAccount(w, r, http.StatusTooManyRequests, "login", email, msgTooManyAttempts)
			return
		}
	}

	// A fresh session ID for every sign-in attempt, so an ID planted in the
	// browser beforehand is never the one that becomes authenticated.
	ns, err := session.Renew(ctx, session.KeyFlash, auth.KeyUser, auth.KeyToken)
	if err != nil {
		h.fail(w, r, errors.Wrap(err, "renew session"))
		return
	}
	holder := auth.NewHolder(ns)
	if err := holder.Restore(ctx); err != nil {
		zctx.From(ctx).Warn("Restore renewed session", zap.Error(err))
	}
	ctx = auth.WithHolder(session.WithNamespace(ctx, ns), holder)
	r = r.WithContext(ctx)

	err = h.auth.Login(ctx, holder, auth.Credentials{
		Email:    email,
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		if msg, ok := localMessage(err); ok {
			h.renderAccount(w, r, http.StatusUnauthorized, "login", email, msg)
			return
		}
		zctx.From(ctx).Error("Login", zap.Error(err))
		h.renderAccount(w, r, http.StatusBadGateway, "login", email, msgLoginFailed)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterPage shows the sign-up form.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderAccount(w, r, http.StatusOK, "register", "", "")
}

// Register creates an account and sends the visitor to the login page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	form := auth.Registration{
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirm_password"),
	}

	if _, err := h.auth.Register(r.Context(), form); err != nil {
		status := http.StatusBadGateway
		if _, local := localMessage(err); local {
			status = http.StatusUnprocessableEntity
		} else if _, ok := errors.Into[*graphql.Error](err); ok {
			status = http.StatusUnprocessableEntity
		}
		h.renderAccount(w, r, status, "register", form.Email, registerMessage(err))
		return
	}
	redirect(w, r, "/login", msgAccountCreated)
}

// Logout clears the stored session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := auth.FromContext(ctx).Logout(ctx); err != nil {
		zctx.From(ctx).Warn("Logout", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderAccount(w http.ResponseWriter, r *http.Request, status int, page, email, msg string) {
	title := "Login"
	if page == "register" {
		title = "Create Account"
	}
	p, err := h.load(r, title, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p.Error = msg
	p.Data = accountForm{Email: email}
	h.render(w, r, status, page, p)
}
