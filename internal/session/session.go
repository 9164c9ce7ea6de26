// Package session keeps per-browser key/value state behind an opaque cookie.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeyFlash holds a one-shot message shown on the next rendered page.
const KeyFlash = "flash"

// Store persists session values keyed by session ID.
type Store interface {
	Get(ctx context.Context, sid, key string) (value string, ok bool, err error)
	Set(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid string, keys ...string) error
}

// Namespace binds a Store to one session ID.
type Namespace struct {
	store Store
	id    string
}

// NewNamespace returns the namespace for session id.
func NewNamespace(store Store, id string) Namespace {
	return Namespace{store: store, id: id}
}

// ID returns the session ID.
func (n Namespace) ID() string { return n.id }

func (n Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	return n.store.Get(ctx, n.id, key)
}

func (n Namespace) Set(ctx context.Context, key, value string) error {
	return n.store.Set(ctx, n.id, key, value)
}

func (n Namespace) Delete(ctx context.Context, keys ...string) error {
	return n.store.Delete(ctx, n.id, keys...)
}

// SetFlash stores msg for the next page render.
func (n Namespace) SetFlash(ctx context.Context, msg string) error {
	return n.Set(ctx, KeyFlash, msg)
}

// PopFlash returns and clears the pending flash message.
func (n Namespace) PopFlash(ctx context.Context) (string, error) {
	msg, ok, err := n.Get(ctx, KeyFlash)
	if err != nil {
		return "", errors.Wrap(err, "get flash")
	}
	if !ok {
		return "", nil
	}
	if err := n.Delete(ctx, KeyFlash); err != nil {
		return "", errors.Wrap(err, "delete flash")
	}
	return msg, nil
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Manager issues session cookies and attaches the Namespace to requests.
type Manager struct {
	store  Store
	cookie CookieConfig
}

// NewManager creates a Manager. An empty cookie name defaults to
// "mercado_session".
func NewManager(store Store, cookie CookieConfig) *Manager {
	if cookie.Name == "" {
		cookie.Name = "mercado_session"
	}
	return &Manager{store: store, cookie: cookie}
}

// Middleware reads the session cookie, issuing a new one when it is missing
// or malformed, and stores the Namespace in the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(m.cookie.Name); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				sid = c.Value
			} else {
				zctx.From(r.Context()).Debug("Replacing malformed session cookie")
			}
		}
		if sid == "" {
			sid = uuid.NewString()
		}
		// Refreshed on every response so the idle window slides.
		http.SetCookie(w, m.newCookie(sid))

		ctx := zctx.With(r.Context(), zap.String("session_id", shortID(sid)))
		ctx = WithNamespace(ctx, NewNamespace(m.store, sid))
		ctx = context.WithValue(ctx, renewerKey{}, renewer{m: m, w: w})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) newCookie(sid string) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookie.Name,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.cookie.MaxAge > 0 {
		c.MaxAge = int(m.cookie.MaxAge.Seconds())
	}
	return c
}

// shortID keeps log lines from carrying a usable session identifier.
func shortID(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}

// ErrNoSession is returned by Renew outside of Manager.Middleware.
var ErrNoSession = errors.New("no session in context")

type renewerKey struct{}

type renewer struct {
	m *Manager
	w http.ResponseWriter
}

// Renew moves the request's session to a fresh ID and replaces the cookie on
// the response. Values under keys move to the new ID; nothing else is copied.
// Call it when the privilege level changes, such as on sign-in, so that an ID
// planted before sign-in never becomes authenticated.
func Renew(ctx context.Context, keys ...string) (Namespace, error) {
	old, ok := FromContext(ctx)
	rn, rok := ctx.Value(renewerKey{}).(renewer)
	if !ok || !rok {
		return Namespace{}, ErrNoSession
	}

	next := NewNamespace(rn.m.store, uuid.NewString())
	for _, key := range keys {
		v, ok, err := old.Get(ctx, key)
		if err != nil {
			return Namespace{}, errors.Wrapf(err, "get %s", key)
		}
		if !ok {
			continue
		}
		if err := next.Set(ctx, key, v); err != nil {
			return Namespace{}, errors.Wrapf(err, "set %s", key)
		}
	}
	if len(keys) > 0 {
		if err := old.Delete(ctx, keys...); err != nil {
			return Namespace{}, errors.Wrap(err, "delete old values")
		}
	}

	rn.m.replaceCookie(rn.w, next.ID())
	zctx.From(ctx).Debug("Session renewed", zap.String("new_session_id", shortID(next.ID())))
	return next, nil
}

// replaceCookie drops the cookie set by Middleware and sets one for sid.
func (m *Manager) replaceCookie(w http.ResponseWriter, sid string) {
	h := w.Header()
	prefix := m.cookie.Name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, m.newCookie(sid))
}

type namespaceKey struct{}

// WithNamespace returns a copy of ctx carrying n.
func WithNamespace(ctx context.Context, n Namespace) context.Context {
	return context.WithValue(ctx, namespaceKey{}, n)
}

// FromContext returns the request's Namespace.
func FromContext(ctx context.Context) (Namespace, bool) {
	n, ok := ctx.Value(namespaceKey{}).(Namespace)
	return n, ok
}
