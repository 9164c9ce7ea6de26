package auth

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Durable storage keys.
const (
	KeyUser  = "user"
	KeyToken = "token"
)

// User is the signed-in account as returned by the auth service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Storage is a durable key/value namespace that survives page reloads. It is
// scoped to a single browser session.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// State is a snapshot of the authentication state.
type State struct {
	User  *User
	Token string
}

// IsAuthenticated reports whether both a user and a token are present.
func (s State) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// Holder keeps the current user and token in memory and mirrors them to
// Storage. The zero value is logged out and has no storage.
type Holder struct {
	storage Storage

	mu    sync.RWMutex
	state State
}

// NewHolder creates a logged-out Holder backed by storage. Call Restore to
// load a previously saved session.
func NewHolder(storage Storage) *Holder {
	return &Holder{storage: storage}
}

// Restore loads user and token from storage. A stored user that cannot be
// decoded is treated as absent.
func (h *Holder) Restore(ctx context.Context) error {
	if h.storage == nil {
		return nil
	}

	rawUser, hasUser, err := h.storage.Get(ctx, KeyUser)
	if err != nil {
		return errors.Wrap(err, "get user")
	}
	token, _, err := h.storage.Get(ctx, KeyToken)
	if err != nil {
		return errors.Wrap(err, "get token")
	}

	var u *User
	if hasUser {
		u = new(User)
		if err := json.Unmarshal([]byte(rawUser), u); err != nil {
			zctx.From(ctx).Warn("Discarding unreadable stored user", zap.Error(err))
			u = nil
		}
	}

	h.mu.Lock()
	h.state = State{User: u, Token: token}
	h.mu.Unlock()
	return nil
}

// State returns a snapshot of the current state.
func (h *Holder) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// IsAuthenticated reports whether both a user and a token are held.
func (h *Holder) IsAuthenticated() bool {
	return h.State().IsAuthenticated()
}

// User returns the current user or nil.
func (h *Holder) User() *User {
	return h.State().User
}

// Token returns the current token or an empty string.
func (h *Holder) Token() string {
	return h.State().Token
}

// Login stores the user and token in memory and in storage.
func (h *Holder) Login(ctx context.Context, u User, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if h.storage != nil {
		raw, err := json.Marshal(u)
		if err != nil {
			return errors.Wrap(err, "marshal user")
		}
		if err := h.storage.Set(ctx, KeyUser, string(raw)); err != nil {
			return errors.Wrap(err, "set user")
		}
		if err := h.storage.Set(ctx, KeyToken, token); err != nil {
			return errors.Wrap(err, "set token")
		}
	}

	h.mu.Lock()
	h.state = State{User: &u, Token: token}
	h.mu.Unlock()
	return nil
}

// Logout clears the user and token from memory and storage. The in-memory
// state is cleared even when storage fails.
func (h *Holder) Logout(ctx context.Context) error {
	h.mu.Lock()
	h.state = State{}
	h.mu.Unlock()

	if h.storage == nil {
		return nil
	}
	if err := h.storage.Delete(ctx, KeyUser, KeyToken); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

type holderKey struct{}

// WithHolder returns a copy of ctx carrying h.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// FromContext returns the Holder stored in ctx, or a logged-out Holder
// without storage.
func FromContext(ctx context.Context) *Holder {
	if h, ok := ctx.Value(holderKey{}).(*Holder); ok && h != nil {
		return h
	}
	return &Holder{}
}
