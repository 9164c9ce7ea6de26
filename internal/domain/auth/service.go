package auth

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Sentinel errors for sign-in and registration.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("authentication token not received")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailRequired      = errors.New("email is required")
)

// Credentials is an email/password pair.
type Credentials struct {
	Email    string
	Password string
}

// Session is the result of a successful sign-in.
type Session struct {
	User  User
	Token string
}

// Authenticator exchanges credentials for a session token.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
}

// UserRepository manages accounts on the remote API.
type UserRepository interface {
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, creds Credentials) (*User, error)
	Remove(ctx context.Context, id string) error
}

// Registration is the sign-up form.
type Registration struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate runs the local checks done before contacting the API.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ErrEmailRequired
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// Service handles sign-in, registration and account administration.
type Service struct {
	authn Authenticator
	users UserRepository
}

// NewService creates an auth Service.
func NewService(authn Authenticator, users UserRepository) *Service {
	return &Service{
		authn: authn,
		users: users,
	}
}

// Login authenticates creds and stores the resulting session in h.
func (s *Service) Login(ctx context.Context, h *Holder, creds Credentials) error {
	sess, err := s.authn.Login(ctx, creds)
	if err != nil {
		return err
	}
	if sess.Token == "" {
		return ErrMissingToken
	}
	if err := h.Login(ctx, sess.User, sess.Token); err != nil {
		return errors.Wrap(err, "store session")
	}
	zctx.From(ctx).Info("User signed in", zap.String("user_id", sess.User.ID))
	return nil
}

// Register validates the form locally and creates the account. No request is
// sent when validation fails.
func (s *Service) Register(ctx context.Context, r Registration) (*User, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, Credentials{
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Users lists all accounts.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// RemoveUser deletes an account.
func (s *Service) RemoveUser(ctx context.Context, id string) error {
	if err := s.users.Remove(ctx, id); err != nil {
		return errors.Wrap(err, "remove user")
	}
	return nil
}
