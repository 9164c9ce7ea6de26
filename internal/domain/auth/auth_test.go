package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mapStorage struct {
	values map[string]string
	err    error
}

func newMapStorage() *mapStorage {
	return &mapStorage{values: make(map[string]string)}
}

func (m *mapStorage) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapStorage) Set(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mapStorage) Delete(_ context.Context, keys ...string) error {
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type mockAuthenticator struct {
	session *Session
	err     error
	calls   int
}

func (m *mockAuthenticator) Login(_ context.Context, _ Credentials) (*Session, error) {
	m.calls++
	return m.session, m.err
}

type mockUserRepo struct {
	created []Credentials
	users   []User
	removed []string
	err     error
}

func (m *mockUserRepo) List(_ context.Context) ([]User, error) {
	return m.users, m.err
}

func (m *mockUserRepo) Create(_ context.Context, creds Credentials) (*User, error) {
	m.created = append(m.created, creds)
	if m.err != nil {
		return nil, m.err
	}
	return &User{ID: "u-new", Email: creds.Email}, nil
}

func (m *mockUserRepo) Remove(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

// --- Holder tests ---

func TestHolder_FreshLoadIsLoggedOut(t *testing.T) {
	h := NewHolder(newMapStorage())
	require.NoError(t, h.Restore(context.Background()))
	assert.False(t, h.IsAuthenticated())
	assert.Nil(t, h.User())
}

func TestHolder_LoginPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()

	h := NewHolder(storage)
	require.NoError(t, h.Login(ctx, User{ID: "u1", Email: "a@b.c"}, "tok"))
	assert.True(t, h.IsAuthenticated())
	assert.Equal(t, "tok", storage.values[KeyToken])
	assert.JSONEq(t, `{"id":"u1","email":"a@b.c"}`, storage.values[KeyUser])

	reloaded := NewHolder(storage)
	require.NoError(t, reloaded.Restore(ctx))
	assert.True(t, reloaded.IsAuthenticated())
	assert.Equal(t, &User{ID: "u1", Email: "a@b.c"}, reloaded.User())
	assert.Equal(t, "tok", reloaded.Token())
}

func TestHolder_Logout(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()
	h := NewHolder(storage)
	require.NoError(t, h.Login(ctx, User{ID: "u1"}, "tok"))

	require.NoError(t, h.Logout(ctx))

	assert.False(t, h.IsAuthenticated())
	assert.Empty(t, storage.values)

	reloaded := NewHolder(storage)
	require.NoError(t, reloaded.Restore(ctx))
	assert.False(t, reloaded.IsAuthenticated())
}

func TestHolder_LogoutClearsMemoryWhenStorageFails(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()
	h := NewHolder(storage)
	require.NoError(t, h.Login(ctx, User{ID: "u1"}, "tok"))

	storage.err = errors.New("store down")
	require.Error(t, h.Logout(ctx))
	assert.False(t, h.IsAuthenticated())
}

func TestHolder_UserWithoutToken(t *testing.T) {
	storage := newMapStorage()
	storage.values[KeyUser] = `{"id":"u1","email":"a@b.c"}`

	h := NewHolder(storage)
	require.NoError(t, h.Restore(context.Background()))
	assert.NotNil(t, h.User())
	assert.False(t, h.IsAuthenticated())
}

func TestHolder_TokenWithoutUser(t *testing.T) {
	storage := newMapStorage()
	storage.values[KeyToken] = "tok"

	h := NewHolder(storage)
	require.NoError(t, h.Restore(context.Background()))
	assert.False(t, h.IsAuthenticated())
}

func TestHolder_CorruptUserRestoresLoggedOut(t *testing.T) {
	storage := newMapStorage()
	storage.values[KeyUser] = `{not json`
	storage.values[KeyToken] = "tok"

	h := NewHolder(storage)
	require.NoError(t, h.Restore(context.Background()))
	assert.False(t, h.IsAuthenticated())
}

func TestHolder_RestoreStorageError(t *testing.T) {
	storage := newMapStorage()
	storage.err = errors.New("store down")

	err := NewHolder(storage).Restore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get user")
}

func TestHolder_LoginRequiresToken(t *testing.T) {
	h := NewHolder(newMapStorage())
	require.ErrorIs(t, h.Login(context.Background(), User{ID: "u1"}, ""), ErrMissingToken)
	assert.False(t, h.IsAuthenticated())
}

func TestFromContext(t *testing.T) {
	assert.False(t, FromContext(context.Background()).IsAuthenticated())

	h := NewHolder(nil)
	require.NoError(t, h.Login(context.Background(), User{ID: "u1"}, "tok"))
	ctx := WithHolder(context.Background(), h)
	assert.Same(t, h, FromContext(ctx))
}

// --- Service tests ---

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	authn := &mockAuthenticator{session: &Session{User: User{ID: "u1", Email: "a@b.c"}, Token: "tok"}}
	svc := NewService(authn, &mockUserRepo{})
	h := NewHolder(newMapStorage())

	require.NoError(t, svc.Login(ctx, h, Credentials{Email: "a@b.c", Password: "pw"}))
	assert.True(t, h.IsAuthenticated())
}

func TestService_LoginMissingToken(t *testing.T) {
	authn := &mockAuthenticator{session: &Session{User: User{ID: "u1"}}}
	h := NewHolder(newMapStorage())

	err := NewService(authn, &mockUserRepo{}).Login(context.Background(), h, Credentials{})

	require.ErrorIs(t, err, ErrMissingToken)
	assert.False(t, h.IsAuthenticated())
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	authn := &mockAuthenticator{err: ErrInvalidCredentials}
	h := NewHolder(newMapStorage())

	err := NewService(authn, &mockUserRepo{}).Login(context.Background(), h, Credentials{})

	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, h.IsAuthenticated())
}

func TestService_RegisterPasswordMismatch(t *testing.T) {
	users := &mockUserRepo{}
	svc := NewService(&mockAuthenticator{}, users)

	_, err := svc.Register(context.Background(), Registration{
		Email:           "a@b.c",
		Password:        "abc",
		ConfirmPassword: "xyz",
	})

	require.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Empty(t, users.created, "no request may be sent")
}

func TestService_Register(t *testing.T) {
	users := &mockUserRepo{}
	svc := NewService(&mockAuthenticator{}, users)

	u, err := svc.Register(context.Background(), Registration{
		Email:           " a@b.c ",
		Password:        "secret",
		ConfirmPassword: "secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "a@b.c", u.Email)
	assert.Equal(t, []Credentials{{Email: "a@b.c", Password: "secret"}}, users.created)
}

func TestService_RegisterUpstreamError(t *testing.T) {
	upstream := errors.New("email taken")
	svc := NewService(&mockAuthenticator{}, &mockUserRepo{err: upstream})

	_, err := svc.Register(context.Background(), Registration{Email: "a@b.c", Password: "x", ConfirmPassword: "x"})
	require.ErrorIs(t, err, upstream)
}

func TestService_Users(t *testing.T) {
	users := &mockUserRepo{users: []User{{ID: "u1"}}}
	svc := NewService(&mockAuthenticator{}, users)

	got, err := svc.Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, svc.RemoveUser(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, users.removed)
}
