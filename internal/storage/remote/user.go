package remote

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/graphql"
)

var _ auth.UserRepository = (*UserRepository)(nil)

const (
	usersQuery = `query GetAllUsersAdmin {
  users {
    id
    email
  }
}`

	createUserMutation = `mutation CreateUser($input: CreateUserDto!) {
  createUser(createUserInput: $input) {
    id
    email
  }
}`

	removeUserMutation = `mutation RemoveUser($id: String!) {
  removeUser(id: $id) {
    id
  }
}`
)

// UserRepository implements auth.UserRepository over GraphQL.
type UserRepository struct {
	gql GraphQL
}

// NewUserRepository returns a UserRepository that uses gql.
func NewUserRepository(gql GraphQL) *UserRepository {
	return &UserRepository{gql: gql}
}

func (r *UserRepository) List(ctx context.Context) ([]auth.User, error) {
	var resp struct {
		Users []userDTO `json:"users"`
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         usersQuery,
		OperationName: "GetAllUsersAdmin",
	}, &resp); err != nil {
		return nil, errors.Wrap(err, "query users")
	}

	out := make([]auth.User, len(resp.Users))
	for i, u := range resp.Users {
		out[i] = u.toDomain()
	}
	return out, nil
}

// Create registers a new account. Validation failures come back as
// *graphql.Error carrying the server's messages.
func (r *UserRepository) Create(ctx context.Context, creds auth.Credentials) (*auth.User, error) {
	var resp struct {
		CreateUser userDTO `json:"createUser"`
	}
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         createUserMutation,
		OperationName: "CreateUser",
		Variables: inputVars[createUserInput]{Input: createUserInput{
			Email:    creds.Email,
			Password: creds.Password,
		}},
	}, &resp); err != nil {
		return nil, errors.Wrap(err, "create user")
	}

	u := resp.CreateUser.toDomain()
	return &u, nil
}

func (r *UserRepository) Remove(ctx context.Context, id string) error {
	if err := r.gql.Do(ctx, graphql.Request{
		Query:         removeUserMutation,
		OperationName: "RemoveUser",
		Variables:     idVars{ID: id},
	}, nil); err != nil {
		return errors.Wrapf(err, "remove user %q", id)
	}
	return nil
}
