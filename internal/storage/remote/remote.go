// Package remote implements the domain repositories on top of the
// storefront's GraphQL API and its REST auth and upload services.
package remote

import (
	"context"

	"github.com/xenking/mercado-storefront/internal/graphql"
)

// GraphQL executes GraphQL operations. *graphql.Client implements it.
type GraphQL interface {
	Do(ctx context.Context, req graphql.Request, out any) error
}
