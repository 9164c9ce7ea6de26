package graphql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	mu     sync.Mutex
	header http.Header
	body   map[string]any
}

func (c *capturedRequest) get() (http.Header, map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header, c.body
}

func newTestServer(t *testing.T, status int, response string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		captured.mu.Lock()
		captured.header = r.Header.Clone()
		assert.NoError(t, json.Unmarshal(raw, &captured.body))
		captured.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, captured
}

func TestDo_Headers(t *testing.T) {
	c, captured := newTestServer(t, http.StatusOK, `{"data":{"ok":true}}`)

	ctx := WithToken(context.Background(), "secret-token")
	require.NoError(t, c.Do(ctx, Request{Query: "{ ok }"}, nil))

	header, _ := captured.get()
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "true", header.Get("apollo-require-preflight"))
	assert.Equal(t, "mercado-front", header.Get("x-apollo-operation-name"))
	assert.Equal(t, "secret-token", header.Get("Authentication"))
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	c, captured := newTestServer(t, http.StatusOK, `{"data":{}}`)

	require.NoError(t, c.Do(context.Background(), Request{Query: "{ products { id } }"}, nil))

	header, _ := captured.get()
	_, present := header["Authentication"]
	assert.False(t, present)
}

func TestDo_Envelope(t *testing.T) {
	c, captured := newTestServer(t, http.StatusOK, `{"data":{}}`)

	err := c.Do(context.Background(), Request{
		Query:         "query GetProduct($id: String!) { product(id: $id) { id } }",
		OperationName: "GetProduct",
		Variables:     map[string]any{"id": "p1"},
	}, nil)
	require.NoError(t, err)

	_, body := captured.get()
	assert.Equal(t, "GetProduct", body["operationName"])
	assert.Equal(t, map[string]any{"id": "p1"}, body["variables"])
	assert.Contains(t, body["query"], "product(id: $id)")
}

func TestDo_DecodesData(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK,
		`{"data":{"cart":{"items":[{"id":"i1","quantity":2}]}},"extensions":{"trace":"x"}}`)

	var out struct {
		Cart struct {
			Items []struct {
				ID       string  `json:"id"`
				Quantity float64 `json:"quantity"`
			} `json:"items"`
		} `json:"cart"`
	}
	require.NoError(t, c.Do(context.Background(), Request{Query: "{ cart { items { id quantity } } }"}, &out))

	require.Len(t, out.Cart.Items, 1)
	assert.Equal(t, "i1", out.Cart.Items[0].ID)
	assert.Equal(t, float64(2), out.Cart.Items[0].Quantity)
}

func TestDo_ValidationMessagesList(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `{
		"errors": [{
			"message": "Bad Request Exception",
			"extensions": {
				"code": "BAD_USER_INPUT",
				"originalError": {
					"message": ["email must be an email", "password is too short"],
					"error": "Bad Request",
					"statusCode": 400
				}
			}
		}],
		"data": null
	}`)

	err := c.Do(context.Background(), Request{Query: "mutation { createUser }"}, nil)

	var gqlErr *Error
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"email must be an email", "password is too short"}, gqlErr.ValidationMessages())
	assert.True(t, gqlErr.HasCode(CodeBadUserInput))
	assert.Equal(t, "email must be an email, password is too short", UserMessage(err))
	assert.EqualError(t, err, "Bad Request Exception")
}

func TestDo_ValidationMessageString(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `{
		"errors": [{"message": "Conflict", "extensions": {"originalError": {"message": "Email already exists"}}}]
	}`)

	err := c.Do(context.Background(), Request{Query: "mutation { createUser }"}, nil)
	assert.Equal(t, "Email already exists", UserMessage(err))
}

func TestDo_ErrorWithoutExtensions(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK,
		`{"errors":[{"message":"Product not found","extensions":{"code":"NOT_FOUND"}},{"message":"second"}]}`)

	err := c.Do(context.Background(), Request{Query: "{ product(id: \"x\") { id } }"}, nil)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, UserMessage(err))
	assert.EqualError(t, err, "Product not found (and 1 more)")
}

func TestDo_HTTPErrorWithGraphQLBody(t *testing.T) {
	c, _ := newTestServer(t, http.StatusUnauthorized,
		`{"errors":[{"message":"Unauthorized","extensions":{"code":"UNAUTHENTICATED"}}]}`)

	err := c.Do(context.Background(), Request{Query: "{ cart { userId } }"}, nil)

	assert.True(t, IsUnauthenticated(err))
	var gqlErr *Error
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, http.StatusUnauthorized, gqlErr.StatusCode)
}

func TestDo_HTTPErrorWithoutBody(t *testing.T) {
	c, _ := newTestServer(t, http.StatusBadGateway, `<html>bad gateway</html>`)

	err := c.Do(context.Background(), Request{Query: "{ products { id } }"}, nil)

	var gqlErr *Error
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, http.StatusBadGateway, gqlErr.StatusCode)
	assert.EqualError(t, err, "Bad Gateway")
}

func TestDo_MalformedBody(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `not json`)

	err := c.Do(context.Background(), Request{Query: "{ products { id } }"}, nil)
	require.ErrorIs(t, err, ErrTransport)
}

func TestDo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)

	err = c.Do(context.Background(), Request{Query: "{ products { id } }", OperationName: "GetProducts"}, nil)

	require.ErrorIs(t, err, ErrTransport)
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "GetProducts", tErr.Op)
}

func TestUserMessage_NonGraphQLError(t *testing.T) {
	assert.Empty(t, UserMessage(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}
