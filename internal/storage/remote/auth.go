package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
)

var _ auth.Authenticator = (*AuthClient)(nil)

// AuthClient signs users in against the REST auth service.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

// NewAuthClient returns an AuthClient for the service at baseURL.
func NewAuthClient(baseURL string, client *http.Client) *AuthClient {
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// Login posts the credentials to /auth/login. Any non-2xx answer is reported
// as auth.ErrInvalidCredentials. A missing token is left for the caller to
// detect.
func (c *AuthClient) Login(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("email", func(e *jx.Encoder) { e.Str(creds.Email) })
		e.Field("password", func(e *jx.Encoder) { e.Str(creds.Password) })
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "post login")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, auth.ErrInvalidCredentials
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	sess, err := decodeLogin(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return sess, nil
}

func decodeLogin(raw []byte) (*auth.Session, error) {
	var sess auth.Session
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "token":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			sess.Token = s
			return nil
		case "user":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if d.Next() != jx.String {
					return d.Skip()
				}
				s, err := d.Str()
				if err != nil {
					return err
				}
				switch key {
				case "id":
					sess.User.ID = s
				case "email":
					sess.User.Email = s
				}
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
