package graphql

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ErrTransport matches every *TransportError.
var ErrTransport = errors.New("graphql transport")

// TransportError reports a failure to reach the endpoint or to read its
// response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("graphql %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Error codes reported in extensions.code.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeBadUserInput    = "BAD_USER_INPUT"
)

// ErrorEntry is one element of the response "errors" array.
type ErrorEntry struct {
	Message string
	Code    string
	// Validation holds extensions.originalError.message, which the API sends
	// either as a single string or as a list of strings.
	Validation []string
}

// Error is returned when the server reports GraphQL errors or answers with a
// non-2xx status.
type Error struct {
	StatusCode int
	Errors     []ErrorEntry
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("graphql: status %d", e.StatusCode)
	}
	msg := e.Errors[0].Message
	if n := len(e.Errors) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// ValidationMessages returns the first error's validation messages, if any.
func (e *Error) ValidationMessages() []string {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Validation
}

// HasCode reports whether any entry carries code.
func (e *Error) HasCode(code string) bool {
	for _, entry := range e.Errors {
		if entry.Code == code {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is a GraphQL NOT_FOUND error.
func IsNotFound(err error) bool {
	if gqlErr, ok := errors.Into[*Error](err); ok {
		return gqlErr.HasCode(CodeNotFound)
	}
	return false
}

// IsUnauthenticated reports whether the server rejected the request's
// credentials.
func IsUnauthenticated(err error) bool {
	gqlErr, ok := errors.Into[*Error](err)
	if !ok {
		return false
	}
	return gqlErr.StatusCode == 401 || gqlErr.HasCode(CodeUnauthenticated)
}

// UserMessage extracts the best message to show for err: joined validation
// messages when the server sent them, otherwise "" so the caller can fall
// back to a generic text.
func UserMessage(err error) string {
	gqlErr, ok := errors.Into[*Error](err)
	if !ok {
		return ""
	}
	return strings.Join(gqlErr.ValidationMessages(), ", ")
}

func decodeErrors(d *jx.Decoder) ([]ErrorEntry, error) {
	var out []ErrorEntry
	if err := d.Arr(func(d *jx.Decoder) error {
		var entry ErrorEntry
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "message":
				return decodeOptionalString(d, &entry.Message)
			case "extensions":
				return decodeExtensions(d, &entry)
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		out = append(out, entry)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode errors")
	}
	return out, nil
}

func decodeExtensions(d *jx.Decoder, entry *ErrorEntry) error {
	if d.Next() != jx.Object {
		return d.Skip()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			return decodeOptionalString(d, &entry.Code)
		case "originalError":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "message" {
					return d.Skip()
				}
				msgs, err := decodeStringOrList(d)
				if err != nil {
					return err
				}
				entry.Validation = msgs
				return nil
			})
		default:
			return d.Skip()
		}
	})
}

func decodeStringOrList(d *jx.Decoder) ([]string, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	case jx.Array:
		var out []string
		err := d.Arr(func(d *jx.Decoder) error {
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			out = append(out, s)
			return nil
		})
		return out, err
	default:
		return nil, d.Skip()
	}
}

func decodeOptionalString(d *jx.Decoder, dst *string) error {
	if d.Next() != jx.String {
		return d.Skip()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}
