// Package graphql is a minimal client for the storefront's GraphQL API.
//
// Every request is a POST to a single endpoint carrying the Apollo CSRF
// headers. When the request context holds a token (see WithToken) it is sent
// verbatim in the Authentication header.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultOperationName is sent in x-apollo-operation-name.
const DefaultOperationName = "mercado-front"

const maxResponseSize = 10 << 20

// Request is a single GraphQL operation.
type Request struct {
	Query         string
	OperationName string
	// Variables is encoded with encoding/json. Nil omits the field.
	Variables any
}

// Client posts GraphQL operations to one endpoint.
type Client struct {
	endpoint string
	opHeader string
	http     *http.Client

	tp trace.TracerProvider
	mp metric.MeterProvider

	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. By default an otelhttp
// instrumented client is used.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) { cl.tp = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cl *Client) { cl.mp = mp }
}

// WithOperationHeader overrides the x-apollo-operation-name header value.
func WithOperationHeader(name string) Option {
	return func(cl *Client) { cl.opHeader = name }
}

// New creates a Client for endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	c := &Client{
		endpoint: endpoint,
		opHeader: DefaultOperationName,
		tp:       otel.GetTracerProvider(),
		mp:       otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(c.tp),
				otelhttp.WithMeterProvider(c.mp),
			),
		}
	}

	c.tracer = c.tp.Tracer("storefront/graphql")
	meter := c.mp.Meter("storefront/graphql")

	var err error
	if c.requests, err = meter.Int64Counter("graphql.client.requests",
		metric.WithDescription("GraphQL operations by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "requests counter")
	}
	if c.duration, err = meter.Float64Histogram("graphql.client.duration",
		metric.WithDescription("GraphQL operation latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}
	return c, nil
}

// Do executes req and decodes the "data" member into out. out may be nil.
//
// Returns *TransportError when the endpoint cannot be reached and *Error when
// the server reports errors.
func (c *Client) Do(ctx context.Context, req Request, out any) (rerr error) {
	op := req.OperationName
	if op == "" {
		op = "anonymous"
	}
	ctx, span := c.tracer.Start(ctx, "graphql."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("graphql.operation.name", op)),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(rerr, ErrTransport):
			outcome = "transport_error"
		case rerr != nil:
			outcome = "error"
		}
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()

		attrs := metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		)
		c.requests.Add(ctx, 1, attrs)
		c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	body, err := encodeRequest(req)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("apollo-require-preflight", "true")
	httpReq.Header.Set("x-apollo-operation-name", c.opHeader)
	if token := TokenFromContext(ctx); token != "" {
		httpReq.Header.Set("Authentication", token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "read body")}
	}

	data, gqlErrs, decodeErr := decodeResponse(raw)
	if len(gqlErrs) > 0 {
		return &Error{StatusCode: resp.StatusCode, Errors: gqlErrs}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			StatusCode: resp.StatusCode,
			Errors:     []ErrorEntry{{Message: http.StatusText(resp.StatusCode)}},
		}
	}
	if decodeErr != nil {
		return &TransportError{Op: op, Err: decodeErr}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s data", op)
	}
	return nil
}

func encodeRequest(req Request) ([]byte, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("query")
	e.Str(req.Query)
	if req.OperationName != "" {
		e.FieldStart("operationName")
		e.Str(req.OperationName)
	}
	if req.Variables != nil {
		vars, err := json.Marshal(req.Variables)
		if err != nil {
			return nil, errors.Wrap(err, "marshal variables")
		}
		e.FieldStart("variables")
		e.Raw(vars)
	}
	e.ObjEnd()
	return e.Bytes(), nil
}

// decodeResponse splits the response envelope into the raw "data" member and
// the parsed "errors" array.
func decodeResponse(raw []byte) (jx.Raw, []ErrorEntry, error) {
	var (
		data jx.Raw
		errs []ErrorEntry
	)
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return nil, nil, errors.New("response is not a JSON object")
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Raw()
			if err != nil {
				return err
			}
			data = append(jx.Raw(nil), v...)
			return nil
		case "errors":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			entries, err := decodeErrors(d)
			if err != nil {
				return err
			}
			errs = entries
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errs, errors.Wrap(err, "decode response")
	}
	return data, errs, nil
}

type tokenKey struct{}

// WithToken returns a copy of ctx whose requests carry token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token set by WithToken.
func TokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey{}).(string)
	return s
}
