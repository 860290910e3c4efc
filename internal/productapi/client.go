// Package productapi implements product.Service against the remote catalog
// REST API and provides an offline demo catalog.
package productapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

const (
	maxBodySize     = 8 << 20
	maxErrorExcerpt = 256
)

var _ product.Service = (*Client)(nil)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://dummyjson.com/.
	BaseURL string
	// Timeout bounds each request including reading the body.
	Timeout   time.Duration
	UserAgent string

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client calls GET /products and GET /products/{id}. It performs exactly one
// attempt per call.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

// NewClient validates cfg and builds a Client with an instrumented transport.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, errors.Errorf("base URL %q: missing host", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, opts...),
		},
		userAgent: cfg.UserAgent,
	}, nil
}

// FetchAll returns the product list.
func (c *Client) FetchAll(ctx context.Context) (*product.Collection, error) {
	body, err := c.get(ctx, "products")
	if err != nil {
		return nil, err
	}
	return DecodeCollection(body)
}

// FetchByID returns one product. A 404 response matches product.ErrNotFound.
func (c *Client) FetchByID(ctx context.Context, id int64) (*product.Product, error) {
	body, err := c.get(ctx, "products/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	return DecodeProduct(body)
}

// Ping checks that the API host answers HTTP. Any status code counts as
// reachable; only transport failures are reported.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, c.base)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &product.TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	return resp.Body.Close()
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u := c.base.ResolveReference(&url.URL{Path: path})
	req, err := c.newRequest(ctx, u)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &product.TransportError{Method: req.Method, URL: u.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &product.TransportError{Method: req.Method, URL: u.String(), Err: errors.Wrap(err, "read body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &product.TransportError{
			Method:     req.Method,
			URL:        u.String(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       excerpt(body),
		}
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, u *url.URL) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// excerpt returns the "message" field of a JSON error body, or a truncated
// copy of the raw body.
func excerpt(body []byte) string {
	var msg string
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key == "message" && d.Next() == jx.String {
			v, err := d.Str()
			msg = v
			return err
		}
		return d.Skip()
	}); err == nil && msg != "" {
		body = []byte(msg)
	}

	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorExcerpt {
		cut := maxErrorExcerpt
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
