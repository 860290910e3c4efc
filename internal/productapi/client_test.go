package productapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/catalog-browser/internal/domain/product"
)

const listPayload = `{
  "products": [
    {
      "id": 1,
      "title": "iPhone 9",
      "description": "An apple mobile which is nothing like apple",
      "price": 549,
      "discountPercentage": 12.96,
      "rating": 4.69,
      "stock": 94,
      "brand": "Apple",
      "category": "smartphones",
      "thumbnail": "https://cdn.dummyjson.com/product-images/1/thumbnail.jpg",
      "images": ["https://cdn.dummyjson.com/product-images/1/1.jpg"]
    },
    {
      "id": 2,
      "title": "iPhone X",
      "description": "SIM-Free, Model A19211",
      "price": 899,
      "discountPercentage": 17.94,
      "rating": 4.44,
      "stock": 34,
      "brand": "Apple",
      "category": "smartphones",
      "thumbnail": "https://cdn.dummyjson.com/product-images/2/thumbnail.jpg",
      "images": []
    }
  ],
  "total": 100,
  "skip": 0,
  "limit": 30
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
		UserAgent: "catalog-test",
	})
	require.NoError(t, err)
	return c, srv
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{name: "empty", baseURL: ""},
		{name: "no scheme", baseURL: "dummyjson.com/products"},
		{name: "unsupported scheme", baseURL: "ftp://dummyjson.com/"},
		{name: "no host", baseURL: "https:///products"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(Config{BaseURL: tt.baseURL})
			require.Error(t, err)
		})
	}
}

func TestClient_FetchAll(t *testing.T) {
	var gotPath, gotAccept, gotRequestID, gotUA string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotUA = r.Header.Get("User-Agent")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listPayload))
	})

	coll, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/products", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "catalog-test", gotUA)
	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err, "X-Request-ID must be a UUID")

	require.Len(t, coll.Products, 2)
	assert.Equal(t, 100, coll.Total)
	assert.Equal(t, 30, coll.Limit)
	assert.Equal(t, "iPhone 9", coll.Products[0].Title)
	assert.Equal(t, "12.96", coll.Products[0].DiscountPercentage.String())
	assert.Equal(t, "477.85", coll.Products[0].DiscountedPrice().StringFixed(2))
}

func TestClient_FetchAll_BaseURLWithPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"products":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", Timeout: time.Second})
	require.NoError(t, err)

	coll, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/v1/products", gotPath)
	assert.Empty(t, coll.Products)
}

func TestClient_FetchByID(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":7,"title":"Samsung Galaxy Book","price":1499,"discountPercentage":4.15,"rating":4.25,"stock":50}`))
	})

	p, err := c.FetchByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "/products/7", gotPath)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "Samsung Galaxy Book", p.Title)
	assert.Nil(t, p.Images)
}

func TestClient_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Product with id '999' not found"}`))
	})

	_, err := c.FetchByID(context.Background(), 999)
	require.ErrorIs(t, err, product.ErrNotFound)

	var te *product.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, "Product with id '999' not found", te.Body)
	assert.Equal(t, http.StatusNotFound, product.StatusCode(err))
}

func TestClient_ServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})

	_, err := c.FetchAll(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, http.StatusInternalServerError, product.StatusCode(err))
	assert.Contains(t, err.Error(), "500 Internal Server Error")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestClient_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": [{"id": "one"}]}`))
	})

	_, err := c.FetchAll(context.Background())
	var decErr *product.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 0, product.StatusCode(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.FetchAll(context.Background())
	var te *product.TransportError
	require.ErrorAs(t, err, &te)
	assert.Error(t, te.Err)
	assert.Equal(t, 0, te.StatusCode)

	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_Cancelled(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_Ping(t *testing.T) {
	var hits int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	})

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, 1, hits)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "gone", excerpt([]byte(`{"message":"gone","code":1}`)))
	assert.Equal(t, "plain text", excerpt([]byte("  plain text\n")))
	assert.Equal(t, `{"error":"x"}`, excerpt([]byte(`{"error":"x"}`)))

	long := make([]byte, maxErrorExcerpt+10)
	for i := range long {
		long[i] = 'a'
	}
	got := excerpt(long)
	assert.Len(t, got, maxErrorExcerpt+3)

	// "é" is two bytes; an odd offset puts the limit inside one.
	multi := []byte("x" + strings.Repeat("é", maxErrorExcerpt))
	got = excerpt(multi)
	assert.True(t, utf8.ValidString(got), got)
	assert.True(t, strings.HasSuffix(got, "é..."))
	assert.LessOrEqual(t, len(got), maxErrorExcerpt+3)
}
