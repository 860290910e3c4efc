package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/pkg/observable"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore records commands and lets tests drive the slots directly.
type fakeStore struct {
	list   *observable.Value[catalog.ListState]
	detail *observable.Value[catalog.DetailState]

	mu        sync.Mutex
	listLoads int
	detailIDs []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		list:   observable.New(catalog.Loading[[]product.Product]()),
		detail: observable.New(catalog.Loading[product.Product]()),
	}
}

func (s *fakeStore) LoadList() {
	s.mu.Lock()
	s.listLoads++
	s.mu.Unlock()
	s.list.Set(catalog.Loading[[]product.Product]())
}

func (s *fakeStore) LoadDetail(id int64) {
	s.mu.Lock()
	s.detailIDs = append(s.detailIDs, id)
	s.mu.Unlock()
	s.detail.Set(catalog.Loading[product.Product]())
}

func (s *fakeStore) ListState() observable.Source[catalog.ListState] { return s.list }

func (s *fakeStore) DetailState() observable.Source[catalog.DetailState] { return s.detail }

var iphone = product.Product{
	ID:                 1,
	Title:              "iPhone 9",
	Description:        "An apple mobile which is nothing like apple",
	Price:              decimal.RequireFromString("549"),
	DiscountPercentage: decimal.RequireFromString("12.96"),
	Rating:             decimal.RequireFromString("4.69"),
	Stock:              94,
	Brand:              "Apple",
	Category:           "smartphones",
	Thumbnail:          "https://example.com/t.jpg",
	Images:             []string{"https://example.com/1.jpg"},
}

type stateBody struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Code     int               `json:"code"`
	Products []json.RawMessage `json:"products"`
	Product  json.RawMessage   `json:"product"`
}

func newTestMux(store Store) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(store).Register(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, stateBody) {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body stateBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

// instantStore publishes the terminal state inside the command, as a store
// backed by an instant upstream can.
type instantStore struct{ *fakeStore }

func (s instantStore) LoadList() {
	s.fakeStore.LoadList()
	s.list.Set(catalog.Success([]product.Product{iphone}))
}

func (s instantStore) LoadDetail(id int64) {
	s.fakeStore.LoadDetail(id)
	s.detail.Set(catalog.Success(iphone))
}

func TestLoad_RepliesLoadingEvenIfAlreadyDone(t *testing.T) {
	store := instantStore{newFakeStore()}
	mux := newTestMux(store)

	w, _ := do(t, mux, http.MethodPost, "/api/products/load")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"loading"}`, w.Body.String())

	w, _ = do(t, mux, http.MethodPost, "/api/products/1/load")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"loading"}`, w.Body.String())

	assert.True(t, store.list.Get().IsSuccess())
	assert.True(t, store.detail.Get().IsSuccess())
}

func TestLoadList(t *testing.T) {
	store := newFakeStore()
	store.list.Set(catalog.Success([]product.Product{iphone}))
	mux := newTestMux(store)

	w, body := do(t, mux, http.MethodPost, "/api/products/load")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "loading", body.Status)
	assert.Equal(t, 1, store.listLoads)
}

func TestListState(t *testing.T) {
	store := newFakeStore()
	mux := newTestMux(store)

	t.Run("loading", func(t *testing.T) {
		store.list.Set(catalog.Loading[[]product.Product]())
		w, body := do(t, mux, http.MethodGet, "/api/products/state")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"loading"}`, w.Body.String())
		assert.Empty(t, body.Products)
	})

	t.Run("success", func(t *testing.T) {
		store.list.Set(catalog.Success([]product.Product{iphone}))
		_, body := do(t, mux, http.MethodGet, "/api/products/state")
		assert.Equal(t, "success", body.Status)
		require.Len(t, body.Products, 1)
		assert.JSONEq(t, `{
			"id": 1,
			"title": "iPhone 9",
			"description": "An apple mobile which is nothing like apple",
			"price": 549,
			"discountPercentage": 12.96,
			"discountedPrice": 477.85,
			"hasDiscount": true,
			"rating": 4.69,
			"stock": 94,
			"brand": "Apple",
			"category": "smartphones",
			"thumbnail": "https://example.com/t.jpg",
			"images": ["https://example.com/1.jpg"]
		}`, string(body.Products[0]))
	})

	t.Run("error with code", func(t *testing.T) {
		store.list.Set(catalog.Failed[[]product.Product]("GET https://dummyjson.com/products: 503 Service Unavailable", 503))
		w, _ := do(t, mux, http.MethodGet, "/api/products/state")
		assert.JSONEq(t, `{
			"status": "error",
			"message": "GET https://dummyjson.com/products: 503 Service Unavailable",
			"code": 503
		}`, w.Body.String())
	})

	t.Run("error without code", func(t *testing.T) {
		store.list.Set(catalog.Failed[[]product.Product]("No products available. Check your internet connection.", 0))
		w, _ := do(t, mux, http.MethodGet, "/api/products/state")
		assert.JSONEq(t, `{
			"status": "error",
			"message": "No products available. Check your internet connection."
		}`, w.Body.String())
	})
}

func TestLoadDetail(t *testing.T) {
	store := newFakeStore()
	mux := newTestMux(store)

	w, body := do(t, mux, http.MethodPost, "/api/products/7/load")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "loading", body.Status)
	assert.Equal(t, []int64{7}, store.detailIDs)

	for _, bad := range []string{"abc", "1.5", "99999999999999999999"} {
		w, body := do(t, mux, http.MethodPost, "/api/products/"+bad+"/load")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Equal(t, http.StatusBadRequest, body.Code)
		assert.Contains(t, body.Message, "invalid product id")
	}
	assert.Equal(t, []int64{7}, store.detailIDs, "invalid ids must not reach the store")
}

func TestDetailState(t *testing.T) {
	store := newFakeStore()
	mux := newTestMux(store)

	store.detail.Set(catalog.Success(iphone))
	_, body := do(t, mux, http.MethodGet, "/api/product/state")
	assert.Equal(t, "success", body.Status)

	var p struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(body.Product, &p))
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "iPhone 9", p.Title)

	store.detail.Set(catalog.Failed[product.Product]("GET https://dummyjson.com/products/999: 404 Not Found: Product with id '999' not found", 404))
	_, body = do(t, mux, http.MethodGet, "/api/product/state")
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, 404, body.Code)
	assert.Nil(t, body.Product)
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(newFakeStore())

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/load", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()

	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEvents(t *testing.T) {
	store := newFakeStore()
	srv := httptest.NewServer(newTestMux(store))
	defer srv.Close()
	defer http.DefaultClient.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)

	// The current value of both slots comes first, in either order.
	initial := map[string]string{}
	for range 2 {
		ev := readEvent(t, r)
		initial[ev.name] = ev.data
	}
	assert.JSONEq(t, `{"status":"loading"}`, initial[eventList])
	assert.JSONEq(t, `{"status":"loading"}`, initial[eventDetail])

	store.list.Set(catalog.Success([]product.Product{iphone}))
	ev := readEvent(t, r)
	assert.Equal(t, eventList, ev.name)
	assert.Contains(t, ev.data, `"status":"success"`)
	assert.Contains(t, ev.data, `"title":"iPhone 9"`)

	store.detail.Set(catalog.Failed[product.Product]("Network error", 0))
	ev = readEvent(t, r)
	assert.Equal(t, eventDetail, ev.name)
	assert.JSONEq(t, `{"status":"error","message":"Network error"}`, ev.data)

	cancel()
}
