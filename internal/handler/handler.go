// Package handler exposes the catalog store over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/pkg/observable"
)

// Store is the part of *catalog.Store the handler drives.
type Store interface {
	LoadList()
	LoadDetail(id int64)
	ListState() observable.Source[catalog.ListState]
	DetailState() observable.Source[catalog.DetailState]
}

var _ Store = (*catalog.Store)(nil)

// Handler serves the catalog state slots and commands.
type Handler struct {
	store Store
}

// NewHandler returns a Handler backed by store.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Register adds the catalog routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/products/load", h.LoadList)
	mux.HandleFunc("GET /api/products/state", h.ListState)
	mux.HandleFunc("POST /api/products/{id}/load", h.LoadDetail)
	mux.HandleFunc("GET /api/product/state", h.DetailState)
	mux.HandleFunc("GET /api/events", h.Events)
}

// LoadList triggers a product list reload and answers 202 with the Loading
// state.
func (h *Handler) LoadList(w http.ResponseWriter, r *http.Request) {
	h.store.LoadList()
	zctx.From(r.Context()).Debug("List load requested")

	writeState(w, http.StatusAccepted, catalog.Loading[[]product.Product](), encodeListState)
}

// ListState returns the current product list state.
func (h *Handler) ListState(w http.ResponseWriter, _ *http.Request) {
	writeState(w, http.StatusOK, h.store.ListState().Get(), encodeListState)
}

// LoadDetail triggers loading of the product named by the {id} path value
// and answers 202 with the Loading state.
func (h *Handler) LoadDetail(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		zctx.From(r.Context()).Debug("Invalid product id", zap.String("id", raw))
		writeError(w, http.StatusBadRequest, "invalid product id "+strconv.Quote(raw))
		return
	}

	h.store.LoadDetail(id)
	zctx.From(r.Context()).Debug("Detail load requested", zap.Int64("product_id", id))

	writeState(w, http.StatusAccepted, catalog.Loading[product.Product](), encodeDetailState)
}

// DetailState returns the current product detail state.
func (h *Handler) DetailState(w http.ResponseWriter, _ *http.Request) {
	writeState(w, http.StatusOK, h.store.DetailState().Get(), encodeDetailState)
}

func writeState[T any](w http.ResponseWriter, status int, s T, encode func(*jx.Encoder, T)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e, s)
	writeJSON(w, status, e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
