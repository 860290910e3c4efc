package httpmiddleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS_AllowedOrigin(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins:  []string{"https://Shop.example.com"},
		ExposeHeaders: []string{RequestIDHeader},
	})(okHandler())

	w := serve(h, http.MethodGet, "/api/products/state", http.Header{"Origin": {"https://shop.example.com"}})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "https://Shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example.com"}})(okHandler())

	w := serve(h, http.MethodGet, "/api/products/state", http.Header{"Origin": {"https://evil.example.com"}})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	for _, origins := range [][]string{nil, {"*"}} {
		h := CORS(CORSConfig{AllowOrigins: origins})(okHandler())

		w := serve(h, http.MethodGet, "/api/events", http.Header{"Origin": {"http://localhost:3000"}})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Values("Vary"))
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(CORSConfig{
		AllowOrigins: []string{"https://shop.example.com"},
		MaxAge:       600,
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	w := serve(h, http.MethodOptions, "/api/products/load", http.Header{
		"Origin":                         {"https://shop.example.com"},
		"Access-Control-Request-Method":  {"POST"},
		"Access-Control-Request-Headers": {"Content-Type, X-Request-ID"},
	})
	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))

	w = serve(h, http.MethodOptions, "/api/products/load", http.Header{
		"Origin":                        {"https://evil.example.com"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
