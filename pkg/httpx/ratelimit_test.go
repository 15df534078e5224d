package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_AllowsWithinLimit(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}
	handler := RateLimitMiddleware(cfg, IPKeyExtractor)(okHandler())

	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitMiddleware_BlocksOverLimit(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	handler := RateLimitMiddleware(cfg, IPKeyExtractor)(okHandler())

	var last *httptest.ResponseRecorder
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	require.NotEmpty(t, last.Header().Get("Retry-After"))
	require.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitMiddleware_KeysAreIndependent(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	handler := RateLimitMiddleware(cfg, IPKeyExtractor)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.3:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same IP is now exhausted
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different IP still has its own budget
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.4:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*http.Request)
		expect string
	}{
		{
			"x-forwarded-for single",
			func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7") },
			"203.0.113.7",
		},
		{
			"x-forwarded-for list takes first",
			func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1") },
			"203.0.113.7",
		},
		{
			"x-real-ip",
			func(r *http.Request) { r.Header.Set("X-Real-IP", "203.0.113.8") },
			"203.0.113.8",
		},
		{
			"remote addr fallback",
			func(r *http.Request) {},
			"192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			require.Equal(t, tt.expect, IPKeyExtractor(req))
		})
	}
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TESTPROFILE_REQUESTS", "42")
	t.Setenv("RATELIMIT_TESTPROFILE_WINDOW_SEC", "120")
	t.Setenv("RATELIMIT_TESTPROFILE_BURST", "7")

	cfg := ParseRateLimitFromEnv("TESTPROFILE", RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Second,
		Burst:             1,
	})

	require.Equal(t, 42, cfg.RequestsPerWindow)
	require.Equal(t, 2*time.Minute, cfg.Window)
	require.Equal(t, 7, cfg.Burst)
}

func TestChainOrdering(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(okHandler(), mw("outer"), mw("inner"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}
