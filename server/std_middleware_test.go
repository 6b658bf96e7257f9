package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ezekl/budget-server/server"
)

const allowedOrigin = "http://localhost:8001"

func (f *serverFixture) doWithOrigin(t *testing.T, method, target, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestCorsMiddleware(t *testing.T) {
	t.Run("an allowed origin is echoed with credentials", func(t *testing.T) {
		f := newServerFixture(t, nil)

		rec := f.doWithOrigin(t, http.MethodGet, server.RouteHealth, allowedOrigin)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("a disallowed origin gets no CORS headers", func(t *testing.T) {
		f := newServerFixture(t, nil)

		rec := f.doWithOrigin(t, http.MethodGet, server.RouteHealth, "http://evil.example")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight from an allowed origin is answered in full", func(t *testing.T) {
		f := newServerFixture(t, nil)

		rec := f.doWithOrigin(t, http.MethodOptions, server.RouteEmployees, allowedOrigin)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		require.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from a disallowed origin gets no CORS headers", func(t *testing.T) {
		f := newServerFixture(t, nil)

		rec := f.doWithOrigin(t, http.MethodOptions, server.RouteEmployees, "http://evil.example")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("origins come from the environment", func(t *testing.T) {
		f := newServerFixture(t, nil)
		t.Setenv("ALLOW_ORIGINS", "https://app.example.com")

		rec := f.doWithOrigin(t, http.MethodGet, server.RouteHealth, "https://app.example.com")
		require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = f.doWithOrigin(t, http.MethodGet, server.RouteHealth, allowedOrigin)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
