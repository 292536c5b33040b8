package router_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elby-ai/elby-backend/app/handlers"
	"github.com/elby-ai/elby-backend/app/middleware"
	"github.com/elby-ai/elby-backend/app/router"
)

func newTestRouter(t *testing.T) router.Router {
	t.Helper()
	r := router.NewFiberRouter(
		[]string{"http://localhost:3000"},
		handlers.NewAuthHandler(nil, nil),
		handlers.NewChatHandler(nil, nil),
		handlers.NewAdminHandler(nil),
		handlers.NewContentHandler(nil),
		middleware.NewAuthMiddleware(nil, nil, nil),
	)
	r.SetupRoutes()
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	resp, err := r.GetApp().Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Elby", resp.Header.Get("Server"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	resp, err := r.GetApp().Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	r := newTestRouter(t)

	resp, err := r.GetApp().Test(httptest.NewRequest("GET", "/api/v1/nope", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 404, resp.StatusCode)
}

func TestProtectedRouteRequiresAuthorization(t *testing.T) {
	r := newTestRouter(t)

	resp, err := r.GetApp().Test(httptest.NewRequest("GET", "/api/v1/auth/me", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 401, resp.StatusCode)
}
