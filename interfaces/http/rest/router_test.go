package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nodes-backend/application/services"
	"nodes-backend/domain/core/entities"
	"nodes-backend/infrastructure/persistence/memory"
	"nodes-backend/interfaces/http/rest/handlers"
	"nodes-backend/pkg/auth"
	apperrors "nodes-backend/pkg/errors"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, config RouterConfig) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	errorHandler := apperrors.NewErrorHandler(logger, false)
	nodes := services.NewNodesService(memory.NewCollection[*entities.Node](entities.NodeIDField))
	return NewRouter(handlers.NewNodeHandler(nodes, errorHandler, logger), errorHandler, config, logger).Setup()
}

func serve(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_NodeLifecycle(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	rec := serve(h, http.MethodPost, "/api/v1/nodes", `{"title":"first"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, APIVersion, rec.Header().Get("X-API-Version"))

	var created struct {
		Data entities.Node `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/api/v1/nodes/" + created.Data.ID

	rec = serve(h, http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"first"`)

	rec = serve(h, http.MethodPut, path, `{"title":"second"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, path, "", "")
	assert.Contains(t, rec.Body.String(), `"title":"second"`)

	rec = serve(h, http.MethodDelete, path, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodDelete, path, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "deleting a missing node is a no-op")
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, RouterConfig{})

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/ready", "", "").Code)
}

func TestRouter_ReadinessFailure(t *testing.T) {
	h := newTestRouter(t, RouterConfig{
		Ready: func(ctx context.Context) error { return errors.New("database is closed") },
	})

	rec := serve(h, http.MethodGet, "/ready", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Authentication(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "secret", Issuer: "nodes-backend"})
	require.NoError(t, err)
	token, err := validator.GenerateToken("user-1", "", nil, time.Hour)
	require.NoError(t, err)

	h := newTestRouter(t, RouterConfig{Validator: validator})

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodPost, "/api/v1/nodes", `{}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodPost, "/api/v1/nodes", `{}`, "bogus").Code)
	assert.Equal(t, http.StatusCreated, serve(h, http.MethodPost, "/api/v1/nodes", `{}`, token).Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health", "", "").Code, "health stays public")
}

func TestRouter_RateLimit(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "secret"})
	require.NoError(t, err)
	token, err := validator.GenerateToken("user-1", "", nil, time.Hour)
	require.NoError(t, err)

	h := newTestRouter(t, RouterConfig{
		Validator: validator,
		Limiter:   auth.NewSlidingWindowLimiter(1, time.Minute),
	})

	assert.Equal(t, http.StatusCreated, serve(h, http.MethodPost, "/api/v1/nodes", `{}`, token).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodPost, "/api/v1/nodes", `{}`, token).Code)
}

func TestRouter_CORS(t *testing.T) {
	h := newTestRouter(t, RouterConfig{EnableCORS: true, AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/nodes", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
