package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func useStubRouter(t *testing.T) {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	chiLambda = chiadapter.NewV2(r)
	logger = zap.NewNop()
	coldStart = true
}

func healthRequest(requestID string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: "/health",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID:  requestID,
			DomainName: "api.example.com",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: http.MethodGet,
				Path:   "/health",
			},
		},
	}
}

func TestHandler_ColdStartHeader(t *testing.T) {
	useStubRouter(t)
	ctx := context.Background()

	first, err := Handler(ctx, healthRequest("req-1"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "true", first.Headers["X-Cold-Start"])
	assert.JSONEq(t, `{"status":"healthy"}`, first.Body)

	second, err := Handler(ctx, healthRequest("req-2"))
	require.NoError(t, err)
	assert.Equal(t, "false", second.Headers["X-Cold-Start"])
}

func TestHandler_LambdaRequestIDHeader(t *testing.T) {
	useStubRouter(t)

	resp, err := Handler(context.Background(), healthRequest("req-42"))
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Headers["X-Lambda-Request-ID"])

	resp, err = Handler(context.Background(), healthRequest(""))
	require.NoError(t, err)
	assert.NotContains(t, resp.Headers, "X-Lambda-Request-ID")
}
