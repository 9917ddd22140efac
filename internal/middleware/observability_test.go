package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wainbox/internal/metrics"
	"wainbox/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)
	return logger, buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func scrape(t *testing.T, registry *metrics.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObservabilityMiddleware_LabelsByRouteTemplate(t *testing.T) {
	logger, buf := bufferedLogger()
	registry := metrics.NewRegistry()

	router := mux.NewRouter()
	router.Use(ObservabilityMiddleware(logger, registry, nil))
	router.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, tracing.GetRequestID(r.Context()))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"invalid id"}`))
	}).Methods(http.MethodGet)

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get(tracing.RequestIDHeader), "req_"))
	}

	body := scrape(t, registry)
	assert.Contains(t, body, `wainbox_http_requests_total{method="GET",route="/items/{id}",status_code="404"} 3`)

	lines := logLines(t, buf)
	require.Len(t, lines, 6)
	completed := lines[1]
	assert.Equal(t, "HTTP request completed", completed["msg"])
	assert.Equal(t, "warning", completed["level"])
	assert.Equal(t, float64(404), completed["status_code"])
	assert.Equal(t, "/items/{id}", completed["route"])
	assert.Equal(t, float64(len(`{"error":"invalid id"}`)), completed["size_bytes"])
}

func TestObservabilityMiddleware_ReusesIncomingRequestID(t *testing.T) {
	logger, _ := bufferedLogger()

	router := mux.NewRouter()
	router.Use(ObservabilityMiddleware(logger, nil, nil))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req_fixed", tracing.GetRequestID(r.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(tracing.RequestIDHeader, "req_fixed")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req_fixed", rec.Header().Get(tracing.RequestIDHeader))
}

func TestObservabilityMiddleware_MasksSensitiveHeaders(t *testing.T) {
	logger, buf := bufferedLogger()

	router := mux.NewRouter()
	router.Use(ObservabilityMiddleware(logger, metrics.NewRegistry(), nil))
	router.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-Hub-Signature-256", "sha256=abc")
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, buf.String(), "secret-token")
	assert.NotContains(t, buf.String(), "sha256=abc")

	lines := logLines(t, buf)
	require.Len(t, lines, 2)
	headers := lines[0]["request_headers"].(map[string]interface{})
	assert.Equal(t, "***MASKED***", headers["Authorization"])
	assert.Equal(t, "application/json", headers["Content-Type"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestRouteTemplate_Unmatched(t *testing.T) {
	assert.Equal(t, unmatchedRoute, routeTemplate(httptest.NewRequest(http.MethodGet, "/nowhere", nil), nil))
}

func TestResponseWrapper_KeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &responseWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

	_, _ = w.Write([]byte("ok"))
	w.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, w.statusCode)
	assert.Equal(t, int64(2), w.responseSize)
}

func TestObservabilityMiddleware_WrapsRouterIncludingUnmatched(t *testing.T) {
	logger, buf := bufferedLogger()
	registry := metrics.NewRegistry()

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, tracing.GetRequestID(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})
	handler := ObservabilityMiddleware(logger, registry, router)(router)

	requests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/items/7", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
		{http.MethodPut, "/api/items/7", http.StatusMethodNotAllowed},
	}
	for _, req := range requests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(req.method, req.path, nil))
		assert.Equal(t, req.status, rec.Code, req.path)
		assert.True(t, strings.HasPrefix(rec.Header().Get(tracing.RequestIDHeader), "req_"), req.path)
	}

	body := scrape(t, registry)
	assert.Contains(t, body, `wainbox_http_requests_total{method="GET",route="/api/items/{id}",status_code="200"} 1`)
	assert.Contains(t, body, `wainbox_http_requests_total{method="GET",route="unmatched",status_code="404"} 1`)
	assert.Contains(t, body, `wainbox_http_requests_total{method="PUT",route="unmatched",status_code="405"} 1`)
	assert.Len(t, logLines(t, buf), 6)
}
