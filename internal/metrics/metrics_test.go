package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPRequest(t *testing.T) {
	r := NewRegistry()

	r.ObserveHTTPRequest(http.MethodPost, "/whatsapp/webhook", http.StatusOK, 10*time.Millisecond)
	r.ObserveHTTPRequest(http.MethodPost, "/whatsapp/webhook", http.StatusOK, 20*time.Millisecond)
	r.ObserveHTTPRequest(http.MethodPost, "/whatsapp/webhook", http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("POST", "/whatsapp/webhook", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("POST", "/whatsapp/webhook", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.httpDuration))
}

func TestRecordWebhookDelivery(t *testing.T) {
	r := NewRegistry()

	r.RecordWebhookDelivery(OutcomeStored, 3)
	r.RecordWebhookDelivery(OutcomeSkipped, 0)
	r.RecordWebhookDelivery(OutcomeRejected, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.webhookDeliveries.WithLabelValues(OutcomeStored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.webhookDeliveries.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.webhookDeliveries.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.recordsStored))
}

func TestRecordTemplateSend(t *testing.T) {
	r := NewRegistry()

	r.RecordTemplateSend(OutcomeSent, 150*time.Millisecond)
	r.RecordTemplateSend(OutcomeNotFound, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.templateSends.WithLabelValues(OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.templateSends.WithLabelValues(OutcomeNotFound)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.templateSends.WithLabelValues(OutcomeMissingConfig)))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry

	assert.NotPanics(t, func() {
		r.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
		r.RecordWebhookDelivery(OutcomeStored, 1)
		r.RecordTemplateSend(OutcomeSent, time.Millisecond)
	})
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.RecordWebhookDelivery(OutcomeStored, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.recordsStored))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.recordsStored))
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordWebhookDelivery(OutcomeStored, 2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `wainbox_webhook_deliveries_total{outcome="stored"} 1`)
	assert.Contains(t, string(body), "wainbox_records_stored_total 2")
	assert.Contains(t, string(body), "go_goroutines")
}
