package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/teasertech/ghl-lead-relay/internal/conversation"
	"github.com/teasertech/ghl-lead-relay/internal/ghl"
	"github.com/teasertech/ghl-lead-relay/internal/http/handlers"
	"github.com/teasertech/ghl-lead-relay/internal/observability/metrics"
	"github.com/teasertech/ghl-lead-relay/pkg/logging"
)

type fixedClassifier struct{}

func (fixedClassifier) Classify(context.Context, string, []conversation.ChatMessage) conversation.Decision {
	return conversation.Decision{Result: conversation.Result{Classification: conversation.ClassificationContinue}}
}

type noopCRM struct{}

func (noopCRM) SendMessage(context.Context, string, string) *ghl.SendMessageResponse { return nil }
func (noopCRM) AddTag(context.Context, string, string) *ghl.AddTagResponse           { return nil }

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	m := metrics.NewRelayMetrics(reg)
	logger := logging.Default()
	return New(&Config{
		Logger:         logger,
		GHLWebhook:     handlers.NewGHLWebhookHandler(fixedClassifier{}, noopCRM{}, m, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"webhook", http.MethodPost, "/webhook/ghl", `{"contactId":"c1","body":"oi"}`, http.StatusOK},
		{"webhook invalid", http.MethodPost, "/webhook/ghl", `{}`, http.StatusBadRequest},
		{"webhook wrong method", http.MethodGet, "/webhook/ghl", "", http.StatusMethodNotAllowed},
		{"unknown", http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	r := newTestRouter()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/webhook/ghl", strings.NewReader(`{"contactId":"c1","body":"oi"}`)))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ghl_relay_webhook_requests_total{outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), `ghl_relay_llm_classifications_total{classification="continuar_conversa",fallback="false"} 1`)
}
