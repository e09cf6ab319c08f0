package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teasertech/ghl-lead-relay/internal/api/router"
	appconfig "github.com/teasertech/ghl-lead-relay/internal/config"
	"github.com/teasertech/ghl-lead-relay/internal/conversation"
	"github.com/teasertech/ghl-lead-relay/internal/ghl"
	"github.com/teasertech/ghl-lead-relay/internal/http/handlers"
	"github.com/teasertech/ghl-lead-relay/internal/observability/metrics"
	"github.com/teasertech/ghl-lead-relay/pkg/logging"
)

// Relay is the fully wired webhook relay. Handler is safe for concurrent use.
type Relay struct {
	Handler    http.Handler
	Classifier *conversation.Classifier
	CRM        *ghl.Client
	closer     io.Closer
}

// Close releases the LLM client.
func (r *Relay) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Options overrides pieces of the relay. Zero values build the production defaults.
type Options struct {
	LLM        conversation.LLMClient
	Registry   *prometheus.Registry
	HTTPClient *http.Client
}

// BuildRelay validates credentials and constructs the clients once per process.
func BuildRelay(ctx context.Context, cfg *appconfig.Config, opts Options, logger *logging.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}
	relayMetrics := metrics.NewRelayMetrics(registerer)

	relay := &Relay{}
	llm := opts.LLM
	if llm == nil {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		llm = gemini
		relay.closer = gemini
	}

	relay.Classifier = conversation.NewClassifier(llm, conversation.ClassifierConfig{
		FallbackClassification: cfg.FallbackClassification,
		Timeout:                cfg.LLMTimeout,
	}, logger)

	crm, err := ghl.NewClient(ghl.Config{
		Token:           cfg.GHLAPIKey,
		BaseURL:         cfg.GHLBaseURL,
		MessagesVersion: cfg.GHLMessagesVersion,
		TagsVersion:     cfg.GHLTagsVersion,
		MessageType:     cfg.GHLMessageType,
		Timeout:         cfg.CRMTimeout,
		HTTPClient:      opts.HTTPClient,
		Observer:        relayMetrics,
	}, logger)
	if err != nil {
		relay.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	relay.CRM = crm

	relay.Handler = router.New(&router.Config{
		Logger:         logger,
		GHLWebhook:     handlers.NewGHLWebhookHandler(relay.Classifier, crm, relayMetrics, logger),
		MetricsHandler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	})

	logger.Info("ghl relay wired",
		"gemini_model", cfg.GeminiModelID,
		"ghl_base_url", cfg.GHLBaseURL,
		"fallback_classification", cfg.FallbackClassification,
	)
	return relay, nil
}
