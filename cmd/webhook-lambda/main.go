package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/teasertech/ghl-lead-relay/internal/app/bootstrap"
	appconfig "github.com/teasertech/ghl-lead-relay/internal/config"
	"github.com/teasertech/ghl-lead-relay/internal/observability/tracing"
	"github.com/teasertech/ghl-lead-relay/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	tp, err := tracing.Setup(context.Background(), tracing.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	relay, err := bootstrap.BuildRelay(context.Background(), cfg, bootstrap.Options{}, logger)
	if err != nil {
		logger.Error("failed to initialize relay", "error", err)
		os.Exit(1)
	}
	defer relay.Close()

	proxy := newProxy(relay.Handler)
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		resp, err := proxy(ctx, evt)
		// The execution environment may freeze as soon as we return.
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if ferr := tp.ForceFlush(flushCtx); ferr != nil {
			logger.Warn("trace flush failed", "error", ferr)
		}
		return resp, err
	})
}

type proxyFunc func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// newProxy serves API Gateway v2 events through the in-process router. Cookies,
// multi-value headers and base64 bodies are handled by the adapter.
func newProxy(h http.Handler) proxyFunc {
	adapter := httpadapter.NewV2(h)
	return func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return adapter.ProxyWithContext(ctx, stripStage(evt))
	}
}

// stripStage removes the "/<stage>" prefix API Gateway keeps in the raw path
// for named stages, so routes match the paths the server registers.
func stripStage(evt events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPRequest {
	stage := strings.Trim(evt.RequestContext.Stage, "/")
	if stage == "" || stage == "$default" {
		return evt
	}
	prefix := "/" + stage
	evt.RawPath = trimPrefixSegment(evt.RawPath, prefix)
	evt.RequestContext.HTTP.Path = trimPrefixSegment(evt.RequestContext.HTTP.Path, prefix)
	return evt
}

func trimPrefixSegment(path, prefix string) string {
	if path == prefix {
		return "/"
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix):]
	}
	return path
}
