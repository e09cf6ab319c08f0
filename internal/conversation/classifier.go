package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teasertech/ghl-lead-relay/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var classifierTracer = otel.Tracer("ghl-relay/classifier")

// Result is the model's decision for one inbound lead message.
type Result struct {
	Classification string `json:"classification"`
	ReplyMessage   string `json:"reply_message"`
}

// Decision wraps a Result with whether it came from the model or the fallback path.
// Reason is set only when Fallback is true.
type Decision struct {
	Result   Result
	Fallback bool
	Reason   error
}

// ClassifierConfig tunes the classifier. Zero values select the defaults.
type ClassifierConfig struct {
	FallbackClassification string
	Timeout                time.Duration
	Temperature            float32
	MaxTokens              int32
}

// Classifier asks the LLM to classify a lead and draft the reply.
type Classifier struct {
	llm      LLMClient
	logger   *logging.Logger
	cfg      ClassifierConfig
	fallback Result
}

// NewClassifier creates a classifier backed by llm.
func NewClassifier(llm LLMClient, cfg ClassifierConfig, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FallbackClassification == "" {
		cfg.FallbackClassification = DefaultFallbackClassification
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	return &Classifier{
		llm:    llm,
		logger: logger,
		cfg:    cfg,
		fallback: Result{
			Classification: cfg.FallbackClassification,
			ReplyMessage:   FallbackReply,
		},
	}
}

// Request builds the LLM request for message and history.
func (c *Classifier) Request(message string, history []ChatMessage) LLMRequest {
	return LLMRequest{
		System:      []string{SystemPrompt()},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: RenderTranscript(history, message)}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        1,
		TopK:        1,
		JSONOutput:  true,
	}
}

// Classify makes exactly one LLM call. It never fails: any provider or parse error
// yields the fallback decision.
func (c *Classifier) Classify(ctx context.Context, message string, history []ChatMessage) Decision {
	ctx, span := classifierTracer.Start(ctx, "classifier.classify")
	defer span.End()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.llm.Complete(ctx, c.Request(message, history))
	var result Result
	if err == nil {
		result, err = ParseResult(resp.Text)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm fallback")
		span.SetAttributes(attribute.Bool("classifier.fallback", true))
		c.logger.Error("gemini classification failed, using fallback reply",
			"error", err,
			"fallback_classification", c.fallback.Classification,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return Decision{Result: c.fallback, Fallback: true, Reason: err}
	}

	span.SetAttributes(
		attribute.Bool("classifier.fallback", false),
		attribute.String("classifier.classification", result.Classification),
		attribute.Int("classifier.output_tokens", int(resp.Usage.OutputTokens)),
	)
	c.logger.Info("gemini classification",
		"classification", result.Classification,
		"reply_length", len(result.ReplyMessage),
		"stop_reason", resp.StopReason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Decision{Result: result}
}

// ParseResult decodes the model's JSON object. Missing keys decode as empty strings;
// values are returned exactly as the model wrote them.
func ParseResult(text string) (Result, error) {
	text = stripCodeFence(text)
	if !strings.HasPrefix(text, "{") {
		return Result{}, ErrMalformedReply
	}
	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return result, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
