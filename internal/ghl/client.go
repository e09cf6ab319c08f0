package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teasertech/ghl-lead-relay/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL         = "https://services.leadconnectorhq.com"
	DefaultMessagesVersion = "2021-07-28"
	DefaultTagsVersion     = "2021-04-15"
	DefaultMessageType     = "SMS"
	defaultHTTPTimeout     = 10 * time.Second

	OpSendMessage = "send_message"
	OpAddTag      = "add_tag"
)

var ErrMissingToken = errors.New("ghl: api token is required")

var ghlTracer = otel.Tracer("ghl-relay/ghl-client")

// CallObserver receives one outcome per API call. status is "ok" or a failure class.
type CallObserver interface {
	ObserveCRMCall(operation, status string)
}

// Config configures the GoHighLevel client. Empty fields take the defaults.
type Config struct {
	Token           string
	BaseURL         string
	MessagesVersion string
	TagsVersion     string
	MessageType     string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Observer        CallObserver
}

// Client calls the GoHighLevel REST API. Failed calls are logged and reported as nil
// results; nothing is returned to the caller as an error.
type Client struct {
	token           string
	baseURL         string
	messagesVersion string
	tagsVersion     string
	messageType     string
	httpClient      *http.Client
	timeout         time.Duration
	observer        CallObserver
	logger          *logging.Logger
}

// NewClient creates a GHL client. An empty token is a startup error.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		token:           token,
		baseURL:         strings.TrimRight(firstNonEmpty(cfg.BaseURL, DefaultBaseURL), "/"),
		messagesVersion: firstNonEmpty(cfg.MessagesVersion, DefaultMessagesVersion),
		tagsVersion:     firstNonEmpty(cfg.TagsVersion, DefaultTagsVersion),
		messageType:     firstNonEmpty(cfg.MessageType, DefaultMessageType),
		httpClient:      httpClient,
		timeout:         timeout,
		observer:        cfg.Observer,
		logger:          logger,
	}, nil
}

// SendMessage sends text to the contact's conversation. Returns nil on any failure.
func (c *Client) SendMessage(ctx context.Context, contactID, text string) *SendMessageResponse {
	payload := SendMessageRequest{
		Type:      c.messageType,
		ContactID: contactID,
		Message:   text,
	}
	var out SendMessageResponse
	if err := c.post(ctx, OpSendMessage, "/conversations/messages", c.messagesVersion, contactID, payload, &out); err != nil {
		c.logger.Error("ghl: failed to send message", "contact_id", contactID, "error", err)
		return nil
	}
	c.logger.Info("ghl: message sent", "contact_id", contactID, "message_id", out.MessageID)
	return &out
}

// AddTag adds a single tag to the contact. Returns nil on any failure.
func (c *Client) AddTag(ctx context.Context, contactID, tag string) *AddTagResponse {
	path := "/contacts/" + url.PathEscape(contactID) + "/tags"
	var out AddTagResponse
	if err := c.post(ctx, OpAddTag, path, c.tagsVersion, contactID, AddTagRequest{Tags: []string{tag}}, &out); err != nil {
		c.logger.Error("ghl: failed to add tag", "contact_id", contactID, "tag", tag, "error", err)
		return nil
	}
	c.logger.Info("ghl: tag added", "contact_id", contactID, "tag", tag)
	return &out
}

// post bounds each call by the client timeout, derived from the caller's context.
func (c *Client) post(ctx context.Context, op, path, version, contactID string, payload, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx, span := ghlTracer.Start(ctx, "ghl."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("ghl.contact_id", contactID),
		attribute.String("ghl.api_version", version),
	)

	status := "ok"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		if c.observer != nil {
			c.observer.ObserveCRMCall(op, status)
		}
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		status = "encode_error"
		return fmt.Errorf("ghl: marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		status = "request_error"
		return fmt.Errorf("ghl: create %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Version", version)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		status = "transport_error"
		return fmt.Errorf("ghl: %s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		status = "read_error"
		return fmt.Errorf("ghl: read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "http_error"
		return fmt.Errorf("ghl: %s unexpected status %d: %s", op, resp.StatusCode, describeAPIError(respBody))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		status = "decode_error"
		return fmt.Errorf("ghl: unmarshal %s response: %w", op, err)
	}
	return nil
}

func describeAPIError(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != nil {
		return fmt.Sprint(apiErr.Message)
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256]
	}
	return text
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
