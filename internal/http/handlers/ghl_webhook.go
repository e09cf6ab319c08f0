package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teasertech/ghl-lead-relay/internal/conversation"
	"github.com/teasertech/ghl-lead-relay/internal/ghl"
	"github.com/teasertech/ghl-lead-relay/internal/observability/metrics"
	"github.com/teasertech/ghl-lead-relay/pkg/logging"
)

const (
	maxWebhookBody        = 1 << 20
	missingFieldsMessage  = "Faltando contact_id ou mensagem"
	invalidPayloadMessage = "Corpo da requisição inválido"
)

// LeadClassifier turns an inbound message into a classification and a reply.
type LeadClassifier interface {
	Classify(ctx context.Context, message string, history []conversation.ChatMessage) conversation.Decision
}

// CRMWriter performs the two GHL side effects. Both return nil on failure.
type CRMWriter interface {
	SendMessage(ctx context.Context, contactID, text string) *ghl.SendMessageResponse
	AddTag(ctx context.Context, contactID, tag string) *ghl.AddTagResponse
}

// InboundMessage is the GHL inbound-message webhook payload. Only ContactID and Body
// drive the relay; the rest is logged.
type InboundMessage struct {
	Type           string `json:"type"`
	LocationID     string `json:"locationId"`
	ContactID      string `json:"contactId"`
	ConversationID string `json:"conversationId"`
	MessageType    string `json:"messageType"`
	Direction      string `json:"direction"`
	Body           string `json:"body"`
}

type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// GHLWebhookHandler relays inbound GHL lead messages through the classifier and back
// to the CRM.
type GHLWebhookHandler struct {
	classifier LeadClassifier
	crm        CRMWriter
	metrics    *metrics.RelayMetrics
	logger     *logging.Logger
}

func NewGHLWebhookHandler(classifier LeadClassifier, crm CRMWriter, m *metrics.RelayMetrics, logger *logging.Logger) *GHLWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &GHLWebhookHandler{classifier: classifier, crm: crm, metrics: m, logger: logger}
}

// Handle serves POST /webhook/ghl. Once the payload is valid the response is always
// 200: GHL re-delivers on failure statuses, which would duplicate the reply.
func (h *GHLWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.reject(w, start, "invalid_payload", invalidPayloadMessage, "error", err)
		return
	}

	var msg InboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.reject(w, start, "invalid_payload", invalidPayloadMessage, "error", err)
		return
	}
	h.logger.Debug("ghl webhook received", "payload", string(payload))

	contactID := strings.TrimSpace(msg.ContactID)
	if contactID == "" || strings.TrimSpace(msg.Body) == "" {
		h.reject(w, start, "missing_fields", missingFieldsMessage,
			"has_contact_id", contactID != "",
			"has_body", strings.TrimSpace(msg.Body) != "",
		)
		return
	}

	logger := h.logger.With(
		"contact_id", contactID,
		"conversation_id", msg.ConversationID,
		"location_id", msg.LocationID,
		"message_type", msg.MessageType,
	)

	// Side effects must finish even if GHL drops the connection.
	ctx := context.WithoutCancel(r.Context())
	h.relay(ctx, logger, contactID, msg.Body)

	h.metrics.ObserveWebhook("success", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, webhookResponse{Status: "success"})
}

func (h *GHLWebhookHandler) relay(ctx context.Context, logger *logging.Logger, contactID, body string) {
	// History is not persisted; every message is classified on its own.
	history := []conversation.ChatMessage{}

	decision := h.classifier.Classify(ctx, body, history)
	result := decision.Result
	h.metrics.ObserveClassification(result.Classification, decision.Fallback)

	if decision.Fallback {
		logger.Warn("classifier fell back", "reason", decision.Reason)
	}
	logger.Info("lead classified",
		"classification", result.Classification,
		"fallback", decision.Fallback,
		"reply_length", len(result.ReplyMessage),
	)

	if result.ReplyMessage != "" {
		if resp := h.crm.SendMessage(ctx, contactID, result.ReplyMessage); resp == nil {
			logger.Warn("reply not delivered to ghl")
		}
	}

	if result.Classification != "" && result.Classification != conversation.ClassificationContinue {
		if resp := h.crm.AddTag(ctx, contactID, result.Classification); resp == nil {
			logger.Warn("tag not applied in ghl", "tag", result.Classification)
		}
	}
}

func (h *GHLWebhookHandler) reject(w http.ResponseWriter, start time.Time, outcome, message string, attrs ...any) {
	h.logger.Warn("rejected ghl webhook", append([]any{"outcome", outcome}, attrs...)...)
	h.metrics.ObserveWebhook(outcome, time.Since(start).Seconds())
	writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Message: message})
}

// Health serves GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, webhookResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
