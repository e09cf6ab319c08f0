package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teasertech/ghl-lead-relay/internal/conversation"
	"github.com/teasertech/ghl-lead-relay/internal/ghl"
	"github.com/teasertech/ghl-lead-relay/internal/observability/metrics"
	"github.com/teasertech/ghl-lead-relay/pkg/logging"
)

type stubClassifier struct {
	decision  conversation.Decision
	calls     int
	messages  []string
	histories [][]conversation.ChatMessage
}

func (s *stubClassifier) Classify(_ context.Context, message string, history []conversation.ChatMessage) conversation.Decision {
	s.calls++
	s.messages = append(s.messages, message)
	s.histories = append(s.histories, history)
	return s.decision
}

type sentMessage struct {
	contactID string
	text      string
}

type stubCRM struct {
	sent    []sentMessage
	tags    []sentMessage
	failAll bool
}

func (s *stubCRM) SendMessage(_ context.Context, contactID, text string) *ghl.SendMessageResponse {
	s.sent = append(s.sent, sentMessage{contactID, text})
	if s.failAll {
		return nil
	}
	return &ghl.SendMessageResponse{MessageID: "m1"}
}

func (s *stubCRM) AddTag(_ context.Context, contactID, tag string) *ghl.AddTagResponse {
	s.tags = append(s.tags, sentMessage{contactID, tag})
	if s.failAll {
		return nil
	}
	return &ghl.AddTagResponse{Tags: []string{tag}}
}

func newWebhookHandler(classifier *stubClassifier, crm *stubCRM) *GHLWebhookHandler {
	return NewGHLWebhookHandler(classifier, crm, metrics.NewRelayMetrics(prometheus.NewRegistry()), logging.Default())
}

func postWebhook(t *testing.T, h *GHLWebhookHandler, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/ghl", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Handle(w, req)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestGHLWebhook_PriceQuestionSendsReplyWithoutTag(t *testing.T) {
	classifier := &stubClassifier{decision: conversation.Decision{Result: conversation.Result{
		Classification: conversation.ClassificationContinue,
		ReplyMessage:   "Essa é uma pergunta fundamental...",
	}}}
	crm := &stubCRM{}
	h := newWebhookHandler(classifier, crm)

	w, resp := postWebhook(t, h, `{"contactId":"c1","body":"Quanto custa?"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "success"}, resp)
	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, []string{"Quanto custa?"}, classifier.messages)
	require.Len(t, classifier.histories, 1)
	assert.NotNil(t, classifier.histories[0])
	assert.Empty(t, classifier.histories[0])
	assert.Equal(t, []sentMessage{{"c1", "Essa é uma pergunta fundamental..."}}, crm.sent)
	assert.Empty(t, crm.tags)
}

func TestGHLWebhook_QualifiedLeadIsTagged(t *testing.T) {
	classifier := &stubClassifier{decision: conversation.Decision{Result: conversation.Result{
		Classification: conversation.ClassificationQualified,
		ReplyMessage:   "Nossa equipe entrará em contato.",
	}}}
	crm := &stubCRM{}
	h := newWebhookHandler(classifier, crm)

	w, _ := postWebhook(t, h, `{"contactId":"c2","body":"Quero agendar","locationId":"loc1","type":"InboundMessage"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []sentMessage{{"c2", "Nossa equipe entrará em contato."}}, crm.sent)
	assert.Equal(t, []sentMessage{{"c2", conversation.ClassificationQualified}}, crm.tags)
}

func TestGHLWebhook_EmptyReplySkipsSend(t *testing.T) {
	classifier := &stubClassifier{decision: conversation.Decision{Result: conversation.Result{
		Classification: "lead_frio",
	}}}
	crm := &stubCRM{}
	h := newWebhookHandler(classifier, crm)

	w, _ := postWebhook(t, h, `{"contactId":"c3","body":"ok"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, crm.sent)
	assert.Equal(t, []sentMessage{{"c3", "lead_frio"}}, crm.tags)
}

func TestGHLWebhook_EmptyClassificationSkipsTag(t *testing.T) {
	classifier := &stubClassifier{decision: conversation.Decision{Result: conversation.Result{ReplyMessage: "Oi!"}}}
	crm := &stubCRM{}
	h := newWebhookHandler(classifier, crm)

	postWebhook(t, h, `{"contactId":"c4","body":"oi"}`)

	assert.Len(t, crm.sent, 1)
	assert.Empty(t, crm.tags)
}

func TestGHLWebhook_UntrimmedModelOutputForwardedVerbatim(t *testing.T) {
	classifier := &stubClassifier{decision: conversation.Decision{Result: conversation.Result{
		Classification: " continuar_conversa",
		ReplyMessage:   "   ",
	}}}
	crm := &stubCRM{}
	h := newWebhookHandler(classifier, crm)

	w, _ := postWebhook(t, h, `{"contactId":"c9","body":"oi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []sentMessage{{"c9", "   "}}, crm.sent)
	assert.Equal(t, []sentMessage{{"c9", " continuar_conversa"}}, crm.tags)
}

func TestGHLWebhook_FallbackStillSucceeds(t *testing.T) {
	classifier := &stubClassifier{decision: conversation.Decision{
		Result: conversation.Result{
			Classification: conversation.DefaultFallbackClassification,
			ReplyMessage:   conversation.FallbackReply,
		},
		Fallback: true,
		Reason:   errors.New("gemini unavailable"),
	}}
	crm := &stubCRM{}
	h := newWebhookHandler(classifier, crm)

	w, resp := postWebhook(t, h, `{"contactId":"c5","body":"oi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, []sentMessage{{"c5", conversation.FallbackReply}}, crm.sent)
	// The historical fallback label differs from the continue sentinel, so it is tagged.
	assert.Equal(t, []sentMessage{{"c5", conversation.DefaultFallbackClassification}}, crm.tags)
}

func TestGHLWebhook_CRMFailuresAreSwallowed(t *testing.T) {
	classifier := &stubClassifier{decision: conversation.Decision{Result: conversation.Result{
		Classification: conversation.ClassificationQualified,
		ReplyMessage:   "Vamos conversar.",
	}}}
	crm := &stubCRM{failAll: true}
	h := newWebhookHandler(classifier, crm)

	w, resp := postWebhook(t, h, `{"contactId":"c6","body":"sim"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", resp["status"])
	assert.Len(t, crm.sent, 1)
	assert.Len(t, crm.tags, 1)
}

func TestGHLWebhook_MissingFieldsRejected(t *testing.T) {
	cases := map[string]string{
		"missing body":       `{"contactId":"c1"}`,
		"missing contact":    `{"body":"Quanto custa?"}`,
		"missing both":       `{}`,
		"empty strings":      `{"contactId":"","body":""}`,
		"whitespace contact": `{"contactId":"  ","body":"oi"}`,
		"whitespace body":    `{"contactId":"c1","body":"   "}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			classifier := &stubClassifier{}
			crm := &stubCRM{}
			h := newWebhookHandler(classifier, crm)

			w, resp := postWebhook(t, h, body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "error", resp["status"])
			assert.Equal(t, missingFieldsMessage, resp["message"])
			assert.Zero(t, classifier.calls)
			assert.Empty(t, crm.sent)
			assert.Empty(t, crm.tags)
		})
	}
}

func TestGHLWebhook_InvalidJSONRejected(t *testing.T) {
	classifier := &stubClassifier{}
	crm := &stubCRM{}
	h := newWebhookHandler(classifier, crm)

	w, resp := postWebhook(t, h, `{"contactId":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, invalidPayloadMessage, resp["message"])
	assert.Zero(t, classifier.calls)
	assert.Empty(t, crm.sent)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
