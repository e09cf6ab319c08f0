package conversation

import (
	"context"
	"errors"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

var (
	ErrNoMessages     = errors.New("conversation: llm request requires at least one message")
	ErrEmptyResponse  = errors.New("conversation: llm returned empty content")
	ErrPromptBlocked  = errors.New("conversation: prompt blocked by safety filter")
	ErrMalformedReply = errors.New("conversation: llm output is not a JSON object")
)

// ChatMessage is a single conversation turn. History passed to the classifier uses the
// user and assistant roles only.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
	TopK        int32
	// JSONOutput asks the provider to constrain the reply to application/json.
	JSONOutput bool
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
