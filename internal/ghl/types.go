package ghl

// SendMessageRequest is the body of POST /conversations/messages.
type SendMessageRequest struct {
	Type      string `json:"type"`
	ContactID string `json:"contactId"`
	Message   string `json:"message"`
}

// SendMessageResponse is the subset of the GHL reply the relay logs.
type SendMessageResponse struct {
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Message        string `json:"msg,omitempty"`
}

// AddTagRequest is the body of POST /contacts/{contactId}/tags.
type AddTagRequest struct {
	Tags []string `json:"tags"`
}

type AddTagResponse struct {
	Tags []string `json:"tags,omitempty"`
}

// apiError is the error envelope GHL returns on 4xx responses.
type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error"`
}
