package gateway

import (
	"context"
	"net/http"
)

type ChatRequest struct {
	Message string `json:"message"`
	// Preferred reply language, ISO code.
	Language string `json:"language,omitempty"`
	// Elder-care profile context, serialized as-is.
	Profile any `json:"profile,omitempty"`
}

// ChatResponse carries the assistant's reply. Response is the primary text
// field; some deployments answer in Message instead, so callers fall back
// in that order.
type ChatResponse struct {
	Response       string `json:"response"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	Timestamp      string `json:"timestamp"`
}

func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var resp ChatResponse
	err := c.doJSON(ctx, http.MethodPost, "/chat/message", req, &resp)
	return resp, err
}
