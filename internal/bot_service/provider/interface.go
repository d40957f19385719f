package provider

import (
	"context"
	"encoding/json"
)

// SendRequest is one outbound chat message. MediaURL is optional.
type SendRequest struct {
	To       string
	Body     string
	MediaURL string
}

// SendResult is what the provider reported for an accepted message.
// ProviderMessageID may be empty when the provider does not issue one.
type SendResult struct {
	ProviderMessageID string
	Status            string
	Raw               json.RawMessage
}

// MessageProvider delivers chat messages to an external messaging API.
type MessageProvider interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	GetName() string
}
