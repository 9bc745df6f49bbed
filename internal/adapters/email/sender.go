// Package email delivers cheer notifications through an external provider.
package email

import (
	"context"
	"time"
)

// SendRequest is one outgoing message.
type SendRequest struct {
	To      []string
	From    string // overrides the sender default when set
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string
}

// SendResult is the provider's receipt for one message.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender sends email through a provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
