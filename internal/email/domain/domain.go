package domain

import "context"

// Message is a single outbound email. HTMLBody is optional; senders fall back
// to the text body when it is empty.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender is a pluggable email sending interface.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
