// Package mail delivers transactional e-mail such as one-time codes.
package mail

import "context"

// Message is a single outbound e-mail with a plain-text and an HTML body.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
