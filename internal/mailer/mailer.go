// Package mailer delivers password-reset mail. Delivery is best-effort:
// the auth service fires a job and never learns whether it arrived.
package mailer

import "context"

// Mailer sends one plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Job is the serialized form of one outbound message, as published to
// the mail queue.
type Job struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
