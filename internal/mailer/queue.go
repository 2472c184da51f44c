package mailer

import (
	"context"
	"encoding/json"

	"github.com/authcore/apiserver/internal/mq"
)

// QueueMailer publishes mail jobs to a broker channel instead of
// sending them. The worker command consumes the channel and performs
// the actual SMTP delivery.
type QueueMailer struct {
	backend mq.Backend
	channel string
}

func NewQueueMailer(backend mq.Backend, channel string) *QueueMailer {
	return &QueueMailer{backend: backend, channel: channel}
}

func (q *QueueMailer) Send(ctx context.Context, to, subject, body string) error {
	data, err := json.Marshal(Job{To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	_, err = q.backend.Publish(ctx, q.channel, data, nil)
	return err
}
