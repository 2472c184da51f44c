package mailer

import (
	"context"
	"encoding/json"

	"github.com/authcore/apiserver/internal/logging"
	"github.com/authcore/apiserver/internal/mq"
)

// Worker consumes mail jobs from the broker and delivers them. A job
// that fails to decode is dropped; a job that fails to send is nacked
// so the broker can redeliver it.
type Worker struct {
	backend mq.Backend
	channel string
	mailer  Mailer
	log     logging.Logger
}

func NewWorker(backend mq.Backend, channel string, mailer Mailer, log logging.Logger) *Worker {
	return &Worker{backend: backend, channel: channel, mailer: mailer, log: log}
}

// Run blocks consuming the mail channel until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info(ctx, "mail worker started", "channel", w.channel)
	return w.backend.Subscribe(ctx, w.channel, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.log.Error(ctx, "dropping undecodable mail job", "message_id", msg.ID, "error", err)
		return nil
	}
	if err := w.mailer.Send(ctx, job.To, job.Subject, job.Body); err != nil {
		w.log.Error(ctx, "mail delivery failed", "to", job.To, "error", err)
		return err
	}
	w.log.Info(ctx, "mail delivered", "to", job.To)
	return nil
}
