package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	tpl "github.com/oksasatya/taskboard-api/pkg/mailer/templates"
)

// Outcome tells the queue consumer what to do with a delivery.
type Outcome int

const (
	Ack     Outcome = iota // sent
	Drop                   // malformed or unrenderable; retrying cannot help
	Requeue                // transient failure; try again later
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Drop:
		return "drop"
	case Requeue:
		return "requeue"
	}
	return "unknown"
}

const sendTimeout = 15 * time.Second

// Process decodes, renders and sends one queued job.
func Process(ctx context.Context, body []byte, sender Sender) (Outcome, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return Drop, errors.Join(ErrInvalidJob, err)
	}
	if err := job.Validate(); err != nil {
		return Drop, err
	}
	job.EnsureRecipient()

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := tpl.Render(job.Template, job.Data)
		if err != nil {
			return Drop, err
		}
		subject, text, html = s, t, h
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := sender.Send(c, job.To, subject, text, html); err != nil {
		if errors.Is(err, ErrPermanent) {
			return Drop, err
		}
		return Requeue, err
	}
	return Ack, nil
}
