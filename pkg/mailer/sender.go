package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sender delivers a single rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// LogSender writes messages to the log instead of delivering them.
// Used when MAIL_SEND_ENABLED=false so local flows stay usable.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, text, _ string) error {
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info(text)
	}
	return nil
}
