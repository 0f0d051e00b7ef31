package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// ErrPermanent marks a send the provider rejected outright; retrying the
// same message cannot succeed.
var ErrPermanent = errors.New("permanent send failure")

// Mailgun delivers messages through the Mailgun HTTP API.
type Mailgun struct {
	Sender string
	client *mg.MailgunImpl
}

// NewMailgun builds a sender for domain. apiBase may be empty for the US
// region or mg.APIBaseEU for EU domains.
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &Mailgun{Sender: sender, client: client}
}

// Send sends one message. html is optional.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return classify(err)
}

// classify wraps client errors (bad address, unverified domain) as
// permanent. Throttling and server errors stay retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	status := mg.GetStatusFromErr(err)
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return fmt.Errorf("%w: mailgun %d: %v", ErrPermanent, status, err)
	}
	return err
}

var _ Sender = (*Mailgun)(nil)
