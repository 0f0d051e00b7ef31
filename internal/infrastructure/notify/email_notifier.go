package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/internal/domain/entity"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/mailer"
	tpl "github.com/oksasatya/taskboard-api/pkg/mailer/templates"
)

// JobPublisher puts an email job on the queue consumed by cmd/email_worker.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// DefaultPublishTimeout caps how long a login waits on the queue.
const DefaultPublishTimeout = 2 * time.Second

// EmailNotifier sends one-time codes directly through Sender and queues
// login notices for the email worker.
type EmailNotifier struct {
	Sender    mailer.Sender
	Publisher JobPublisher
	Brand     tpl.Brand
	Logger    *logrus.Logger

	// PublishTimeout bounds NotifyLogin, which runs inside the login request.
	PublishTimeout time.Duration

	now func() time.Time
}

func NewEmailNotifier(sender mailer.Sender, pub JobPublisher, brand tpl.Brand, logger *logrus.Logger) *EmailNotifier {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &EmailNotifier{
		Sender:         sender,
		Publisher:      pub,
		Brand:          brand,
		Logger:         logger,
		PublishTimeout: DefaultPublishTimeout,
		now:            time.Now,
	}
}

func (n *EmailNotifier) send(ctx context.Context, name string, u *entity.User, opts ...tpl.Option) error {
	data := tpl.NewEmailData(n.Brand, u.FullName, u.Email, opts...)
	subject, text, html, err := tpl.Render(name, data)
	if err != nil {
		return err
	}
	if err := n.Sender.Send(ctx, u.Email, subject, text, html); err != nil {
		return err
	}
	n.Logger.WithFields(logrus.Fields{"template": name, "user_id": u.ID}).Debug("email sent")
	return nil
}

func (n *EmailNotifier) SendVerificationCode(ctx context.Context, u *entity.User, code string) error {
	return n.send(ctx, tpl.VerifyEmail, u, tpl.WithCode(code), tpl.WithTime(n.now()))
}

func (n *EmailNotifier) SendResetCode(ctx context.Context, u *entity.User, code string, expiresAt time.Time) error {
	return n.send(ctx, tpl.ResetPassword, u, tpl.WithCode(code), tpl.WithTime(n.now()), tpl.WithExpiresAt(expiresAt))
}

// NotifyLogin queues the login notice for the email worker. The publish is
// detached from the request's cancellation and gets its own short deadline,
// so a stalled broker costs a login at most PublishTimeout.
func (n *EmailNotifier) NotifyLogin(ctx context.Context, u *entity.User, meta application.LoginMeta) error {
	if n.Publisher == nil {
		return application.ErrNoLoginQueue
	}
	data := tpl.NewEmailData(n.Brand, u.FullName, u.Email,
		tpl.WithTime(n.now()),
		tpl.WithIP(meta.IP),
		tpl.WithUserAgent(meta.UserAgent),
	)
	job := mailer.EmailJob{To: u.Email, Template: tpl.LoginNotification, Data: tpl.ToMap(data)}

	timeout := n.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return n.Publisher.PublishJSON(c, job)
}

var _ application.Notifier = (*EmailNotifier)(nil)
