package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/internal/domain/entity"
)

// captureNotifier records codes so tests can complete the email flows.
type captureNotifier struct {
	mu      sync.Mutex
	codes   map[string]string
	sendErr error
}

func newCaptureNotifier() *captureNotifier { return &captureNotifier{codes: map[string]string{}} }

func (n *captureNotifier) SendVerificationCode(_ context.Context, u *entity.User, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.codes["verify:"+u.Email] = code
	return nil
}

func (n *captureNotifier) SendResetCode(_ context.Context, u *entity.User, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.codes["reset:"+u.Email] = code
	return nil
}

func (n *captureNotifier) NotifyLogin(context.Context, *entity.User, application.LoginMeta) error {
	return nil
}

func (n *captureNotifier) code(kind, email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[kind+":"+email]
}
