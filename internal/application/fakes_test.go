package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
)

type fakeNotifier struct {
	mu         sync.Mutex
	verifyCode map[string]string
	resetCode  map[string]string
	logins     int
	sendErr    error
	loginErr   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{verifyCode: map[string]string{}, resetCode: map[string]string{}}
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, u *entity.User, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.verifyCode[u.Email] = code
	return nil
}

func (f *fakeNotifier) SendResetCode(_ context.Context, u *entity.User, code string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.resetCode[u.Email] = code
	return nil
}

func (f *fakeNotifier) NotifyLogin(_ context.Context, _ *entity.User, _ LoginMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginErr
}

type fakeIndex struct {
	indexed map[int64]entity.Task
	removed []int64
	err     error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{indexed: map[int64]entity.Task{}} }

func (f *fakeIndex) Index(_ context.Context, t entity.Task) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[t.ID] = t
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	delete(f.indexed, id)
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, ownerID int64, query string, _ int) ([]entity.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []entity.Task
	for _, t := range f.indexed {
		if t.UserID == ownerID && strings.Contains(t.Title, query) {
			out = append(out, t)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")
