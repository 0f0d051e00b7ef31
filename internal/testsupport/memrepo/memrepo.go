// Package memrepo holds in-memory implementations of the domain
// repositories for tests that run without Postgres. The predicates mirror
// the SQL in infrastructure/postgres; the integration tests there pin the
// real queries.
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
	repo "github.com/oksasatya/taskboard-api/internal/domain/repository"
)

// Users is a map-backed repo.UserRepository. Callers get copies, never the
// stored value.
type Users struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]entity.User
}

func NewUsers() *Users { return &Users{byID: map[int64]entity.User{}} }

// Count reports how many users are stored.
func (m *Users) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Users) findLocked(email string) (entity.User, bool) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, true
		}
	}
	return entity.User{}, false
}

func (m *Users) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findLocked(u.Email); ok {
		return repo.ErrDuplicateEmail
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	return nil
}

func (m *Users) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *Users) GetByID(_ context.Context, id int64) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (m *Users) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.findLocked(email)
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (m *Users) MarkVerified(_ context.Context, email, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.findLocked(email)
	if !ok || u.VerificationToken == nil || *u.VerificationToken != tokenHash {
		return repo.ErrNotFound
	}
	u.IsVerified = true
	u.VerificationToken = nil
	m.byID[u.ID] = u
	return nil
}

func (m *Users) SetResetToken(_ context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.ResetToken, u.ResetTokenExpiresAt = &tokenHash, &expiresAt
	m.byID[id] = u
	return nil
}

func (m *Users) ClearResetToken(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.ResetToken, u.ResetTokenExpiresAt = nil, nil
	m.byID[id] = u
	return nil
}

func (m *Users) GetByResetToken(_ context.Context, email, tokenHash string, now time.Time) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.findLocked(email)
	if !ok || u.ResetToken == nil || *u.ResetToken != tokenHash ||
		u.ResetTokenExpiresAt == nil || !u.ResetTokenExpiresAt.After(now) {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (m *Users) ResetPassword(_ context.Context, id int64, tokenHash, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.ResetToken == nil || *u.ResetToken != tokenHash {
		return repo.ErrNotFound
	}
	u.Password, u.ResetToken, u.ResetTokenExpiresAt = passwordHash, nil, nil
	m.byID[id] = u
	return nil
}

// Tasks is a map-backed repo.TaskRepository. Each Create advances a fake
// clock by one second so newest-first ordering is deterministic.
type Tasks struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]entity.Task
	clock  time.Time
}

func NewTasks() *Tasks {
	return &Tasks{byID: map[int64]entity.Task{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Put stores t as-is, bypassing Create. It stands in for rows written
// outside the service, e.g. by the seed command.
func (m *Tasks) Put(t entity.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID > m.nextID {
		m.nextID = t.ID
	}
	m.byID[t.ID] = t
}

func (m *Tasks) Create(_ context.Context, t *entity.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	t.ID = m.nextID
	t.CreatedAt = m.clock
	t.UpdatedAt = m.clock
	m.byID[t.ID] = *t
	return nil
}

func (m *Tasks) GetByID(_ context.Context, id int64) (*entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &t, nil
}

func (m *Tasks) ListByOwner(_ context.Context, userID int64) ([]entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Task{}
	for _, t := range m.byID {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Tasks) ListAfter(_ context.Context, afterID int64, limit int) ([]entity.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Task{}
	for _, t := range m.byID {
		if t.ID > afterID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Tasks) SearchByOwner(ctx context.Context, userID int64, query string, limit int) ([]entity.Task, error) {
	all, _ := m.ListByOwner(ctx, userID)
	q := strings.ToLower(query)
	out := []entity.Task{}
	for _, t := range all {
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(desc), q) {
			out = append(out, t)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Tasks) Update(_ context.Context, t *entity.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[t.ID]; !ok {
		return repo.ErrNotFound
	}
	m.byID[t.ID] = *t
	return nil
}

func (m *Tasks) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

var (
	_ repo.UserRepository = (*Users)(nil)
	_ repo.TaskRepository = (*Tasks)(nil)
)
