package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fleetonboard/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and local
// development with the same query semantics as the Postgres store.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	email  map[string]string // email -> user ID
	grants map[string]map[string]struct{}
	apps   map[string]domain.Application
	order  []string // application insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.User),
		email:  make(map[string]string),
		grants: make(map[string]map[string]struct{}),
		apps:   make(map[string]domain.Application),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.email[u.Email]; ok && existing != u.ID {
		return fmt.Errorf("email already taken")
	}
	if old, ok := m.users[u.ID]; ok && old.Email != u.Email {
		delete(m.email, old.Email)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *MemoryStore) GrantRole(userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grants[userID] == nil {
		m.grants[userID] = make(map[string]struct{})
	}
	m.grants[userID][role] = struct{}{}
	return nil
}

func (m *MemoryStore) HasRole(userID, role string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.grants[userID][role]
	return ok, nil
}

func (m *MemoryStore) InsertApplication(app domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.apps[app.ID]; exists {
		return fmt.Errorf("application %s already exists", app.ID)
	}
	if app.Payload == nil {
		app.Payload = map[string]any{}
	}
	m.apps[app.ID] = app
	m.order = append(m.order, app.ID)
	return nil
}

func (m *MemoryStore) GetApplication(id string) (domain.Application, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.apps[id]
	return app, ok, nil
}

func (m *MemoryStore) ListApplications(q ApplicationQuery) ([]domain.Application, error) {
	m.mu.RLock()
	res := make([]domain.Application, 0, len(m.order))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, id := range m.order {
		app, ok := m.apps[id]
		if !ok {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(app.ApplicantName), search) &&
			!strings.Contains(strings.ToLower(app.Email), search) {
			continue
		}
		if q.Status != "" && app.Status != q.Status {
			continue
		}
		res = append(res, app)
	}
	m.mu.RUnlock()

	sort.SliceStable(res, func(i, j int) bool {
		var less bool
		switch q.Sort {
		case SortApplicantName:
			less = res[i].ApplicantName < res[j].ApplicantName
		case SortEmail:
			less = res[i].Email < res[j].Email
		default:
			less = res[i].SubmittedAt.Before(res[j].SubmittedAt)
		}
		if q.Desc {
			return !less && !equalSortKey(res[i], res[j], q.Sort)
		}
		return less
	})
	return res, nil
}

func equalSortKey(a, b domain.Application, field ApplicationSortField) bool {
	switch field {
	case SortApplicantName:
		return a.ApplicantName == b.ApplicantName
	case SortEmail:
		return a.Email == b.Email
	default:
		return a.SubmittedAt.Equal(b.SubmittedAt)
	}
}

func (m *MemoryStore) ListApplicationsByUser(userID string) ([]domain.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Application, 0)
	for _, id := range m.order {
		if app, ok := m.apps[id]; ok && app.UserID == userID {
			res = append(res, app)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].SubmittedAt.After(res[j].SubmittedAt)
	})
	return res, nil
}

func (m *MemoryStore) UpdateApplicationStatusBulk(ids []string, status domain.ApplicationStatus) (int64, error) {
	if !domain.ValidStatus(status) {
		return 0, fmt.Errorf("invalid status %q", status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var touched int64
	for _, id := range ids {
		app, ok := m.apps[id]
		if !ok {
			continue
		}
		app.Status = status
		app.UpdatedAt = time.Now().UTC()
		m.apps[id] = app
		touched++
	}
	return touched, nil
}
