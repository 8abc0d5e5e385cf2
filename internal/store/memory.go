package store

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process UserStore with the same uniqueness semantics as
// the Mongo implementation. It exists for tests and local development.
type Memory struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*User // keyed by LocalID
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]*User)}
}

func (m *Memory) FindByRemoteID(ctx context.Context, remoteID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.RemoteID != "" && u.RemoteID == remoteID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListLocalOnly(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []User
	for _, u := range m.users {
		if u.RemoteID == "" {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = strings.ToLower(u.Email)
	if m.violatesUnique(u.RemoteID, u.Email, "") {
		return ErrDuplicateKey
	}

	m.nextID++
	now := time.Now().UTC()
	u.LocalID = "mem-" + strconv.Itoa(m.nextID)
	u.CreatedAt = now
	u.UpdatedAt = now

	cp := *u
	m.users[u.LocalID] = &cp
	return nil
}

func (m *Memory) Update(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.users[u.LocalID]
	if !ok {
		return ErrNotFound
	}

	u.Email = strings.ToLower(u.Email)
	if m.violatesUnique(u.RemoteID, u.Email, u.LocalID) {
		return ErrDuplicateKey
	}

	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	if u.RemoteID == "" {
		u.RemoteID = cur.RemoteID
	}

	cp := *u
	m.users[u.LocalID] = &cp
	return nil
}

func (m *Memory) SetInactive(ctx context.Context, remoteID string, inactive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.RemoteID != "" && u.RemoteID == remoteID {
			u.Inactive = inactive
			u.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Claim(ctx context.Context, localID, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[localID]
	if !ok || u.RemoteID != "" {
		return ErrNotFound
	}
	if m.violatesUnique(remoteID, "", localID) {
		return ErrDuplicateKey
	}

	u.RemoteID = remoteID
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// violatesUnique reports whether another record already holds remoteID or
// email. Caller must hold the lock.
func (m *Memory) violatesUnique(remoteID, email, excludeLocalID string) bool {
	for id, u := range m.users {
		if id == excludeLocalID {
			continue
		}
		if remoteID != "" && u.RemoteID == remoteID {
			return true
		}
		if email != "" && u.Email == email {
			return true
		}
	}
	return false
}

// All returns a snapshot of every record, for tests.
func (m *Memory) All() []User {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out
}
