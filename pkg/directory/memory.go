package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Directory for tests and single-node development.
type Memory struct {
	mu    sync.Mutex
	users map[string]*User
	orgs  map[string]*Organization
	links []*Link

	// Commits counts Commit calls, letting tests assert reconciliation
	// idempotence.
	Commits int
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]*User),
		orgs:  make(map[string]*Organization),
	}
}

// AddOrg registers an organization and returns it.
func (m *Memory) AddOrg(name string) *Organization {
	m.mu.Lock()
	defer m.mu.Unlock()

	org := &Organization{ID: uuid.NewString(), Name: name}
	m.orgs[org.ID] = org
	return org
}

// AddUser registers an existing user, assigning an id when unset.
func (m *Memory) AddUser(u *User) *User {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.Created.IsZero() {
		cp.Created = time.Now()
	}
	m.users[cp.ID] = &cp

	out := cp
	return &out
}

// FindUser implements Directory.
func (m *Memory) FindUser(_ context.Context, name, authType string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Name == name && u.AuthType == authType {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// FindUserInOrg implements Directory.
func (m *Memory) FindUserInOrg(_ context.Context, orgID, name string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.OrgID == orgID && u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateUser implements Directory.
func (m *Memory) CreateUser(_ context.Context, orgID string, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *u
	cp.ID = uuid.NewString()
	cp.OrgID = orgID
	if cp.Type == "" {
		cp.Type = UserTypeClient
	}
	cp.Created = time.Now()
	m.users[cp.ID] = &cp

	out := cp
	return &out, nil
}

// Commit implements Directory.
func (m *Memory) Commit(_ context.Context, u *User, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for _, field := range fields {
		switch field {
		case "email":
			stored.Email = u.Email
		case "groups":
			stored.Groups = append([]string(nil), u.Groups...)
		case "auth_type":
			stored.AuthType = u.AuthType
		case "yubico_id":
			stored.YubicoID = u.YubicoID
		}
	}
	m.Commits += len(fields)
	return nil
}

// FindOrgByID implements Directory.
func (m *Memory) FindOrgByID(_ context.Context, id string) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	org, ok := m.orgs[id]
	if !ok {
		return nil, nil
	}
	cp := *org
	return &cp, nil
}

// FindOrgByName implements Directory.
func (m *Memory) FindOrgByName(_ context.Context, name string) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, org := range m.orgs {
		if org.Name == name {
			cp := *org
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateOneTimeLink implements Directory.
func (m *Memory) CreateOneTimeLink(_ context.Context, u *User) (*Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link := &Link{
		ID:      uuid.NewString(),
		UserID:  u.ID,
		OneTime: true,
	}
	link.ViewURL = "/key/" + link.ID
	m.links = append(m.links, link)

	cp := *link
	return &cp, nil
}

// User returns the stored user by id, for test assertions.
func (m *Memory) User(id string) *User {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}
