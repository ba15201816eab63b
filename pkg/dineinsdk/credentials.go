package dineinsdk

import (
	"context"
	"errors"
	"sync"
)

// ErrNoCredentials is returned by a CredentialStore that holds nothing.
var ErrNoCredentials = errors.New("no credentials stored")

// Credentials is the persisted form of a session.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	UserID       int64
	Username     string
}

// CredentialStore persists the session between process runs. Implementations
// must be safe for concurrent use.
type CredentialStore interface {
	// LoadCredentials returns ErrNoCredentials when nothing is stored.
	LoadCredentials(ctx context.Context) (Credentials, error)
	SaveCredentials(ctx context.Context, creds Credentials) error
	ClearCredentials(ctx context.Context) error
}

// MemoryCredentialStore keeps credentials in process memory only.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds *Credentials
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (m *MemoryCredentialStore) LoadCredentials(_ context.Context) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		return Credentials{}, ErrNoCredentials
	}
	return *m.creds, nil
}

func (m *MemoryCredentialStore) SaveCredentials(_ context.Context, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = &creds
	return nil
}

func (m *MemoryCredentialStore) ClearCredentials(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = nil
	return nil
}
