package auth

import (
	"context"
	"sync"

	"github.com/desertthunder/melon/internal/models"
)

// Store persists the single process-wide credential.
type Store interface {
	// Get returns the stored credential, or nil when none is stored.
	Get(ctx context.Context) (*models.Credential, error)
	Set(ctx context.Context, cred models.Credential) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential in memory.
type MemoryStore struct {
	mu   sync.Mutex
	cred *models.Credential
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Set(_ context.Context, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = &cred
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	return nil
}
