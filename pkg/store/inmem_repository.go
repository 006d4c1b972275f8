package store

import (
	"context"
	"sync"
	"time"
)

// InMemStore implements Store using in-memory maps. Intended for tests and
// demos; nothing survives a restart.
type InMemStore struct {
	identities map[string]*Identity
	tokens     map[string]*VerificationToken
	mutex      sync.RWMutex
}

// NewInMemStore creates a new in-memory store.
func NewInMemStore() *InMemStore {
	return &InMemStore{
		identities: make(map[string]*Identity),
		tokens:     make(map[string]*VerificationToken),
	}
}

func (s *InMemStore) CreateIdentity(ctx context.Context, identity Identity) (*Identity, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.identities[identity.Email]; exists {
		return nil, ErrIdentityExists
	}

	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	s.identities[identity.Email] = &identity

	identityCopy := identity
	return &identityCopy, nil
}

func (s *InMemStore) GetIdentity(ctx context.Context, email string) (*Identity, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	identity, exists := s.identities[email]
	if !exists {
		return nil, ErrIdentityNotFound
	}

	identityCopy := *identity
	return &identityCopy, nil
}

func (s *InMemStore) MarkIdentityVerified(ctx context.Context, email string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	identity, exists := s.identities[email]
	if !exists {
		return ErrIdentityNotFound
	}

	identity.Verified = true
	return nil
}

func (s *InMemStore) SetLastAuthenticatedAt(ctx context.Context, email string, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	identity, exists := s.identities[email]
	if !exists {
		return ErrIdentityNotFound
	}

	identity.LastAuthenticatedAt = &at
	return nil
}

func (s *InMemStore) CreateToken(ctx context.Context, token VerificationToken) (*VerificationToken, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tokens[token.Token] = &token

	tokenCopy := token
	return &tokenCopy, nil
}

func (s *InMemStore) GetToken(ctx context.Context, tokenValue string) (*VerificationToken, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	token, exists := s.tokens[tokenValue]
	if !exists {
		return nil, ErrTokenNotFound
	}

	tokenCopy := *token
	return &tokenCopy, nil
}

func (s *InMemStore) MarkTokenConsumed(ctx context.Context, tokenValue string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	token, exists := s.tokens[tokenValue]
	if !exists {
		return ErrTokenNotFound
	}

	if token.ConsumedAt != nil {
		return ErrTokenAlreadyConsumed
	}

	now := time.Now().UTC()
	token.ConsumedAt = &now
	return nil
}

func (s *InMemStore) CleanupExpiredTokens(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now().UTC()
	for value, token := range s.tokens {
		if token.ConsumedAt != nil && now.After(token.ExpiresAt) {
			delete(s.tokens, value)
		}
	}

	return nil
}
