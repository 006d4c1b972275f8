package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const storeFileName = "identity_store.json"

// FileStore implements Store using a single JSON file. All mutating
// operations are serialized behind one mutex and persisted with an atomic
// write-then-rename, so a crash never leaves a half-written file behind.
type FileStore struct {
	dataDir    string
	identities map[string]*Identity         // Key: email
	tokens     map[string]*VerificationToken // Key: opaque token value
	mutex      sync.RWMutex
}

// storeData represents the structure of data stored in the JSON file
type storeData struct {
	Identities []*Identity          `json:"identities"`
	Tokens     []*VerificationToken `json:"tokens"`
}

// NewFileStore creates a new file-based store rooted at dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		dataDir:    dataDir,
		identities: make(map[string]*Identity),
		tokens:     make(map[string]*VerificationToken),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return s, nil
}

// CreateIdentity inserts a new identity, rejecting duplicate emails.
func (s *FileStore) CreateIdentity(ctx context.Context, identity Identity) (*Identity, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.identities[identity.Email]; exists {
		return nil, ErrIdentityExists
	}

	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	s.identities[identity.Email] = &identity

	if err := s.save(); err != nil {
		delete(s.identities, identity.Email)
		return nil, fmt.Errorf("failed to save: %w", err)
	}

	identityCopy := identity
	return &identityCopy, nil
}

// GetIdentity retrieves an identity by email.
func (s *FileStore) GetIdentity(ctx context.Context, email string) (*Identity, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	identity, exists := s.identities[email]
	if !exists {
		return nil, ErrIdentityNotFound
	}

	identityCopy := *identity
	return &identityCopy, nil
}

// MarkIdentityVerified flips the identity's verified flag to true.
func (s *FileStore) MarkIdentityVerified(ctx context.Context, email string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	identity, exists := s.identities[email]
	if !exists {
		return ErrIdentityNotFound
	}

	if identity.Verified {
		return nil
	}

	identity.Verified = true
	return s.save()
}

// SetLastAuthenticatedAt stamps the identity's last successful login time.
func (s *FileStore) SetLastAuthenticatedAt(ctx context.Context, email string, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	identity, exists := s.identities[email]
	if !exists {
		return ErrIdentityNotFound
	}

	identity.LastAuthenticatedAt = &at
	return s.save()
}

// CreateToken persists a verification token keyed by its opaque value.
func (s *FileStore) CreateToken(ctx context.Context, token VerificationToken) (*VerificationToken, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tokens[token.Token] = &token

	if err := s.save(); err != nil {
		delete(s.tokens, token.Token)
		return nil, fmt.Errorf("failed to save: %w", err)
	}

	tokenCopy := token
	return &tokenCopy, nil
}

// GetToken retrieves a verification token by its opaque value.
func (s *FileStore) GetToken(ctx context.Context, tokenValue string) (*VerificationToken, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	token, exists := s.tokens[tokenValue]
	if !exists {
		return nil, ErrTokenNotFound
	}

	tokenCopy := *token
	return &tokenCopy, nil
}

// MarkTokenConsumed flips the token's consumed state exactly once.
func (s *FileStore) MarkTokenConsumed(ctx context.Context, tokenValue string) error {
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

	if err := s.save(); err != nil {
		token.ConsumedAt = nil
		return fmt.Errorf("failed to save: %w", err)
	}

	return nil
}

// CleanupExpiredTokens prunes tokens that are both expired and consumed.
func (s *FileStore) CleanupExpiredTokens(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now().UTC()
	for value, token := range s.tokens {
		if token.ConsumedAt != nil && now.After(token.ExpiresAt) {
			delete(s.tokens, value)
		}
	}

	return s.save()
}

// load reads identities and tokens from the data file
func (s *FileStore) load() error {
	filePath := filepath.Join(s.dataDir, storeFileName)

	// If file doesn't exist, start with empty maps
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var sd storeData
	if err := json.Unmarshal(data, &sd); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	s.identities = make(map[string]*Identity)
	for _, identity := range sd.Identities {
		s.identities[identity.Email] = identity
	}

	s.tokens = make(map[string]*VerificationToken)
	for _, token := range sd.Tokens {
		s.tokens[token.Token] = token
	}

	return nil
}

// save writes identities and tokens to the data file atomically
func (s *FileStore) save() error {
	identities := make([]*Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		identities = append(identities, identity)
	}

	tokens := make([]*VerificationToken, 0, len(s.tokens))
	for _, token := range s.tokens {
		tokens = append(tokens, token)
	}

	data := storeData{
		Identities: identities,
		Tokens:     tokens,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(s.dataDir, storeFileName+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(s.dataDir, storeFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
