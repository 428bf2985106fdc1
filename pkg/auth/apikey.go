package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	KeyPrefix       = "tg_"
	KeyRandomLength = 32 // bytes of random data
)

var (
	ErrKeyNotFound = errors.New("api key not found")
	ErrKeyRevoked  = errors.New("api key has been revoked")
)

// APIKeyRecord is the stored metadata for an issued key. The key itself is
// only returned at issue time; the record keeps a bcrypt hash.
type APIKeyRecord struct {
	ID        string
	Name      string
	Role      string
	hash      []byte
	CreatedAt time.Time
	Revoked   bool
}

// APIKeyStore issues and verifies API keys in memory
type APIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyRecord
}

// NewAPIKeyStore creates an empty key store
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{keys: make(map[string]*APIKeyRecord)}
}

// IssueKey generates a new key for the given name and role and returns the
// plaintext key. The plaintext is not recoverable later.
func (s *APIKeyStore) IssueKey(name, role string) (string, *APIKeyRecord, error) {
	if !validRoles[role] {
		return "", nil, ErrInvalidRole
	}

	randomBytes := make([]byte, KeyRandomLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, err
	}
	keyString := KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(keyString), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	record := &APIKeyRecord{
		ID:        generateID(),
		Name:      name,
		Role:      role,
		hash:      hash,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.keys[record.ID] = record
	s.mu.Unlock()

	return keyString, record, nil
}

// VerifyKey checks a presented key against all active records and returns
// the matching record's claims-equivalent role.
func (s *APIKeyStore) VerifyKey(keyString string) (*APIKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.keys {
		if record.Revoked {
			continue
		}
		if bcrypt.CompareHashAndPassword(record.hash, []byte(keyString)) == nil {
			return record, nil
		}
	}
	return nil, ErrKeyNotFound
}

// RevokeKey marks a key as revoked by record ID
func (s *APIKeyStore) RevokeKey(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	if record.Revoked {
		return ErrKeyRevoked
	}
	record.Revoked = true
	return nil
}

// ListKeys returns the metadata of all issued keys
func (s *APIKeyStore) ListKeys() []*APIKeyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*APIKeyRecord, 0, len(s.keys))
	for _, record := range s.keys {
		out = append(out, record)
	}
	return out
}

// generateID generates a unique ID for key metadata
func generateID() string {
	randomBytes := make([]byte, 16)
	rand.Read(randomBytes)
	return base64.RawURLEncoding.EncodeToString(randomBytes)
}
