// Package security keeps secrets out of tgclaw's output: a credential
// store, a redactor fed by it, a slog handler applying the redactor, and
// the request guards used by the HTTP gateway.
package security

import (
	"maps"
	"slices"
	"sync"
)

// CredentialStore holds named secrets such as the bot token and the
// gateway password. It is safe for concurrent use.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{creds: make(map[string]string)}
}

// Set stores or replaces a credential. Empty values are ignored.
func (s *CredentialStore) Set(name, value string) {
	if value == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[name] = value
}

// Get returns a credential by name.
func (s *CredentialStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.creds[name]
	return v, ok
}

// Delete removes a credential.
func (s *CredentialStore) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, name)
}

// Names returns the stored names, sorted.
func (s *CredentialStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.creds))
}

// Values returns the stored secrets, longest first so that a secret
// containing another is replaced whole.
func (s *CredentialStore) Values() []string {
	s.mu.RLock()
	values := slices.Collect(maps.Values(s.creds))
	s.mu.RUnlock()

	slices.SortFunc(values, func(a, b string) int { return len(b) - len(a) })
	return values
}

// Len returns the number of stored credentials.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}
