package certificate

import (
	"context"
	"sort"
	"sync"

	"eqboard/pkg/platform/sentinel"
)

// InMemoryStore keeps certificates in a map. Used in tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	certs map[string]Certificate
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{certs: make(map[string]Certificate)}
}

func (s *InMemoryStore) Create(_ context.Context, cert Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.certs[cert.EquationID]; exists {
		return sentinel.ErrConflict
	}
	s.certs[cert.EquationID] = cert
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, equationID string) (Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[equationID]
	if !ok {
		return Certificate{}, sentinel.ErrNotFound
	}
	return cert, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(Certificate) bool { return true }), nil
}

func (s *InMemoryStore) ListUnmined(_ context.Context) ([]Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(c Certificate) bool { return c.PublishState != StateMined }), nil
}

func (s *InMemoryStore) Update(_ context.Context, cert Certificate, expected PublishState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.certs[cert.EquationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.PublishState != expected {
		return sentinel.ErrConflict
	}
	s.certs[cert.EquationID] = cert
	return nil
}

func (s *InMemoryStore) sorted(keep func(Certificate) bool) []Certificate {
	out := make([]Certificate, 0, len(s.certs))
	for _, cert := range s.certs {
		if keep(cert) {
			out = append(out, cert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EquationID < out[j].EquationID })
	return out
}
