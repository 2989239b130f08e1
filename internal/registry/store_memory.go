package registry

import (
	"context"
	"sort"
	"sync"

	"eqboard/pkg/platform/sentinel"
)

// InMemoryStore keeps registry entries in maps. Used in tests and local runs.
type InMemoryStore struct {
	mu           sync.RWMutex
	byEquation   map[string]Equation
	bySubmission map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byEquation:   make(map[string]Equation),
		bySubmission: make(map[string]string),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, eq Equation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEquation[eq.EquationID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.bySubmission[eq.SubmissionID]; exists {
		return sentinel.ErrConflict
	}
	s.byEquation[eq.EquationID] = eq
	s.bySubmission[eq.SubmissionID] = eq.EquationID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, equationID string) (Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eq, ok := s.byEquation[equationID]
	if !ok {
		return Equation{}, sentinel.ErrNotFound
	}
	return eq, nil
}

func (s *InMemoryStore) GetBySubmission(_ context.Context, submissionID string) (Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	equationID, ok := s.bySubmission[submissionID]
	if !ok {
		return Equation{}, sentinel.ErrNotFound
	}
	return s.byEquation[equationID], nil
}

func (s *InMemoryStore) Delete(_ context.Context, equationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, ok := s.byEquation[equationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEquation, equationID)
	delete(s.bySubmission, eq.SubmissionID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Equation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ranked(), nil
}

func (s *InMemoryStore) Rerank(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, eq := range s.ranked() {
		eq.Rank = i + 1
		s.byEquation[eq.EquationID] = eq
	}
	return nil
}

func (s *InMemoryStore) SetCertificateHash(_ context.Context, equationID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, ok := s.byEquation[equationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	eq.CertificateHash = hash
	s.byEquation[equationID] = eq
	return nil
}

func (s *InMemoryStore) ranked() []Equation {
	out := make([]Equation, 0, len(s.byEquation))
	for _, eq := range s.byEquation {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlendedScore != out[j].BlendedScore {
			return out[i].BlendedScore > out[j].BlendedScore
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].EquationID < out[j].EquationID
	})
	return out
}
