package submission

import (
	"context"
	"sort"
	"sync"

	"eqboard/pkg/platform/sentinel"
)

// InMemoryStore keeps submissions in a map. Used in tests and local runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]Submission
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{submissions: make(map[string]Submission)}
}

func (s *InMemoryStore) Create(_ context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.submissions[sub.ID]; exists {
		return sentinel.ErrConflict
	}
	s.submissions[sub.ID] = sub
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return Submission{}, sentinel.ErrNotFound
	}
	return sub, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, sub Submission, expected Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.submissions[sub.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != expected {
		return sentinel.ErrConflict
	}
	s.submissions[sub.ID] = sub
	return nil
}
