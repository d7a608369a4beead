package pricing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]Plan
}

func NewMemoryStore(plans ...Plan) *MemoryStore {
	s := &MemoryStore{plans: make(map[uuid.UUID]Plan)}
	for _, p := range plans {
		s.plans[p.ID] = p
	}
	return s
}

func (s *MemoryStore) Insert(_ context.Context, p Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpdateDraft(_ context.Context, p Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.plans[p.ID]
	if !ok {
		return ErrPlanNotFound
	}
	if cur.Published {
		return ErrPlanPublished
	}
	p.Published = false
	p.CreatedAt = cur.CreatedAt
	s.plans[p.ID] = p
	return nil
}

func (s *MemoryStore) Publish(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return ErrPlanNotFound
	}
	if p.Published {
		return ErrPlanPublished
	}
	p.Published = true
	s.plans[id] = p
	return nil
}

func (s *MemoryStore) List(_ context.Context, publishedOnly bool) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var plans []Plan
	for _, p := range s.plans {
		if publishedOnly && !p.Published {
			continue
		}
		plans = append(plans, p)
	}
	sortNewestFirst(plans)
	return plans, nil
}

func (s *MemoryStore) Active(_ context.Context, at time.Time, scope Scope) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var plans []Plan
	for _, p := range s.plans {
		if p.Published && p.EffectiveAt(at) && scope.matches(p) {
			plans = append(plans, p)
		}
	}
	sortNewestFirst(plans)
	return plans, nil
}

// Ties on EffectiveFrom fall back to id so results are deterministic.
func sortNewestFirst(plans []Plan) {
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].EffectiveFrom.Equal(plans[j].EffectiveFrom) {
			return plans[i].EffectiveFrom.After(plans[j].EffectiveFrom)
		}
		return plans[i].ID.String() < plans[j].ID.String()
	})
}
