package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/semanticallynull/bikeshare-backend/internal/txn"
)

type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]Entry
	balances map[uuid.UUID]decimal.Decimal
	// settling holds one lock per entry for the length of a settlement.
	settling map[uuid.UUID]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[uuid.UUID]Entry),
		balances: make(map[uuid.UUID]decimal.Decimal),
		settling: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Append is applied when the unit of work carried by ctx commits.
func (s *MemoryStore) Append(ctx context.Context, e Entry) error {
	txn.Defer(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries[e.ID] = e
		s.balances[e.RiderID] = s.balances[e.RiderID].Add(e.Total)
	})
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (s *MemoryStore) Settle(ctx context.Context, id uuid.UUID, charge func(Entry) Outcome) (Entry, error) {
	held := s.entryLock(id)
	held.Lock()
	defer held.Unlock()

	e, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if !e.Settleable() {
		return Entry{}, ErrNotSettleable
	}
	o := charge(e)

	s.mu.Lock()
	defer s.mu.Unlock()
	at := o.ProcessedAt
	e.PaymentProcessedAt = &at
	e.SettleAttempts++
	if o.Paid {
		ref := o.Reference
		e.Status = StatusPaid
		e.PaymentReference = &ref
		e.FailureReason = nil
		s.balances[e.RiderID] = s.balances[e.RiderID].Sub(e.Total)
	} else {
		reason := o.FailureReason
		e.Status = StatusFailed
		e.FailureReason = &reason
	}
	s.entries[id] = e
	return e, nil
}

func (s *MemoryStore) entryLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.settling[id]
	if !ok {
		l = &sync.Mutex{}
		s.settling[id] = l
	}
	return l
}

func (s *MemoryStore) History(_ context.Context, riderID uuid.UUID, from, to time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []Entry
	for _, e := range s.entries {
		if e.RiderID != riderID || e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *MemoryStore) Balance(_ context.Context, riderID uuid.UUID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[riderID], nil
}
