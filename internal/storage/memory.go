package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sevigo/bounty-warden/internal/core"
)

// memoryStore keeps PR records in process memory. A single mutex makes every
// operation atomic; callers only ever see clones.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*core.PRRecord
	now     func() time.Time
	last    time.Time
}

// NewMemoryStore creates an in-memory lifecycle store.
func NewMemoryStore() core.Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{
		records: make(map[string]*core.PRRecord),
		now:     now,
	}
}

// stamp returns a timestamp strictly after every timestamp handed out before.
// Must be called with s.mu held.
func (s *memoryStore) stamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

func (s *memoryStore) Create(ctx context.Context, rec *core.PRRecord) (*core.PRRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("%w: record id is required", core.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.ID]; ok && existing.Status == core.StatusCredited {
		return existing.Clone(), nil
	}
	stored := rec.Clone()
	stored.CreditClaimedAt = nil
	stored.CreatedAt = s.stamp()
	stored.UpdatedAt = stored.CreatedAt
	s.records[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (*core.PRRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: pull request %s", core.ErrNotFound, key)
	}
	return rec.Clone(), nil
}

func (s *memoryStore) Update(ctx context.Context, key string, u core.PRUpdate) (*core.PRRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	u.Apply(rec)
	rec.UpdatedAt = s.stamp()
	return rec.Clone(), nil
}

func (s *memoryStore) List(ctx context.Context) ([]*core.PRRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]*core.PRRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	s.mu.Unlock()

	sortByUpdatedDesc(out)
	return out, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%w: pull request %s", core.ErrNotFound, key)
	}
	delete(s.records, key)
	return nil
}

func (s *memoryStore) ClaimCredit(ctx context.Context, key string) (*core.PRRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: pull request %s", core.ErrNotFound, key)
	}
	if rec.Status != core.StatusPass || rec.CreditClaimedAt != nil {
		return nil, fmt.Errorf("%w: %s has status %s", core.ErrDuplicateCredit, key, rec.Status)
	}
	claimed := s.stamp()
	rec.CreditClaimedAt = &claimed
	return rec.Clone(), nil
}

func (s *memoryStore) ReleaseCredit(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.Status == core.StatusPass {
		rec.CreditClaimedAt = nil
	}
	return nil
}

func (s *memoryStore) CompleteCredit(ctx context.Context, key string, c core.CreditCompletion) (*core.PRRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: pull request %s", core.ErrNotFound, key)
	}
	if rec.Status != core.StatusPass || rec.CreditClaimedAt == nil {
		return nil, fmt.Errorf("%w: %s is no longer awaiting credit", core.ErrDuplicateCredit, key)
	}
	c.Apply(rec)
	rec.UpdatedAt = s.stamp()
	return rec.Clone(), nil
}

func sortByUpdatedDesc(recs []*core.PRRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].UpdatedAt.Equal(recs[j].UpdatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
}
