package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/bounty-warden/internal/core"
)

// NormalizeHandle lowercases and trims a contributor handle.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

type memoryMappingStore struct {
	mu       sync.RWMutex
	mappings map[string]string
}

// NewMemoryMappingStore creates an in-memory account mapping store.
func NewMemoryMappingStore() core.MappingStore {
	return &memoryMappingStore{mappings: make(map[string]string)}
}

func (s *memoryMappingStore) Set(_ context.Context, handle, accountID string) error {
	h := NormalizeHandle(handle)
	if h == "" || accountID == "" {
		return fmt.Errorf("%w: handle and account id are required", core.ErrValidation)
	}
	s.mu.Lock()
	s.mappings[h] = accountID
	s.mu.Unlock()
	return nil
}

func (s *memoryMappingStore) Get(_ context.Context, handle string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.mappings[NormalizeHandle(handle)]
	return id, ok, nil
}

func (s *memoryMappingStore) List(_ context.Context) ([]core.AccountMapping, error) {
	s.mu.RLock()
	out := make([]core.AccountMapping, 0, len(s.mappings))
	for h, id := range s.mappings {
		out = append(out, core.AccountMapping{Handle: h, AccountID: id})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (s *memoryMappingStore) Delete(_ context.Context, handle string) error {
	h := NormalizeHandle(handle)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[h]; !ok {
		return fmt.Errorf("%w: no mapping for %s", core.ErrNotFound, h)
	}
	delete(s.mappings, h)
	return nil
}

type postgresMappingStore struct {
	db *sqlx.DB
}

// NewPostgresMappingStore creates a mapping store backed by the account_mappings table.
func NewPostgresMappingStore(db *sqlx.DB) core.MappingStore {
	return &postgresMappingStore{db: db}
}

func (s *postgresMappingStore) Set(ctx context.Context, handle, accountID string) error {
	h := NormalizeHandle(handle)
	if h == "" || accountID == "" {
		return fmt.Errorf("%w: handle and account id are required", core.ErrValidation)
	}
	query := `
		INSERT INTO account_mappings (handle, account_id) VALUES ($1, $2)
		ON CONFLICT (handle) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, query, h, accountID); err != nil {
		return fmt.Errorf("failed to save mapping for %s: %w", h, err)
	}
	return nil
}

func (s *postgresMappingStore) Get(ctx context.Context, handle string) (string, bool, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `SELECT account_id FROM account_mappings WHERE handle = $1`, NormalizeHandle(handle))
	if err != nil {
		return "", false, fmt.Errorf("failed to load mapping: %w", err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

func (s *postgresMappingStore) List(ctx context.Context) ([]core.AccountMapping, error) {
	var rows []struct {
		Handle    string `db:"handle"`
		AccountID string `db:"account_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT handle, account_id FROM account_mappings ORDER BY handle`); err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	out := make([]core.AccountMapping, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.AccountMapping{Handle: r.Handle, AccountID: r.AccountID})
	}
	return out, nil
}

func (s *postgresMappingStore) Delete(ctx context.Context, handle string) error {
	h := NormalizeHandle(handle)
	res, err := s.db.ExecContext(ctx, `DELETE FROM account_mappings WHERE handle = $1`, h)
	if err != nil {
		return fmt.Errorf("failed to delete mapping for %s: %w", h, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: no mapping for %s", core.ErrNotFound, h)
	}
	return nil
}

// SeedMappings stores every mapping in ms, skipping entries with an empty handle or id.
func SeedMappings(ctx context.Context, ms core.MappingStore, mappings []core.AccountMapping) (int, error) {
	n := 0
	for _, m := range mappings {
		if NormalizeHandle(m.Handle) == "" || m.AccountID == "" {
			continue
		}
		if err := ms.Set(ctx, m.Handle, m.AccountID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
