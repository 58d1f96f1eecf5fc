package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"reseller/internal/core"
	"reseller/internal/ledger"
)

// Store keeps expense records in process memory.
type Store struct {
	mu    sync.Mutex
	items map[string]core.ExpenseRecord
	now   func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock uses now for record timestamps.
func NewWithClock(now func() time.Time) *Store {
	return &Store{items: make(map[string]core.ExpenseRecord), now: now}
}

// NewFromFile seeds the store from a JSON array of records. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.ExpenseRecord
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for _, r := range seed {
		if _, err := s.InsertExpense(context.Background(), r); err != nil {
			return nil, fmt.Errorf("seed record %q: %w", r.Description, err)
		}
	}
	return s, nil
}

func (s *Store) ListExpenses(_ context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ExpenseRecord, 0)
	for _, r := range s.items {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	core.SortByDateDesc(out)
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := r.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.items[r.ID] = r
	return r, nil
}

func (s *Store) UpdateExpense(_ context.Context, ownerID, id string, patch core.ExpensePatch) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok || r.OwnerID != ownerID {
		return core.ExpenseRecord{}, ledger.ErrNotFound
	}
	r = patch.Apply(r)
	if err := r.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	r.UpdatedAt = s.now().UTC()
	s.items[id] = r
	return r, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok || r.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return core.ExpenseRecord{}, ledger.ErrNotFound
	}
	return r, nil
}

// ListOwners returns every owner with at least one record, sorted.
func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, r := range s.items {
		if _, ok := seen[r.OwnerID]; ok {
			continue
		}
		seen[r.OwnerID] = struct{}{}
		out = append(out, r.OwnerID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error { return nil }
