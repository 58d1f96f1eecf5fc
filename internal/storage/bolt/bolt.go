// Package bolt provides a BoltDB-backed expense store.
//
// Records live in one nested bucket per owner, keyed by record ID, with JSON
// values. A second bucket maps record IDs to owners so a record can be found
// without knowing who owns it.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"reseller/internal/core"
	"reseller/internal/ledger"
)

var (
	ownersBucket = []byte("owners")
	indexBucket  = []byte("expense_owner")
)

// Store wraps a BoltDB database file.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// New opens (or creates) the database at path and ensures the top-level
// buckets exist.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(ownersBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(indexBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListExpenses(_ context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	items := []core.ExpenseRecord{}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(ownersBucket).Bucket([]byte(ownerID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var r core.ExpenseRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			items = append(items, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	core.SortByDateDesc(items)
	return items, nil
}

func (s *Store) InsertExpense(_ context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := r.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}

	now := s.now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(ownersBucket).CreateBucketIfNotExists([]byte(r.OwnerID))
		if err != nil {
			return err
		}
		if err := put(b, r); err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Put([]byte(r.ID), []byte(r.OwnerID))
	})
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("insert expense: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateExpense(_ context.Context, ownerID, id string, patch core.ExpensePatch) (core.ExpenseRecord, error) {
	var result core.ExpenseRecord

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ownersBucket).Bucket([]byte(ownerID))
		if b == nil {
			return ledger.ErrNotFound
		}
		existing, err := get(b, id)
		if err != nil {
			return err
		}

		updated := patch.Apply(existing)
		if err := updated.Validate(); err != nil {
			return err
		}
		updated.UpdatedAt = s.now().UTC()

		result = updated
		return put(b, updated)
	})
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return result, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(ownersBucket).Bucket([]byte(ownerID))
		if b == nil || b.Get([]byte(id)) == nil {
			return ledger.ErrNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Delete([]byte(id))
	})
}

// GetExpense retrieves a single record by ID regardless of owner.
func (s *Store) GetExpense(_ context.Context, id string) (core.ExpenseRecord, error) {
	var r core.ExpenseRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		owner := tx.Bucket(indexBucket).Get([]byte(id))
		if owner == nil {
			return ledger.ErrNotFound
		}
		b := tx.Bucket(ownersBucket).Bucket(owner)
		if b == nil {
			return ledger.ErrNotFound
		}
		var err error
		r, err = get(b, id)
		return err
	})
	return r, err
}

// ListOwners returns owners that have at least one record, in key order.
func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	owners := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(ownersBucket).ForEach(func(k, v []byte) error {
			// v is nil for nested buckets.
			if v != nil {
				return nil
			}
			if tx.Bucket(ownersBucket).Bucket(k).Stats().KeyN > 0 {
				owners = append(owners, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

func get(b *bolt.Bucket, id string) (core.ExpenseRecord, error) {
	var r core.ExpenseRecord
	v := b.Get([]byte(id))
	if v == nil {
		return r, ledger.ErrNotFound
	}
	if err := json.Unmarshal(v, &r); err != nil {
		return r, fmt.Errorf("decode expense %s: %w", id, err)
	}
	return r, nil
}

func put(b *bolt.Bucket, r core.ExpenseRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return b.Put([]byte(r.ID), data)
}
