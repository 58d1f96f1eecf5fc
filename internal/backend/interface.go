// Package backend builds the storage and messaging dependencies selected by
// configuration.
package backend

import (
	"context"

	"reseller/internal/amqp"
	"reseller/internal/core"
	"reseller/internal/ledger"
)

// Store is the persistence surface shared by every backend.
type Store interface {
	ledger.Store
	GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
	ListOwners(ctx context.Context) ([]string, error)
	Close() error
}

// BackendType names a storage implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	BoltBackend     BackendType = "bolt"
)

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend, BoltBackend:
		return true
	}
	return false
}

func (t BackendType) String() string {
	return string(t)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the created dependencies and their cleanup.
type BackendResult struct {
	Store Store
	// AMQP is nil when no broker is configured or it was unreachable and
	// not required.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the change publisher, or nil without a broker.
func (r *BackendResult) Publisher() ledger.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath   string
	PostgresDSN    string
	BoltDBPath     string
	MemorySeedFile string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireAMQP turns an unreachable broker into an error instead of a
	// warning.
	RequireAMQP bool
}
