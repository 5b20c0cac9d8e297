// Package store owns the durable representation of accounts and transactions.
// It is the sole writer: a posting (transaction row plus balance adjustment)
// either commits as a whole or leaves no trace, and both legs of a transfer
// commit inside one database transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/itsyourap/atmledger/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// StorageError wraps a driver-level failure so raw database errors never
// cross the store boundary. It matches domain.ErrStorage under errors.Is
// while keeping the underlying cause unwrappable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string        { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) Is(target error) bool { return target == domain.ErrStorage }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is an explicitly constructed handle over the ledger database,
// injected into the service at startup and closed on shutdown.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and verifies the connection.
// The database may still be starting; Open retries the ping for a while
// before giving up.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storageErr("Open", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	for attempt := 0; ; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return &Store{db: db}, nil
		}
		if attempt >= 29 {
			break
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			db.Close()
			return nil, storageErr("Open", ctx.Err())
		}
	}

	db.Close()
	return nil, storageErr("Open: gave up waiting for database", err)
}

// NewStore wraps an existing connection pool. Tests use this to share the
// pool created by the harness.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storageErr("Close", err)
	}
	return nil
}
