// Package storage defines the persistence boundary for expense records.
// Implementations live in the subpackages (memory, mongo, sqlite) and are
// selected by the backend factory.
package storage

import (
	"context"
	"errors"

	"splitbook/internal/core"
)

// ErrUnavailable marks a failure of the persistence backend: unreachable,
// or an operation it rejected. Callers get it wrapped with operation
// context and may retry; the store itself never does.
var ErrUnavailable = errors.New("storage unavailable")

// ErrDuplicateID marks an Insert whose id already exists. Ids are unique
// across all live records, so this is an integrity violation, not a
// backend failure.
var ErrDuplicateID = errors.New("duplicate record id")

// Store owns the collection of expense records. Every implementation must
// be safe for concurrent callers: each operation is atomic with respect to
// the others, and a snapshot returned by ListAll never contains a
// partially written record.
type Store interface {
	// Insert persists one record. The caller has already assigned the id
	// and creation time.
	Insert(ctx context.Context, rec core.ExpenseRecord) error

	// ListAll returns a snapshot of all current records, stable within
	// itself (insertion order).
	ListAll(ctx context.Context) ([]core.ExpenseRecord, error)

	// DeleteOne removes the record with the given id and reports whether
	// one was removed. A missing id is not an error.
	DeleteOne(ctx context.Context, id string) (bool, error)

	// DeleteMany removes every record whose id is in ids and returns the
	// number removed. Unknown ids are ignored; each id is independent.
	DeleteMany(ctx context.Context, ids []string) (int64, error)

	// DeleteAll removes every record and returns the prior count.
	DeleteAll(ctx context.Context) (int64, error)

	Close() error
}
