// Package ledger implements the expense ledger: validation, id and
// timestamp assignment, the authorization check on bulk deletion, and
// best-effort event publishing around every mutation.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"splitbook/internal/auth"
	"splitbook/internal/core"
	"splitbook/internal/storage"
)

// EventPublisher receives a notification after each successful mutation.
// Publishing failures are logged, never surfaced to the caller.
type EventPublisher interface {
	PublishRecordCreated(ctx context.Context, rec core.ExpenseRecord) error
	PublishRecordsDeleted(ctx context.Context, ids []string) error
	PublishLedgerCleared(ctx context.Context, removed int64) error
}

// Ledger is the sole owner of expense records. All mutations go through
// it; aggregation and export consume the snapshots it returns.
type Ledger struct {
	store  storage.Store
	events EventPublisher // optional
}

func New(store storage.Store, events EventPublisher) *Ledger {
	return &Ledger{
		store:  store,
		events: events,
	}
}

// Add validates the input, assigns id and creation time, and persists one
// record. On a validation failure nothing is written.
func (l *Ledger) Add(ctx context.Context, category, friend string, amount core.Money, note string) (core.ExpenseRecord, error) {
	rec := core.ExpenseRecord{
		ID:        uuid.NewString(),
		Category:  category,
		Friend:    friend,
		Amount:    amount,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("add record: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"id", rec.ID,
		"category", rec.Category,
		"friend", rec.Friend,
		"amount_cents", rec.Amount.Cents)

	if l.events != nil {
		if err := l.events.PublishRecordCreated(ctx, rec); err != nil {
			slog.WarnContext(ctx, "Failed to publish record-created event",
				"id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

// ListAll returns a point-in-time snapshot of all records.
func (l *Ledger) ListAll(ctx context.Context) ([]core.ExpenseRecord, error) {
	records, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Summary aggregates a fresh snapshot by category and by friend.
func (l *Ledger) Summary(ctx context.Context) (core.Summary, error) {
	records, err := l.ListAll(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(records), nil
}

// DeleteOne removes the record with the given id. A missing id is not an
// error: it reports (false, nil). That is this ledger's documented
// contract for the ambiguous case.
func (l *Ledger) DeleteOne(ctx context.Context, id string) (bool, error) {
	removed, err := l.store.DeleteOne(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	if removed && l.events != nil {
		if err := l.events.PublishRecordsDeleted(ctx, []string{id}); err != nil {
			slog.WarnContext(ctx, "Failed to publish record-deleted event",
				"id", id, "error", err)
		}
	}
	return removed, nil
}

// DeleteMany removes every record whose id is in ids and returns the
// number removed. Ids not found are no-ops; ids are independent of each
// other.
func (l *Ledger) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	removed, err := l.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	if removed > 0 && l.events != nil {
		if err := l.events.PublishRecordsDeleted(ctx, ids); err != nil {
			slog.WarnContext(ctx, "Failed to publish records-deleted event",
				"count", removed, "error", err)
		}
	}
	return removed, nil
}

// DeleteAll removes every record and returns the prior count. It refuses
// to act without a valid admin token.
func (l *Ledger) DeleteAll(ctx context.Context, token auth.Token) (int64, error) {
	if !token.Valid() {
		return 0, auth.ErrUnauthorized
	}
	removed, err := l.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all records: %w", err)
	}

	slog.InfoContext(ctx, "Ledger cleared",
		"removed", removed,
		"token_id", token.ID())

	if l.events != nil {
		if err := l.events.PublishLedgerCleared(ctx, removed); err != nil {
			slog.WarnContext(ctx, "Failed to publish ledger-cleared event",
				"removed", removed, "error", err)
		}
	}
	return removed, nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}
