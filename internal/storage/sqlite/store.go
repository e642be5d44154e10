// Package sqlite is the embedded storage backend: a single database file,
// schema managed through embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"splitbook/internal/audit"
	"splitbook/internal/core"
	"splitbook/internal/storage"
)

// Store persists expense records and audit entries in a SQLite file.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap("open sqlite database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, wrap("ping database", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, wrap("migrate database", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Insert(ctx context.Context, rec core.ExpenseRecord) error {
	const q = `INSERT INTO expenses (id, category, friend, amount_cents, note, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.Category, rec.Friend, rec.Amount.Cents, rec.Note,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return wrap("insert record", err)
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.ExpenseRecord, error) {
	const q = `SELECT id, category, friend, amount_cents, note, created_at
	FROM expenses ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrap("query records", err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		var (
			r       core.ExpenseRecord
			cents   int64
			created string
		)
		if err := rows.Scan(&r.ID, &r.Category, &r.Friend, &cents, &r.Note, &created); err != nil {
			return nil, wrap("scan record", err)
		}
		r.Amount = core.Money{Cents: cents}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse record timestamp: %w", err)
		}
		r.CreatedAt = ts
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate records", err)
	}
	return out, nil
}

func (s *Store) DeleteOne(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return false, wrap("delete record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("rows affected", err)
	}
	return n > 0, nil
}

func (s *Store) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, wrap("delete records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("rows affected", err)
	}
	return n, nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses`)
	if err != nil {
		return 0, wrap("delete all records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("rows affected", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append implements audit.Sink against the audit_logs table.
func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	const q = `INSERT INTO audit_logs (id, action, actor, target, details, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		e.ID, e.Action, e.Actor, e.Target, string(details),
		e.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return wrap("insert audit entry", err)
	}
	return nil
}

// Recent implements audit.Sink, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	q := `SELECT id, action, actor, target, details, timestamp
	FROM audit_logs ORDER BY timestamp DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("query audit entries", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			details string
			ts      string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &e.Target, &details, &ts); err != nil {
			return nil, wrap("scan audit entry", err)
		}
		when, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		e.Timestamp = when
		if details != "" && details != "null" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate audit entries", err)
	}
	return out, nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(storage.ErrUnavailable, err))
}

var (
	_ storage.Store = (*Store)(nil)
	_ audit.Sink    = (*Store)(nil)
)
