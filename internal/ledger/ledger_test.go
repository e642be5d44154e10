package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"splitbook/internal/auth"
	"splitbook/internal/core"
	"splitbook/internal/storage/memory"
)

func newTestLedger() *Ledger {
	return New(memory.NewStore(), nil)
}

func adminToken(t *testing.T) auth.Token {
	t.Helper()
	tok, err := auth.NewGate("admin", "s3cret").Authorize("admin", "s3cret")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	return tok
}

func TestAddAndListAll(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	rec, err := l.Add(ctx, "Food", "Alice", core.Money{Cents: 1250}, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("id/createdAt not assigned: %+v", rec)
	}

	got, err := l.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	r := got[0]
	if r.Category != "Food" || r.Friend != "Alice" || r.Amount.Cents != 1250 || r.Note != "" {
		t.Fatalf("fields differ from input: %+v", r)
	}
}

func TestAddValidationLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	if _, err := l.Add(ctx, "Food", "Alice", core.Money{Cents: 100}, ""); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name             string
		category, friend string
		cents            int64
		want             error
	}{
		{"zero amount", "Food", "Alice", 0, core.ErrInvalidAmount},
		{"negative amount", "Food", "Alice", -50, core.ErrInvalidAmount},
		{"empty category", "", "Alice", 100, core.ErrEmptyCategory},
		{"empty friend", "Food", "", 100, core.ErrEmptyFriend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Add(ctx, tc.category, tc.friend, core.Money{Cents: tc.cents}, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			got, _ := l.ListAll(ctx)
			if len(got) != 1 {
				t.Fatalf("store changed on failed add: %d records", len(got))
			}
		})
	}
}

func TestDeleteOneMissingID(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	removed, err := l.DeleteOne(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("missing id must not error: %v", err)
	}
	if removed {
		t.Fatal("nothing should have been removed")
	}
}

func TestDeleteOneAndMany(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := l.Add(ctx, "Food", "Alice", core.Money{Cents: 100}, "")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, rec.ID)
	}

	removed, err := l.DeleteOne(ctx, ids[0])
	if err != nil || !removed {
		t.Fatalf("delete one: removed=%v err=%v", removed, err)
	}

	n, err := l.DeleteMany(ctx, []string{ids[1], ids[2], "ghost"})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}

	left, _ := l.ListAll(ctx)
	if len(left) != 0 {
		t.Fatalf("%d records left", len(left))
	}
}

func TestDeleteAllRequiresAdminToken(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	for i := 0; i < 3; i++ {
		if _, err := l.Add(ctx, "Food", "Alice", core.Money{Cents: 100}, ""); err != nil {
			t.Fatal(err)
		}
	}

	// Zero token: refused, records intact.
	if _, err := l.DeleteAll(ctx, auth.Token{}); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	got, _ := l.ListAll(ctx)
	if len(got) != 3 {
		t.Fatalf("records touched by refused delete-all: %d left", len(got))
	}

	// Valid token: everything goes, prior count returned.
	n, err := l.DeleteAll(ctx, adminToken(t))
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if n != 3 {
		t.Fatalf("prior count %d, want 3", n)
	}
	got, _ = l.ListAll(ctx)
	if len(got) != 0 {
		t.Fatalf("%d records left after delete all", len(got))
	}
}

// The full scenario: bad credential first, then the real one.
func TestDeleteAllScenario(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()
	gate := auth.NewGate("admin", "correct-horse")

	l.Add(ctx, "Food", "Alice", core.Money{Cents: 1250}, "")
	l.Add(ctx, "Food", "Bob", core.Money{Cents: 725}, "lunch")
	l.Add(ctx, "Transport", "Alice", core.Money{Cents: 300}, "")

	if _, err := gate.Authorize("admin", "wrong"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("bad credential: got %v", err)
	}
	got, _ := l.ListAll(ctx)
	if len(got) != 3 {
		t.Fatalf("records lost after failed login: %d", len(got))
	}

	tok, err := gate.Authorize("admin", "correct-horse")
	if err != nil {
		t.Fatalf("good credential: %v", err)
	}
	n, err := l.DeleteAll(ctx, tok)
	if err != nil || n != 3 {
		t.Fatalf("delete all: n=%d err=%v", n, err)
	}
	got, _ = l.ListAll(ctx)
	if len(got) != 0 {
		t.Fatalf("%d records remain", len(got))
	}
}

func TestSummaryScenario(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	l.Add(ctx, "Food", "Alice", core.Money{Cents: 1250}, "")
	l.Add(ctx, "Food", "Bob", core.Money{Cents: 725}, "lunch")
	l.Add(ctx, "Transport", "Alice", core.Money{Cents: 300}, "")

	s, err := l.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.ByCategory["Food"].Cents != 1975 || s.ByCategory["Transport"].Cents != 300 {
		t.Fatalf("byCategory wrong: %+v", s.ByCategory)
	}
	if s.ByFriend["Alice"].Cents != 1550 || s.ByFriend["Bob"].Cents != 725 {
		t.Fatalf("byFriend wrong: %+v", s.ByFriend)
	}
	if s.Total.Cents != 2275 {
		t.Fatalf("total %d, want 2275", s.Total.Cents)
	}
}

func TestConcurrentAddsAssignUniqueIDs(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Add(ctx, "Food", "Alice", core.Money{Cents: 100}, ""); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := l.ListAll(ctx)
	if len(got) != n {
		t.Fatalf("got %d records, want %d", len(got), n)
	}
	seen := make(map[string]bool, n)
	for _, r := range got {
		if seen[r.ID] {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
	}
}

type countingPublisher struct {
	mu      sync.Mutex
	created int
	deleted int
	cleared int
}

func (p *countingPublisher) PublishRecordCreated(ctx context.Context, rec core.ExpenseRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	return nil
}
func (p *countingPublisher) PublishRecordsDeleted(ctx context.Context, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted++
	return nil
}
func (p *countingPublisher) PublishLedgerCleared(ctx context.Context, removed int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
	return nil
}

func TestEventsPublishedOnMutations(t *testing.T) {
	ctx := context.Background()
	pub := &countingPublisher{}
	l := New(memory.NewStore(), pub)

	rec, _ := l.Add(ctx, "Food", "Alice", core.Money{Cents: 100}, "")
	l.DeleteOne(ctx, rec.ID)
	l.DeleteOne(ctx, "ghost") // no event for a no-op delete
	l.Add(ctx, "Food", "Bob", core.Money{Cents: 100}, "")
	l.DeleteAll(ctx, adminToken(t))

	if pub.created != 2 || pub.deleted != 1 || pub.cleared != 1 {
		t.Fatalf("events created=%d deleted=%d cleared=%d", pub.created, pub.deleted, pub.cleared)
	}
}

type failingStore struct {
	memory.Store
}

func (f *failingStore) Insert(ctx context.Context, rec core.ExpenseRecord) error {
	return errors.New("connection reset")
}

func TestStorageErrorsSurface(t *testing.T) {
	l := New(&failingStore{}, nil)
	_, err := l.Add(context.Background(), "Food", "Alice", core.Money{Cents: 100}, "")
	if err == nil {
		t.Fatal("storage failure must surface")
	}
}
