package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"splitbook/internal/auth"
	"splitbook/internal/core"
)

func adminToken(t *testing.T) auth.Token {
	t.Helper()
	tok, err := auth.NewGate("admin", "s3cret").Authorize("admin", "s3cret")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	return tok
}

func TestCSVRequiresAdminToken(t *testing.T) {
	_, err := CSV([]core.ExpenseRecord{}, auth.Token{})
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCSVHeaderAndOrder(t *testing.T) {
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	records := []core.ExpenseRecord{
		{ID: "a", Category: "Food", Friend: "Alice", Amount: core.Money{Cents: 1250}, CreatedAt: created},
		{ID: "b", Category: "Transport", Friend: "Bob", Amount: core.Money{Cents: 300}, Note: "bus", CreatedAt: created},
	}

	out, err := CSV(records, adminToken(t))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	for i, col := range Header {
		if rows[0][i] != col {
			t.Fatalf("header col %d = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][0] != "a" || rows[2][0] != "b" {
		t.Fatal("rows reordered")
	}
	if rows[1][3] != "12.50" || rows[2][3] != "3.00" {
		t.Fatalf("amounts wrong: %q, %q", rows[1][3], rows[2][3])
	}
	if rows[1][5] != "2026-08-30T10:00:00Z" {
		t.Fatalf("timestamp wrong: %q", rows[1][5])
	}
}

// Fields with commas, quotes and newlines must survive a parse cycle.
func TestCSVRoundTripAwkwardFields(t *testing.T) {
	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	records := []core.ExpenseRecord{
		{ID: "r1", Category: `Food, "street"`, Friend: "Alice\nB", Amount: core.Money{Cents: 725}, Note: "snacks, drinks\n\"extras\"", CreatedAt: created},
		{ID: "r2", Category: "Plain", Friend: "Bob", Amount: core.Money{Cents: 100}, CreatedAt: created},
	}

	out, err := CSV(records, adminToken(t))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("got %d rows, want %d", len(rows), len(records)+1)
	}
	for i, r := range records {
		row := rows[i+1]
		want := []string{r.ID, r.Category, r.Friend, r.Amount.DecimalString(), r.Note, created.Format(time.RFC3339)}
		for j := range want {
			if row[j] != want[j] {
				t.Fatalf("record %d field %d: got %q, want %q", i, j, row[j], want[j])
			}
		}
	}
}

func TestCSVEmptySnapshot(t *testing.T) {
	out, err := CSV(nil, adminToken(t))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil || len(rows) != 1 {
		t.Fatalf("want header only, got %d rows (err=%v)", len(rows), err)
	}
}
