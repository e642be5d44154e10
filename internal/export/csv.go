// Package export serializes a ledger snapshot into a flat CSV file.
// Export is a privileged operation: it refuses to run without a valid
// admin token.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"splitbook/internal/auth"
	"splitbook/internal/core"
)

// Header is the first row of every export.
var Header = []string{"id", "category", "friend", "amount", "note", "created_at"}

// WriteCSV streams the snapshot to w: one header row, then one row per
// record in snapshot order. Fields containing delimiters, quotes or
// newlines are quoted per RFC 4180 so the output round-trips.
func WriteCSV(w io.Writer, records []core.ExpenseRecord, token auth.Token) error {
	if !token.Valid() {
		return auth.ErrUnauthorized
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Category,
			r.Friend,
			r.Amount.DecimalString(),
			r.Note,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

// CSV renders the snapshot into a byte slice, UTF-8 encoded.
func CSV(records []core.ExpenseRecord, token auth.Token) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records, token); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
