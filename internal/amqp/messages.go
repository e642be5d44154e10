package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger events queue.
const (
	EventRecordCreated  = "record_created"
	EventRecordsDeleted = "records_deleted"
	EventLedgerCleared  = "ledger_cleared"
)

// LedgerEvent notifies external consumers of a ledger mutation. Only the
// fields relevant to the kind are set.
type LedgerEvent struct {
	Kind        string    `json:"kind"`
	RecordID    string    `json:"record_id,omitempty"`
	Category    string    `json:"category,omitempty"`
	Friend      string    `json:"friend,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	RecordIDs   []string  `json:"record_ids,omitempty"`
	Removed     int64     `json:"removed,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
