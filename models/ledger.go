package models

import (
	"encoding/json"
	"fmt"
)

// LedgerRecord is one raw entry from the non-funding ledger feed. The full
// record body is retained so duplicates arriving across page boundaries can
// be collapsed by structural equality.
type LedgerRecord struct {
	TimeMS *int64
	Delta  json.RawMessage
	raw    json.RawMessage
}

type ledgerRecordJSON struct {
	Time  *int64          `json:"time"`
	Delta json.RawMessage `json:"delta"`
}

// ParseLedgerRecord decodes a single raw ledger entry. Records that are not
// JSON objects are rejected; a missing time field is preserved as nil so the
// extractor can drop the record without treating it as an error.
func ParseLedgerRecord(raw json.RawMessage) (LedgerRecord, error) {
	var in ledgerRecordJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return LedgerRecord{}, fmt.Errorf("decode ledger record: %w", err)
	}
	return LedgerRecord{TimeMS: in.Time, Delta: in.Delta, raw: raw}, nil
}

// CanonicalKey renders the full record as canonical JSON (object keys
// sorted), so two records identical in content but differing in field order
// or whitespace produce the same key.
func (r LedgerRecord) CanonicalKey() (string, error) {
	var generic interface{}
	if err := json.Unmarshal(r.raw, &generic); err != nil {
		return "", fmt.Errorf("canonicalize ledger record: %w", err)
	}
	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize ledger record: %w", err)
	}
	return string(out), nil
}

// Flow is a signed cash movement derived from a ledger record, from the perp
// account's perspective.
type Flow struct {
	TimestampMS int64
	Amount      float64
}
