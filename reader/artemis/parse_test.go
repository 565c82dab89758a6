package artemis

import (
	"strings"
	"testing"
)

func TestParseSnapshot(t *testing.T) {
	wallets := map[string]struct{}{"0xabc": {}}

	input := strings.Join([]string{
		`{"_metadata":true,"run":"2024-01-02"}`,
		`{"address":"0xABC","timestamp":1704153600000,"response":{"perpetual":{"marginSummary":{"accountValue":"1000000.5"}}}}`,
		`{"address":"0xdef","timestamp":1704153600000,"response":{"perpetual":{"marginSummary":{"accountValue":"42"}}}}`,
		`not valid json at all`,
		`{"address":"0xabc","timestamp":"2024-01-02T00:00:00Z","response":{"perpetual":{"marginSummary":{"accountValue":250.25}}}}`,
		``,
	}, "\n")

	records := parseSnapshot(strings.NewReader(input), wallets)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].Address != "0xabc" {
		t.Errorf("address = %s, want lowercased 0xabc", records[0].Address)
	}
	if records[0].TimestampMS != 1704153600000 {
		t.Errorf("numeric timestamp = %d, want 1704153600000", records[0].TimestampMS)
	}
	if records[0].Value != 1000000.5 {
		t.Errorf("string value = %v, want 1000000.5", records[0].Value)
	}

	if records[1].TimestampMS != 1704153600000 {
		t.Errorf("ISO timestamp = %d, want 1704153600000", records[1].TimestampMS)
	}
	if records[1].Value != 250.25 {
		t.Errorf("numeric value = %v, want 250.25", records[1].Value)
	}
}

func TestParseSnapshotMissingFields(t *testing.T) {
	wallets := map[string]struct{}{"0xabc": {}}

	input := `{"address":"0xabc","timestamp":"garbage","response":{}}`
	records := parseSnapshot(strings.NewReader(input), wallets)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].TimestampMS != 0 {
		t.Errorf("unparseable timestamp must rank lowest, got %d", records[0].TimestampMS)
	}
	if records[0].Value != 0 {
		t.Errorf("missing account value must parse as zero, got %v", records[0].Value)
	}
}
