package artemis

import (
	"bufio"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"
)

// snapshotRecord is one parsed snapshot line for a tracked wallet.
type snapshotRecord struct {
	Address     string
	TimestampMS int64
	Value       float64
}

type snapshotLine struct {
	Metadata bool            `json:"_metadata"`
	Address  string          `json:"address"`
	Timestamp json.RawMessage `json:"timestamp"`
	Response struct {
		Perpetual struct {
			MarginSummary struct {
				AccountValue interface{} `json:"accountValue"`
			} `json:"marginSummary"`
		} `json:"perpetual"`
	} `json:"response"`
}

// parseSnapshot reads a .jsonl snapshot stream and returns records for the
// wallets of interest. Metadata lines and lines for other wallets are
// skipped; a line that fails to decode is dropped without affecting its
// siblings. A missing account value parses as zero; an unparseable
// timestamp parses as zero, the selector's lowest rank.
func parseSnapshot(r io.Reader, wallets map[string]struct{}) []snapshotRecord {
	var records []snapshotRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var parsed snapshotLine
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue
		}
		if parsed.Metadata {
			continue
		}

		address := strings.ToLower(parsed.Address)
		if _, tracked := wallets[address]; !tracked {
			continue
		}

		records = append(records, snapshotRecord{
			Address:     address,
			TimestampMS: parseTimestampMS(parsed.Timestamp),
			Value:       toFloat(parsed.Response.Perpetual.MarginSummary.AccountValue),
		})
	}

	return records
}

// parseTimestampMS accepts either an epoch-millisecond number or an ISO-8601
// string, the two shapes the snapshot feed has produced.
func parseTimestampMS(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return int64(asNumber)
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0
	}
	asString = strings.Replace(asString, "Z", "+00:00", 1)
	for _, layout := range []string{"2006-01-02T15:04:05.999999999-07:00", "2006-01-02T15:04:05-07:00"} {
		if t, err := time.Parse(layout, asString); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func toFloat(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
