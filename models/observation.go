package models

import "time"

// DateFormat is the calendar-day key used throughout the artifact and the
// observation table.
const DateFormat = "2006-01-02"

// Source identifies which side of the reconciliation an observation came from.
type Source int

const (
	SourceArtemis Source = iota
	SourceHyperliquid
)

func (s Source) String() string {
	switch s {
	case SourceArtemis:
		return "artemis"
	case SourceHyperliquid:
		return "hyperliquid"
	default:
		return "unknown"
	}
}

// Observation is a single timestamped account-value reading from one source.
// Timestamps are epoch milliseconds, matching both sources' wire formats.
type Observation struct {
	TimestampMS int64
	Value       float64
}

type bucketKey struct {
	Address string
	Date    string
	Source  Source
}

// ObservationTable is a flat table of (address, date, source) → observations.
// Lookups on missing keys return an empty bucket and never mutate the table.
type ObservationTable struct {
	buckets map[bucketKey][]Observation
}

func NewObservationTable() *ObservationTable {
	return &ObservationTable{buckets: make(map[bucketKey][]Observation)}
}

func (t *ObservationTable) Add(address, date string, source Source, obs Observation) {
	key := bucketKey{Address: address, Date: date, Source: source}
	t.buckets[key] = append(t.buckets[key], obs)
}

// Bucket returns all raw observations for one address/date/source cell.
func (t *ObservationTable) Bucket(address, date string, source Source) []Observation {
	return t.buckets[bucketKey{Address: address, Date: date, Source: source}]
}

// Merge folds every cell of other into t.
func (t *ObservationTable) Merge(other *ObservationTable) {
	for key, bucket := range other.buckets {
		t.buckets[key] = append(t.buckets[key], bucket...)
	}
}

// Len reports the number of non-empty cells.
func (t *ObservationTable) Len() int {
	return len(t.buckets)
}

// Addresses returns every address with at least one observation.
func (t *ObservationTable) Addresses() []string {
	seen := make(map[string]struct{})
	for key := range t.buckets {
		seen[key.Address] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	return out
}

// Window is the fixed, inclusive analysis window at daily granularity. The
// window length is set by the run parameters, never derived from the data.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// NewWindow builds a window of days consecutive UTC calendar days ending at
// end truncated to midnight.
func NewWindow(end time.Time, days int) Window {
	end = end.UTC().Truncate(24 * time.Hour)
	return Window{
		Start: end.AddDate(0, 0, -(days - 1)),
		End:   end,
		Days:  days,
	}
}

// Dates lists every day in the window in ascending order.
func (w Window) Dates() []string {
	dates := make([]string, 0, w.Days)
	for cur := w.Start; !cur.After(w.End); cur = cur.AddDate(0, 0, 1) {
		dates = append(dates, cur.Format(DateFormat))
	}
	return dates
}

// Contains reports whether t falls on a window day, with lookback extra days
// of margin before the start. Hyperliquid uses a one-day lookback so the
// window's first day can pair against the previous calendar day.
func (w Window) Contains(t time.Time, lookback int) bool {
	day := t.UTC().Truncate(24 * time.Hour)
	return !day.Before(w.Start.AddDate(0, 0, -lookback)) && !day.After(w.End)
}
