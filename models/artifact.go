package models

import (
	"encoding/json"
	"fmt"
)

// SidePoint is one source's selected observation for a report day. Value and
// timestamp are jointly absent when the source had no record for the day.
// The Hyperliquid side additionally carries the calendar day its observation
// was actually taken from (one day before the report date).
type SidePoint struct {
	present     bool
	value       float64
	timestampMS int64
	sourceDate  string
}

// PresentSide builds a populated side point.
func PresentSide(value float64, timestampMS int64) SidePoint {
	return SidePoint{present: true, value: value, timestampMS: timestampMS}
}

// AbsentSide builds a side point with no observation.
func AbsentSide() SidePoint { return SidePoint{} }

// WithSourceDate attaches the source calendar day, present or not.
func (p SidePoint) WithSourceDate(date string) SidePoint {
	p.sourceDate = date
	return p
}

func (p SidePoint) IsPresent() bool { return p.present }

func (p SidePoint) Value() (float64, bool) { return p.value, p.present }

func (p SidePoint) TimestampMS() (int64, bool) { return p.timestampMS, p.present }

func (p SidePoint) SourceDate() string { return p.sourceDate }

type sidePointJSON struct {
	Value         *float64 `json:"value"`
	LastTimestamp *int64   `json:"last_timestamp"`
	SourceDate    string   `json:"source_date,omitempty"`
}

func (p SidePoint) MarshalJSON() ([]byte, error) {
	out := sidePointJSON{SourceDate: p.sourceDate}
	if p.present {
		out.Value = &p.value
		out.LastTimestamp = &p.timestampMS
	}
	return json.Marshal(out)
}

func (p *SidePoint) UnmarshalJSON(data []byte) error {
	var in sidePointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if (in.Value == nil) != (in.LastTimestamp == nil) {
		return fmt.Errorf("value and last_timestamp must be jointly null or jointly populated")
	}
	*p = SidePoint{sourceDate: in.SourceDate}
	if in.Value != nil {
		p.present = true
		p.value = *in.Value
		p.timestampMS = *in.LastTimestamp
	}
	return nil
}

// NormalizedPoint is the Hyperliquid side after flow adjustment. Value and
// timestamp mirror the raw side's presence; the adjustment fields are always
// populated (zero on the no-op fallback path).
type NormalizedPoint struct {
	Side           SidePoint
	FlowAdjustment float64
	EventsInGap    int
}

type normalizedPointJSON struct {
	Value          *float64 `json:"value"`
	LastTimestamp  *int64   `json:"last_timestamp"`
	SourceDate     string   `json:"source_date,omitempty"`
	FlowAdjustment float64  `json:"flow_adjustment"`
	EventsInGap    int      `json:"events_in_gap"`
}

func (p NormalizedPoint) MarshalJSON() ([]byte, error) {
	out := normalizedPointJSON{
		SourceDate:     p.Side.sourceDate,
		FlowAdjustment: p.FlowAdjustment,
		EventsInGap:    p.EventsInGap,
	}
	if p.Side.present {
		out.Value = &p.Side.value
		out.LastTimestamp = &p.Side.timestampMS
	}
	return json.Marshal(out)
}

func (p *NormalizedPoint) UnmarshalJSON(data []byte) error {
	var in normalizedPointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if (in.Value == nil) != (in.LastTimestamp == nil) {
		return fmt.Errorf("value and last_timestamp must be jointly null or jointly populated")
	}
	*p = NormalizedPoint{
		Side:           SidePoint{sourceDate: in.SourceDate},
		FlowAdjustment: in.FlowAdjustment,
		EventsInGap:    in.EventsInGap,
	}
	if in.Value != nil {
		p.Side.present = true
		p.Side.value = *in.Value
		p.Side.timestampMS = *in.LastTimestamp
	}
	return nil
}

// DayEntry is one aligned pair for one report date: Artemis at date, paired
// against Hyperliquid at date−1. The normalized blocks are nil until the
// normalize pass has run.
type DayEntry struct {
	Date                  string           `json:"date"`
	Artemis               SidePoint        `json:"artemis"`
	Hyperliquid           SidePoint        `json:"hyperliquid"`
	Diff                  Diff             `json:"diff"`
	HyperliquidNormalized *NormalizedPoint `json:"hyperliquid_normalized,omitempty"`
	DiffNormalized        *Diff            `json:"diff_normalized,omitempty"`
}

// AddressSeries is one address's aligned pairs across the whole window,
// exactly one entry per window day.
type AddressSeries struct {
	Address string     `json:"address"`
	Series  []DayEntry `json:"series"`
}

// Comparison is the persisted reconciliation artifact.
type Comparison struct {
	GeneratedAt string          `json:"generated_at"`
	Days        int             `json:"days"`
	Addresses   []AddressSeries `json:"addresses"`
}
