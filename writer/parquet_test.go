package writer

import (
	"testing"

	"reconflow/models"
)

func TestFlattenPairs(t *testing.T) {
	cmp := sampleComparison()
	norm := models.DiffOf(0, 0, true)
	cmp.Addresses[0].Series[0].HyperliquidNormalized = &models.NormalizedPoint{
		Side:           models.PresentSide(1000000, 1704100000000).WithSourceDate("2024-01-01"),
		FlowAdjustment: 10000,
		EventsInGap:    1,
	}
	cmp.Addresses[0].Series[0].DiffNormalized = &norm
	cmp.Addresses[0].Series = append(cmp.Addresses[0].Series, models.DayEntry{
		Date:        "2024-01-03",
		Artemis:     models.PresentSide(500, 1704300000000),
		Hyperliquid: models.AbsentSide().WithSourceDate("2024-01-02"),
	})

	records := FlattenPairs(cmp, "run-1")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	full := records[0]
	if full.RunID != "run-1" || full.Address != "0xabc" || full.Date != "2024-01-02" {
		t.Errorf("record identity = %+v", full)
	}
	if full.ArtemisValue == nil || *full.ArtemisValue != 1000000 {
		t.Errorf("artemis_value = %v", full.ArtemisValue)
	}
	if full.PctDiff == nil || *full.PctDiff != 1.0101 {
		t.Errorf("pct_diff = %v", full.PctDiff)
	}
	if full.NormalizedValue == nil || *full.NormalizedValue != 1000000 {
		t.Errorf("normalized_value = %v", full.NormalizedValue)
	}
	if full.FlowAdjustment == nil || *full.FlowAdjustment != 10000 {
		t.Errorf("flow_adjustment = %v", full.FlowAdjustment)
	}
	if full.EventsInGap == nil || *full.EventsInGap != 1 {
		t.Errorf("events_in_gap = %v", full.EventsInGap)
	}
	if full.MatchNormalized == nil || !*full.MatchNormalized {
		t.Errorf("match_normalized = %v", full.MatchNormalized)
	}

	missing := records[1]
	if missing.HyperliquidValue != nil || missing.PctDiff != nil || missing.Match != nil {
		t.Errorf("missing pair must export nulls: %+v", missing)
	}
	if missing.NormalizedValue != nil || missing.FlowAdjustment != nil {
		t.Errorf("never-normalized pair must export null adjustments: %+v", missing)
	}
}
