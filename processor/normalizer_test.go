package processor

import (
	"math"
	"testing"

	"reconflow/models"
)

func pairEntry(artValue float64, artTS int64, hlValue float64, hlTS int64, classifier Classifier) models.DayEntry {
	return models.DayEntry{
		Date:        "2024-01-02",
		Artemis:     models.PresentSide(artValue, artTS),
		Hyperliquid: models.PresentSide(hlValue, hlTS).WithSourceDate("2024-01-01"),
		Diff:        classifier.Compare(artValue, hlValue),
	}
}

func TestNormalizeEntryDepositInGap(t *testing.T) {
	classifier := NewClassifier(0.5)

	// Raw pair is a mismatch; a deposit inside the snapshot gap explains it.
	entry := pairEntry(1000000, 2000, 990000, 1000, classifier)
	if match, _ := entry.Diff.Match(); match {
		t.Fatalf("precondition: raw pair must mismatch")
	}

	flows := []models.Flow{{TimestampMS: 1500, Amount: 10000}}
	NormalizeEntry(&entry, flows, classifier)

	if entry.HyperliquidNormalized == nil || entry.DiffNormalized == nil {
		t.Fatalf("expected normalized blocks to be populated")
	}
	if v, _ := entry.HyperliquidNormalized.Side.Value(); v != 1000000 {
		t.Errorf("normalized value = %v, want 1000000", v)
	}
	if entry.HyperliquidNormalized.FlowAdjustment != 10000 {
		t.Errorf("flow_adjustment = %v, want 10000", entry.HyperliquidNormalized.FlowAdjustment)
	}
	if entry.HyperliquidNormalized.EventsInGap != 1 {
		t.Errorf("events_in_gap = %d, want 1", entry.HyperliquidNormalized.EventsInGap)
	}
	if pct, _ := entry.DiffNormalized.Pct(); pct != 0 {
		t.Errorf("normalized pct = %v, want 0", pct)
	}
	if match, _ := entry.DiffNormalized.Match(); !match {
		t.Errorf("normalized pair should match")
	}
	if entry.HyperliquidNormalized.Side.SourceDate() != "2024-01-01" {
		t.Errorf("normalized side must keep source_date")
	}
}

func TestNormalizeEntryGapBoundaries(t *testing.T) {
	classifier := NewClassifier(0.5)

	tests := []struct {
		name       string
		flowTS     int64
		wantEvents int
	}{
		{"at hyperliquid snapshot excluded", 1000, 0},
		{"just after hyperliquid snapshot included", 1001, 1},
		{"at artemis snapshot included", 2000, 1},
		{"after artemis snapshot excluded", 2001, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := pairEntry(100, 2000, 100, 1000, classifier)
			NormalizeEntry(&entry, []models.Flow{{TimestampMS: tt.flowTS, Amount: 5}}, classifier)
			if got := entry.HyperliquidNormalized.EventsInGap; got != tt.wantEvents {
				t.Errorf("events_in_gap = %d, want %d", got, tt.wantEvents)
			}
		})
	}
}

func TestNormalizeEntryNoFlowsIsIdentity(t *testing.T) {
	classifier := NewClassifier(0.5)
	entry := pairEntry(1000, 996, 996, 500, classifier)
	rawPct, _ := entry.Diff.Pct()

	NormalizeEntry(&entry, nil, classifier)

	if entry.HyperliquidNormalized.FlowAdjustment != 0 {
		t.Errorf("flow_adjustment = %v, want 0", entry.HyperliquidNormalized.FlowAdjustment)
	}
	if v, _ := entry.HyperliquidNormalized.Side.Value(); v != 996 {
		t.Errorf("normalized value = %v, want raw value 996", v)
	}
	pct, _ := entry.DiffNormalized.Pct()
	if math.Abs(pct-rawPct) > 1e-9 {
		t.Errorf("normalized pct = %v, want raw pct %v", pct, rawPct)
	}
}

func TestNormalizeEntryMissingSideFallsBack(t *testing.T) {
	classifier := NewClassifier(0.5)
	entry := models.DayEntry{
		Date:        "2024-01-02",
		Artemis:     models.PresentSide(100, 2000),
		Hyperliquid: models.AbsentSide().WithSourceDate("2024-01-01"),
	}

	NormalizeEntry(&entry, []models.Flow{{TimestampMS: 1500, Amount: 999}}, classifier)

	if entry.HyperliquidNormalized.Side.IsPresent() {
		t.Errorf("fallback must not fabricate a value")
	}
	if entry.HyperliquidNormalized.FlowAdjustment != 0 || entry.HyperliquidNormalized.EventsInGap != 0 {
		t.Errorf("fallback adjustment must be zero")
	}
	if entry.DiffNormalized.IsPresent() != entry.Diff.IsPresent() {
		t.Errorf("fallback normalized diff must copy the raw diff")
	}
}

func TestFallbackSeries(t *testing.T) {
	classifier := NewClassifier(0.5)
	series := models.AddressSeries{
		Address: "0xabc",
		Series: []models.DayEntry{
			pairEntry(100, 2000, 90, 1000, classifier),
			pairEntry(200, 4000, 200, 3000, classifier),
		},
	}

	Fallback(&series)

	for i, entry := range series.Series {
		if entry.HyperliquidNormalized == nil || entry.DiffNormalized == nil {
			t.Fatalf("entry %d: expected fallback blocks", i)
		}
		rawV, _ := entry.Hyperliquid.Value()
		normV, _ := entry.HyperliquidNormalized.Side.Value()
		if normV != rawV {
			t.Errorf("entry %d: fallback value %v != raw %v", i, normV, rawV)
		}
		rawPct, _ := entry.Diff.Pct()
		normPct, _ := entry.DiffNormalized.Pct()
		if normPct != rawPct {
			t.Errorf("entry %d: fallback pct %v != raw %v", i, normPct, rawPct)
		}
	}
}

func TestSeriesTimestampRange(t *testing.T) {
	classifier := NewClassifier(0.5)
	series := models.AddressSeries{
		Series: []models.DayEntry{
			pairEntry(100, 5000, 100, 3000, classifier),
			pairEntry(100, 9000, 100, 7000, classifier),
		},
	}

	minMS, maxMS, ok := SeriesTimestampRange(&series)
	if !ok {
		t.Fatalf("expected a range")
	}
	if minMS != 3000 || maxMS != 9000 {
		t.Errorf("range = [%d, %d], want [3000, 9000]", minMS, maxMS)
	}

	empty := models.AddressSeries{Series: []models.DayEntry{{
		Date:        "2024-01-02",
		Artemis:     models.AbsentSide(),
		Hyperliquid: models.AbsentSide(),
	}}}
	if _, _, ok := SeriesTimestampRange(&empty); ok {
		t.Errorf("expected no range for a series without timestamps")
	}
}
