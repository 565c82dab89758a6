package report

import (
	"math"
	"testing"

	"reconflow/models"
)

func pair(date string, art, hl float64, pct float64, match bool) models.DayEntry {
	return models.DayEntry{
		Date:        date,
		Artemis:     models.PresentSide(art, 2000),
		Hyperliquid: models.PresentSide(hl, 1000).WithSourceDate("2024-01-01"),
		Diff:        models.DiffOf(art-hl, pct, match),
	}
}

func missingPair(date string) models.DayEntry {
	return models.DayEntry{
		Date:        date,
		Artemis:     models.PresentSide(100, 2000),
		Hyperliquid: models.AbsentSide().WithSourceDate("2024-01-01"),
	}
}

func TestAnalyzeBucketAssignment(t *testing.T) {
	cmp := &models.Comparison{
		Days: 5,
		Addresses: []models.AddressSeries{{
			Address: "0xabc",
			Series: []models.DayEntry{
				pair("2024-01-01", 100, 99.9, 0.1, true),
				pair("2024-01-02", 100, 99.4, 0.6, false),
				pair("2024-01-03", 100, 97, 3.0, false),
				pair("2024-01-04", 100, 5, 600.0, false),
				missingPair("2024-01-05"),
			},
		}},
	}

	dist := Analyze(cmp, false, 10)

	if dist.TotalCompared != 4 {
		t.Errorf("total compared = %d, want 4", dist.TotalCompared)
	}
	if dist.Missing != 1 {
		t.Errorf("missing = %d, want 1", dist.Missing)
	}

	wantBuckets := map[string]int{
		"OK (< 0.5%)": 1,
		"0.5% - 1%":   1,
		"1% - 5%":     1,
		"> 500%":      1,
	}
	for label, want := range wantBuckets {
		if got := dist.BucketCounts[label]; got != want {
			t.Errorf("bucket %q = %d, want %d", label, got, want)
		}
	}
	total := 0
	for _, n := range dist.BucketCounts {
		total += n
	}
	if total != dist.TotalCompared {
		t.Errorf("bucket counts sum to %d, want %d", total, dist.TotalCompared)
	}

	if len(dist.WorstPairs) != 4 || dist.WorstPairs[0].Pct != 600 {
		t.Errorf("worst pairs must be sorted by pct desc, got %+v", dist.WorstPairs)
	}
	if len(dist.WorstAddrs) != 1 || dist.WorstAddrs[0].MismatchDays != 3 {
		t.Errorf("worst addresses = %+v, want one address with 3 mismatch days", dist.WorstAddrs)
	}
	wantMean := (0.6 + 3.0 + 600.0) / 3
	if got := dist.WorstAddrs[0].MeanPct; math.Abs(got-wantMean) > 1e-9 {
		t.Errorf("mean pct = %v, want %v", got, wantMean)
	}
}

func TestAnalyzeBucketBoundaries(t *testing.T) {
	// Boundary values belong to the bucket whose Lo they equal.
	cmp := &models.Comparison{
		Addresses: []models.AddressSeries{{
			Address: "0xabc",
			Series: []models.DayEntry{
				pair("2024-01-01", 100, 100, 0.5, false),
				pair("2024-01-02", 100, 100, 1.0, false),
				pair("2024-01-03", 100, 100, 500.0, false),
			},
		}},
	}

	dist := Analyze(cmp, false, 10)
	for label, want := range map[string]int{"0.5% - 1%": 1, "1% - 5%": 1, "> 500%": 1} {
		if got := dist.BucketCounts[label]; got != want {
			t.Errorf("bucket %q = %d, want %d", label, got, want)
		}
	}
}

func TestAnalyzeNormalizedFallsBackToRaw(t *testing.T) {
	normalizedDiff := models.DiffOf(0, 0, true)
	entryNormalized := pair("2024-01-01", 100, 90, 10.0, false)
	entryNormalized.DiffNormalized = &normalizedDiff
	entryRawOnly := pair("2024-01-02", 100, 99, 1.0, false)

	cmp := &models.Comparison{
		Addresses: []models.AddressSeries{{
			Address: "0xabc",
			Series:  []models.DayEntry{entryNormalized, entryRawOnly},
		}},
	}

	dist := Analyze(cmp, true, 10)
	if got := dist.BucketCounts["OK (< 0.5%)"]; got != 1 {
		t.Errorf("normalized pair should land in OK, got %d", got)
	}
	if got := dist.BucketCounts["1% - 5%"]; got != 1 {
		t.Errorf("un-normalized pair should fall back to its raw diff, got %d", got)
	}

	ok, mismatch, missing := MatchCounts(cmp, true)
	if ok != 1 || mismatch != 1 || missing != 0 {
		t.Errorf("counts = (%d, %d, %d), want (1, 1, 0)", ok, mismatch, missing)
	}
}

func TestAnalyzeTopN(t *testing.T) {
	series := models.AddressSeries{Address: "0xabc"}
	for i := 0; i < 5; i++ {
		series.Series = append(series.Series, pair("2024-01-01", 100, 50, float64(10+i), false))
	}
	cmp := &models.Comparison{Addresses: []models.AddressSeries{series}}

	dist := Analyze(cmp, false, 2)
	if len(dist.WorstPairs) != 2 {
		t.Errorf("worst pairs = %d, want top 2", len(dist.WorstPairs))
	}
	if dist.WorstPairs[0].Pct != 14 {
		t.Errorf("worst pair pct = %v, want 14", dist.WorstPairs[0].Pct)
	}
}
