package processor

import "reconflow/models"

// NormalizeEntry adjusts one pair's Hyperliquid value by the net flow inside
// the snapshot gap and re-classifies the pair. The gap window is open at the
// Hyperliquid snapshot and closed at the Artemis snapshot: (hl_ts, art_ts].
//
// When either value or either timestamp is missing the pass is a no-op: the
// normalized value mirrors the raw value, the adjustment is zero and the
// normalized diff is the raw diff verbatim. The pass never fabricates a
// value where one was missing, so re-running it against the same flow list
// is idempotent.
func NormalizeEntry(entry *models.DayEntry, flows []models.Flow, classifier Classifier) {
	hlValue, hlOK := entry.Hyperliquid.Value()
	hlTS, _ := entry.Hyperliquid.TimestampMS()
	artValue, artOK := entry.Artemis.Value()
	artTS, _ := entry.Artemis.TimestampMS()

	if !hlOK || !artOK {
		fallbackEntry(entry)
		return
	}

	netFlow := 0.0
	eventsInGap := 0
	for _, f := range flows {
		if f.TimestampMS > hlTS && f.TimestampMS <= artTS {
			netFlow += f.Amount
			eventsInGap++
		}
	}

	normalized := hlValue + netFlow
	entry.HyperliquidNormalized = &models.NormalizedPoint{
		Side:           models.PresentSide(roundTo(normalized, 6), hlTS).WithSourceDate(entry.Hyperliquid.SourceDate()),
		FlowAdjustment: roundTo(netFlow, 6),
		EventsInGap:    eventsInGap,
	}

	diff := classifier.CompareNormalized(artValue, normalized)
	entry.DiffNormalized = &diff
}

// NormalizeSeries runs NormalizeEntry over every day of one address's
// series. Fallback applies the no-op path to every entry, used when the
// ledger could not be fetched for the address.
func NormalizeSeries(series *models.AddressSeries, flows []models.Flow, classifier Classifier) {
	for i := range series.Series {
		NormalizeEntry(&series.Series[i], flows, classifier)
	}
}

// Fallback marks every entry of the series as not normalized: adjustments
// zero, normalized diff copied from the raw diff.
func Fallback(series *models.AddressSeries) {
	for i := range series.Series {
		fallbackEntry(&series.Series[i])
	}
}

// SeriesTimestampRange returns the min and max snapshot timestamps across
// both sources of one address's series, bounding the ledger fetch for that
// address. ok is false when the series carries no timestamps at all, in
// which case the ledger fetch is skipped and the series takes the fallback
// path.
func SeriesTimestampRange(series *models.AddressSeries) (minMS, maxMS int64, ok bool) {
	for _, day := range series.Series {
		for _, side := range []models.SidePoint{day.Artemis, day.Hyperliquid} {
			ts, present := side.TimestampMS()
			if !present || ts == 0 {
				continue
			}
			if !ok || ts < minMS {
				minMS = ts
			}
			if !ok || ts > maxMS {
				maxMS = ts
			}
			ok = true
		}
	}
	return minMS, maxMS, ok
}

func fallbackEntry(entry *models.DayEntry) {
	entry.HyperliquidNormalized = &models.NormalizedPoint{
		Side:           entry.Hyperliquid,
		FlowAdjustment: 0,
		EventsInGap:    0,
	}
	diff := entry.Diff
	entry.DiffNormalized = &diff
}
