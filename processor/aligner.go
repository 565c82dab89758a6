package processor

import (
	"time"

	"reconflow/models"
)

// DayShiftDays is the fixed calendar-day offset between the two sources'
// snapshot instants: Artemis snapshots shortly after midnight UTC, so its
// value for date D sits closest in time to Hyperliquid's last point on
// D−1. The shift is a declared systemic constant, never inferred from the
// data.
const DayShiftDays = 1

// BuildComparison produces the raw reconciliation artifact: for every
// supplied address and every window day, the latest Artemis observation at
// that date paired with the latest Hyperliquid observation one day earlier
// (the window's first day reaching back to the lookback bucket before the
// window), classified against the tolerance. Exactly one entry per
// (address, date).
func BuildComparison(addresses []string, table *models.ObservationTable, window models.Window, classifier Classifier) *models.Comparison {
	dates := window.Dates()

	out := &models.Comparison{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Days:        window.Days,
		Addresses:   make([]models.AddressSeries, 0, len(addresses)),
	}

	for _, addr := range addresses {
		series := make([]models.DayEntry, 0, len(dates))
		for _, date := range dates {
			series = append(series, buildEntry(addr, date, table, classifier))
		}
		out.Addresses = append(out.Addresses, models.AddressSeries{Address: addr, Series: series})
	}

	return out
}

func buildEntry(addr, date string, table *models.ObservationTable, classifier Classifier) models.DayEntry {
	day, _ := time.Parse(models.DateFormat, date)
	sourceDate := day.AddDate(0, 0, -DayShiftDays).Format(models.DateFormat)

	entry := models.DayEntry{
		Date:        date,
		Artemis:     models.AbsentSide(),
		Hyperliquid: models.AbsentSide().WithSourceDate(sourceDate),
	}

	art, artOK := Latest(table.Bucket(addr, date, models.SourceArtemis))
	if artOK {
		entry.Artemis = models.PresentSide(art.Value, art.TimestampMS)
	}

	hl, hlOK := Latest(table.Bucket(addr, sourceDate, models.SourceHyperliquid))
	if hlOK {
		entry.Hyperliquid = models.PresentSide(hl.Value, hl.TimestampMS).WithSourceDate(sourceDate)
	}

	if artOK && hlOK {
		entry.Diff = classifier.Compare(art.Value, hl.Value)
	}
	return entry
}
