package artemis

import (
	"strings"

	"reconflow/models"
)

// FromArtifact rebuilds the Artemis observation buckets from a previously
// written comparison artifact, so a re-run can skip the S3 download. Only
// days with a present observation contribute; the Hyperliquid side is
// always re-fetched and is not reloaded here.
func FromArtifact(cmp *models.Comparison) *models.ObservationTable {
	table := models.NewObservationTable()
	for _, addr := range cmp.Addresses {
		address := strings.ToLower(addr.Address)
		for _, day := range addr.Series {
			value, ok := day.Artemis.Value()
			if !ok {
				continue
			}
			ts, _ := day.Artemis.TimestampMS()
			table.Add(address, day.Date, models.SourceArtemis, models.Observation{
				TimestampMS: ts,
				Value:       value,
			})
		}
	}
	return table
}
