package processor

import "reconflow/models"

// Latest returns the observation with the greatest timestamp from one
// address/date/source bucket, encoding the policy that a day's
// representative value is its last known value. The boolean is false for an
// empty bucket.
func Latest(bucket []models.Observation) (models.Observation, bool) {
	if len(bucket) == 0 {
		return models.Observation{}, false
	}
	latest := bucket[0]
	for _, obs := range bucket[1:] {
		if obs.TimestampMS > latest.TimestampMS {
			latest = obs
		}
	}
	return latest, true
}
