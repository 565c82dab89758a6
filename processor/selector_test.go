package processor

import (
	"testing"

	"reconflow/models"
)

func TestLatestPicksMaxTimestamp(t *testing.T) {
	bucket := []models.Observation{
		{TimestampMS: 100, Value: 1},
		{TimestampMS: 50, Value: 2},
		{TimestampMS: 300, Value: 3},
	}

	obs, ok := Latest(bucket)
	if !ok {
		t.Fatalf("expected an observation")
	}
	if obs.TimestampMS != 300 {
		t.Errorf("expected timestamp 300, got %d", obs.TimestampMS)
	}
	if obs.Value != 3 {
		t.Errorf("expected value 3, got %v", obs.Value)
	}
}

func TestLatestEmptyBucket(t *testing.T) {
	if _, ok := Latest(nil); ok {
		t.Errorf("expected no observation for an empty bucket")
	}
}
