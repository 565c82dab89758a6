package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDiffJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		diff Diff
		want string
	}{
		{"populated", DiffOf(10, 1.0101, false), `{"abs":10,"pct":1.0101,"match":false}`},
		{"absent", Diff{}, `{"abs":null,"pct":null,"match":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.diff)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("marshal = %s, want %s", data, tt.want)
			}

			var back Diff
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tt.diff {
				t.Errorf("round trip = %+v, want %+v", back, tt.diff)
			}
		})
	}
}

func TestDiffRejectsPartialNull(t *testing.T) {
	partials := []string{
		`{"abs":10,"pct":null,"match":null}`,
		`{"abs":null,"pct":1.5,"match":true}`,
		`{"abs":10,"pct":1.5,"match":null}`,
	}

	for _, raw := range partials {
		var d Diff
		err := json.Unmarshal([]byte(raw), &d)
		if err == nil {
			t.Errorf("expected error for partial diff %s", raw)
			continue
		}
		if !strings.Contains(err.Error(), "jointly") {
			t.Errorf("unexpected error for %s: %v", raw, err)
		}
	}
}
