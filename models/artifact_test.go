package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSidePointJSON(t *testing.T) {
	t.Run("present with source date", func(t *testing.T) {
		p := PresentSide(990000, 1704100000000).WithSourceDate("2024-01-01")
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		want := `{"value":990000,"last_timestamp":1704100000000,"source_date":"2024-01-01"}`
		if string(data) != want {
			t.Errorf("marshal = %s, want %s", data, want)
		}

		var back SidePoint
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if back != p {
			t.Errorf("round trip = %+v, want %+v", back, p)
		}
	})

	t.Run("absent omits source date", func(t *testing.T) {
		data, err := json.Marshal(AbsentSide())
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(data) != `{"value":null,"last_timestamp":null}` {
			t.Errorf("marshal = %s", data)
		}
	})

	t.Run("partial null rejected", func(t *testing.T) {
		var p SidePoint
		err := json.Unmarshal([]byte(`{"value":100,"last_timestamp":null}`), &p)
		if err == nil || !strings.Contains(err.Error(), "jointly") {
			t.Errorf("expected joint-null error, got %v", err)
		}
	})
}

func TestNormalizedPointJSON(t *testing.T) {
	p := NormalizedPoint{
		Side:           PresentSide(1000000, 1704100000000).WithSourceDate("2024-01-01"),
		FlowAdjustment: 10000,
		EventsInGap:    1,
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"value":1000000,"last_timestamp":1704100000000,"source_date":"2024-01-01","flow_adjustment":10000,"events_in_gap":1}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	var back NormalizedPoint
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != p {
		t.Errorf("round trip = %+v, want %+v", back, p)
	}

	var bad NormalizedPoint
	err = json.Unmarshal([]byte(`{"value":null,"last_timestamp":5,"flow_adjustment":0,"events_in_gap":0}`), &bad)
	if err == nil {
		t.Errorf("expected joint-null error")
	}
}

func TestComparisonJSONShape(t *testing.T) {
	cmp := Comparison{
		GeneratedAt: "2024-01-31T00:00:00Z",
		Days:        1,
		Addresses: []AddressSeries{{
			Address: "0xabc",
			Series: []DayEntry{{
				Date:        "2024-01-02",
				Artemis:     PresentSide(1000000, 1704200000000),
				Hyperliquid: AbsentSide().WithSourceDate("2024-01-01"),
			}},
		}},
	}

	data, err := json.Marshal(cmp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)

	// Normalized blocks are omitted before the normalize pass runs.
	if strings.Contains(text, "hyperliquid_normalized") || strings.Contains(text, "diff_normalized") {
		t.Errorf("unnormalized artifact must omit normalized blocks: %s", text)
	}
	if !strings.Contains(text, `"diff":{"abs":null,"pct":null,"match":null}`) {
		t.Errorf("missing-side diff must serialize as jointly null: %s", text)
	}
	if !strings.Contains(text, `"source_date":"2024-01-01"`) {
		t.Errorf("absent hyperliquid side keeps its source_date: %s", text)
	}

	var back Comparison
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Addresses[0].Series[0].Hyperliquid.IsPresent() {
		t.Errorf("absent side must stay absent after round trip")
	}
}
