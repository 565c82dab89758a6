package models

import (
	"encoding/json"
	"fmt"
)

// Diff is the tolerance classification of one aligned pair. The three fields
// are jointly absent (one side of the pair was missing) or jointly populated;
// a partially-null diff cannot be constructed or decoded.
type Diff struct {
	present bool
	abs     float64
	pct     float64
	match   bool
}

// DiffOf builds a populated diff.
func DiffOf(abs, pct float64, match bool) Diff {
	return Diff{present: true, abs: abs, pct: pct, match: match}
}

// IsPresent reports whether the diff carries values. The zero Diff is absent.
func (d Diff) IsPresent() bool { return d.present }

func (d Diff) Abs() (float64, bool) { return d.abs, d.present }

func (d Diff) Pct() (float64, bool) { return d.pct, d.present }

func (d Diff) Match() (bool, bool) { return d.match, d.present }

type diffJSON struct {
	Abs   *float64 `json:"abs"`
	Pct   *float64 `json:"pct"`
	Match *bool    `json:"match"`
}

func (d Diff) MarshalJSON() ([]byte, error) {
	var out diffJSON
	if d.present {
		out.Abs = &d.abs
		out.Pct = &d.pct
		out.Match = &d.match
	}
	return json.Marshal(out)
}

func (d *Diff) UnmarshalJSON(data []byte) error {
	var in diffJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	populated := 0
	for _, set := range []bool{in.Abs != nil, in.Pct != nil, in.Match != nil} {
		if set {
			populated++
		}
	}
	switch populated {
	case 0:
		*d = Diff{}
	case 3:
		*d = DiffOf(*in.Abs, *in.Pct, *in.Match)
	default:
		return fmt.Errorf("diff fields must be jointly null or jointly populated")
	}
	return nil
}
