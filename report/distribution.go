// Package report buckets classified pairs by percentage-diff magnitude and
// ranks the worst offenders.
package report

import (
	"math"
	"sort"

	"reconflow/models"
)

// Bucket is one half-open [Lo, Hi) interval of the distribution table.
type Bucket struct {
	Label string
	Lo    float64
	Hi    float64
}

// Buckets is the fixed, ordered distribution table. Intervals are
// contiguous and non-overlapping; assignment scans in order and takes the
// first match.
var Buckets = []Bucket{
	{"OK (< 0.5%)", 0, 0.5},
	{"0.5% - 1%", 0.5, 1},
	{"1% - 5%", 1, 5},
	{"5% - 10%", 5, 10},
	{"10% - 25%", 10, 25},
	{"25% - 50%", 25, 50},
	{"50% - 100%", 50, 100},
	{"100% - 250%", 100, 250},
	{"250% - 500%", 250, 500},
	{"> 500%", 500, math.Inf(1)},
}

// Point is one classified pair with both sides present.
type Point struct {
	Address     string
	Date        string
	Artemis     float64
	Hyperliquid float64
	Abs         float64
	Pct         float64
	Match       bool
}

// AddressRank is one address's mismatch summary.
type AddressRank struct {
	Address      string
	MismatchDays int
	MeanPct      float64
}

// Distribution is the full analysis of one artifact.
type Distribution struct {
	TotalCompared int
	Missing       int
	BucketCounts  map[string]int
	WorstPairs    []Point
	WorstAddrs    []AddressRank
}

// Analyze buckets every classified pair and ranks the worst pairs and
// addresses. With normalized set, pairs use their post-normalization diff,
// falling back to the raw diff for pairs never normalized. Pairs with one
// side missing are counted separately and excluded from bucketing and
// ranking.
func Analyze(cmp *models.Comparison, normalized bool, topN int) *Distribution {
	dist := &Distribution{BucketCounts: make(map[string]int)}

	var points []Point
	mismatchesByAddr := make(map[string][]Point)

	for _, addr := range cmp.Addresses {
		for _, day := range addr.Series {
			diff := day.Diff
			value, valueOK := day.Hyperliquid.Value()
			if normalized {
				if day.DiffNormalized != nil {
					diff = *day.DiffNormalized
				}
				if day.HyperliquidNormalized != nil {
					if v, ok := day.HyperliquidNormalized.Side.Value(); ok {
						value, valueOK = v, true
					}
				}
			}

			pct, ok := diff.Pct()
			if !ok {
				dist.Missing++
				continue
			}
			abs, _ := diff.Abs()
			match, _ := diff.Match()
			artValue, _ := day.Artemis.Value()
			if !valueOK {
				value = 0
			}

			point := Point{
				Address:     addr.Address,
				Date:        day.Date,
				Artemis:     artValue,
				Hyperliquid: value,
				Abs:         abs,
				Pct:         pct,
				Match:       match,
			}
			points = append(points, point)

			for _, bucket := range Buckets {
				if pct >= bucket.Lo && pct < bucket.Hi {
					dist.BucketCounts[bucket.Label]++
					break
				}
			}

			if !match {
				mismatchesByAddr[addr.Address] = append(mismatchesByAddr[addr.Address], point)
			}
		}
	}

	dist.TotalCompared = len(points)

	sort.Slice(points, func(i, j int) bool { return points[i].Pct > points[j].Pct })
	if len(points) > topN {
		points = points[:topN]
	}
	dist.WorstPairs = points

	for address, mismatches := range mismatchesByAddr {
		sum := 0.0
		for _, p := range mismatches {
			sum += p.Pct
		}
		dist.WorstAddrs = append(dist.WorstAddrs, AddressRank{
			Address:      address,
			MismatchDays: len(mismatches),
			MeanPct:      sum / float64(len(mismatches)),
		})
	}
	sort.Slice(dist.WorstAddrs, func(i, j int) bool {
		return dist.WorstAddrs[i].MismatchDays > dist.WorstAddrs[j].MismatchDays
	})
	if len(dist.WorstAddrs) > topN {
		dist.WorstAddrs = dist.WorstAddrs[:topN]
	}

	return dist
}

// MatchCounts tallies match/mismatch/missing across the artifact, using the
// normalized diff when requested (with raw fallback for pairs never
// normalized).
func MatchCounts(cmp *models.Comparison, normalized bool) (ok, mismatch, missing int) {
	for _, addr := range cmp.Addresses {
		for _, day := range addr.Series {
			diff := day.Diff
			if normalized && day.DiffNormalized != nil {
				diff = *day.DiffNormalized
			}
			match, present := diff.Match()
			switch {
			case !present:
				missing++
			case match:
				ok++
			default:
				mismatch++
			}
		}
	}
	return ok, mismatch, missing
}
