package report

import (
	"fmt"
	"io"
	"strings"
)

// Render writes the bucket table, worst-pair ranking, and per-address
// mismatch ranking as plain text tables.
func Render(w io.Writer, dist *Distribution) {
	renderBuckets(w, dist)
	renderWorstPairs(w, dist)
	renderWorstAddresses(w, dist)
}

func renderBuckets(w io.Writer, dist *Distribution) {
	rule := strings.Repeat("=", 65)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "MISMATCH DISTRIBUTION")
	fmt.Fprintf(w, "  Total compared pairs : %d\n", dist.TotalCompared)
	fmt.Fprintf(w, "  Missing (one side)   : %d\n", dist.Missing)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-20s %8s %8s  Bar\n", "Bucket", "Count", "%")
	fmt.Fprintln(w, strings.Repeat("-", 65))
	for _, bucket := range Buckets {
		count := dist.BucketCounts[bucket.Label]
		pctOfTotal := 0.0
		if dist.TotalCompared > 0 {
			pctOfTotal = float64(count) / float64(dist.TotalCompared) * 100
		}
		bar := strings.Repeat("#", int(pctOfTotal/2))
		fmt.Fprintf(w, "%-20s %8d %7.1f%%  %s\n", bucket.Label, count, pctOfTotal, bar)
	}
	fmt.Fprintln(w, strings.Repeat("-", 65))
}

func renderWorstPairs(w io.Writer, dist *Distribution) {
	if len(dist.WorstPairs) == 0 {
		return
	}
	fmt.Fprintf(w, "\nTOP %d WORST SINGLE-DAY MISMATCHES\n", len(dist.WorstPairs))
	fmt.Fprintf(w, "%-14s %-12s %14s %14s %8s\n", "Address", "Date", "Artemis", "Hyperliquid", "Diff%")
	fmt.Fprintln(w, strings.Repeat("-", 65))
	for _, p := range dist.WorstPairs {
		fmt.Fprintf(w, "%-14s %-12s %14.0f %14.0f %7.1f%%\n",
			shortAddress(p.Address), p.Date, p.Artemis, p.Hyperliquid, p.Pct)
	}
}

func renderWorstAddresses(w io.Writer, dist *Distribution) {
	if len(dist.WorstAddrs) == 0 {
		return
	}
	fmt.Fprintf(w, "\nTOP %d ADDRESSES BY MISMATCH DAY COUNT\n", len(dist.WorstAddrs))
	fmt.Fprintf(w, "%-44s %14s %10s\n", "Address", "Mismatch days", "Avg pct%")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, rank := range dist.WorstAddrs {
		fmt.Fprintf(w, "%-44s %14d %9.1f%%\n", rank.Address, rank.MismatchDays, rank.MeanPct)
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:12] + ".."
}
