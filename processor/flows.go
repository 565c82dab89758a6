package processor

import (
	"encoding/json"
	"sort"
	"strconv"

	"reconflow/models"
)

// ledgerKind is the tagged variant behind the ledger's open-world string
// tags. Everything the sign table does not cover collapses into kindIgnored.
type ledgerKind int

const (
	kindDeposit ledgerKind = iota
	kindWithdraw
	kindRewardsClaim
	kindSend
	kindAccountClassTransfer
	kindIgnored
)

func classifyKind(typ string) ledgerKind {
	switch typ {
	case "deposit":
		return kindDeposit
	case "withdraw":
		return kindWithdraw
	case "rewardsClaim":
		return kindRewardsClaim
	case "send":
		return kindSend
	case "accountClassTransfer":
		return kindAccountClassTransfer
	default:
		return kindIgnored
	}
}

// ledgerDelta is the union of the payload fields the sign table reads.
// json.Number keeps "missing" and "non-numeric" distinguishable from zero.
type ledgerDelta struct {
	Type           string      `json:"type"`
	USDC           json.Number `json:"usdc"`
	Amount         json.Number `json:"amount"`
	USDCValue      json.Number `json:"usdcValue"`
	SourceDex      *string     `json:"sourceDex"`
	DestinationDex *string     `json:"destinationDex"`
	ToPerp         bool        `json:"toPerp"`
}

// ExtractFlows turns a raw ledger record list into a time-ascending signed
// flow list. Records are deduplicated by full structural equality first, so
// cross-page duplicates never double-count. Records without a timestamp are
// dropped; unrecognized types and malformed amounts are skipped, not errors.
func ExtractFlows(records []models.LedgerRecord) []models.Flow {
	flows := make([]models.Flow, 0, len(records))

	for _, rec := range DedupRecords(records) {
		if rec.TimeMS == nil {
			continue
		}
		if flow, ok := recordFlow(rec); ok {
			flows = append(flows, flow)
		}
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].TimestampMS < flows[j].TimestampMS
	})
	return flows
}

// DedupRecords collapses records identical in content, keeping first-seen
// order. Records that cannot be canonicalized are kept as-is.
func DedupRecords(records []models.LedgerRecord) []models.LedgerRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.LedgerRecord, 0, len(records))
	for _, rec := range records {
		key, err := rec.CanonicalKey()
		if err != nil {
			out = append(out, rec)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func recordFlow(rec models.LedgerRecord) (models.Flow, bool) {
	var delta ledgerDelta
	if err := json.Unmarshal(rec.Delta, &delta); err != nil {
		return models.Flow{}, false
	}
	ts := *rec.TimeMS

	switch classifyKind(delta.Type) {
	case kindDeposit:
		amt, ok := numberValue(delta.USDC)
		if !ok {
			return models.Flow{}, false
		}
		return models.Flow{TimestampMS: ts, Amount: amt}, true

	case kindWithdraw:
		amt, ok := numberValue(delta.USDC)
		if !ok {
			return models.Flow{}, false
		}
		return models.Flow{TimestampMS: ts, Amount: -amt}, true

	case kindRewardsClaim:
		amt, ok := numberValue(delta.Amount)
		if !ok {
			return models.Flow{}, false
		}
		return models.Flow{TimestampMS: ts, Amount: amt}, true

	case kindSend:
		amt, ok := numberValue(delta.USDCValue)
		if !ok {
			if amt, ok = numberValue(delta.Amount); !ok {
				return models.Flow{}, false
			}
		}
		src := stringValue(delta.SourceDex)
		dst := stringValue(delta.DestinationDex)
		switch {
		case src == "" && dst == "spot":
			// perp → spot, money leaving the perp book
			return models.Flow{TimestampMS: ts, Amount: -amt}, true
		case src == "spot" && dst == "":
			// spot → perp, money entering the perp book
			return models.Flow{TimestampMS: ts, Amount: amt}, true
		default:
			return models.Flow{}, false
		}

	case kindAccountClassTransfer:
		amt, ok := numberValue(delta.USDC)
		if !ok {
			return models.Flow{}, false
		}
		if delta.ToPerp {
			return models.Flow{TimestampMS: ts, Amount: amt}, true
		}
		return models.Flow{TimestampMS: ts, Amount: -amt}, true

	case kindIgnored:
		return models.Flow{}, false
	}
	return models.Flow{}, false
}

func numberValue(n json.Number) (float64, bool) {
	if n == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
