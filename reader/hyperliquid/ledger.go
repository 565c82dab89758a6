package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"

	"reconflow/logger"
	"reconflow/models"
)

type ledgerRequest struct {
	Type      string `json:"type"`
	User      string `json:"user"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// Ledger fetches every non-funding ledger record for an address inside
// [startMS, endMS]. Pages are bounded by the configured page limit; the
// cursor advances to the maximum timestamp seen in the previous page and the
// loop stops on an empty page, a short page, or a page carrying no
// timestamps. Pages overlap at their boundary timestamp, so the returned
// list may contain duplicates; the flow extractor deduplicates.
func (c *Client) Ledger(ctx context.Context, address string, startMS, endMS int64) ([]models.LedgerRecord, error) {
	var all []models.LedgerRecord
	cursor := startMS

	for {
		page, err := c.ledgerPage(ctx, address, cursor, endMS)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if len(page) < c.pageLimit {
			break
		}

		maxSeen, found := int64(0), false
		for _, rec := range page {
			if rec.TimeMS != nil && (!found || *rec.TimeMS > maxSeen) {
				maxSeen, found = *rec.TimeMS, true
			}
		}
		if !found {
			break
		}
		cursor = maxSeen
	}

	logger.AddLedgerEvents(len(all))
	return all, nil
}

func (c *Client) ledgerPage(ctx context.Context, address string, startMS, endMS int64) ([]models.LedgerRecord, error) {
	body, err := c.post(ctx, ledgerRequest{
		Type:      "userNonFundingLedgerUpdates",
		User:      address,
		StartTime: startMS,
		EndTime:   endMS,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch ledger page for %s: %w", address, err)
	}

	var rawRecords []json.RawMessage
	if err := json.Unmarshal(body, &rawRecords); err != nil {
		// A non-list response means no ledger data for the range.
		return nil, nil
	}

	records := make([]models.LedgerRecord, 0, len(rawRecords))
	for _, raw := range rawRecords {
		rec, err := models.ParseLedgerRecord(raw)
		if err != nil {
			c.log.WithComponent("hyperliquid_ledger").WithError(err).Debug("skipping malformed ledger record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
