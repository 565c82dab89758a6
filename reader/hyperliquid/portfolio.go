package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"reconflow/models"
)

// portfolioPeriod is the history period the reconciliation reads. perpMonth
// covers the longest window the endpoint serves at daily resolution.
const portfolioPeriod = "perpMonth"

// lookbackDays is the extra margin fetched before the window start so the
// day-shift aligner can pair the window's first day against the previous
// calendar day.
const lookbackDays = 1

type portfolioRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type periodData struct {
	AccountValueHistory [][2]json.RawMessage `json:"accountValueHistory"`
}

// Portfolio fetches the account-value history for one address, filtered to
// the analysis window plus the one-day lookback. The response is a list of
// [period, data] pairs; only the perpMonth period is consumed.
func (c *Client) Portfolio(ctx context.Context, address string, window models.Window) ([]models.Observation, error) {
	body, err := c.post(ctx, portfolioRequest{Type: "portfolio", User: address})
	if err != nil {
		return nil, fmt.Errorf("fetch portfolio for %s: %w", address, err)
	}

	var periods [][2]json.RawMessage
	if err := json.Unmarshal(body, &periods); err != nil {
		return nil, fmt.Errorf("decode portfolio for %s: %w", address, err)
	}

	var history [][2]json.RawMessage
	for _, entry := range periods {
		var name string
		if err := json.Unmarshal(entry[0], &name); err != nil || name != portfolioPeriod {
			continue
		}
		var data periodData
		if err := json.Unmarshal(entry[1], &data); err != nil {
			return nil, fmt.Errorf("decode %s history for %s: %w", portfolioPeriod, address, err)
		}
		history = data.AccountValueHistory
		break
	}

	observations := make([]models.Observation, 0, len(history))
	for _, point := range history {
		obs, ok := parsePoint(point)
		if !ok {
			continue
		}
		if !window.Contains(time.UnixMilli(obs.TimestampMS), lookbackDays) {
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// parsePoint decodes one [timestamp_ms, value] pair; the value arrives as a
// decimal string.
func parsePoint(point [2]json.RawMessage) (models.Observation, bool) {
	var ts int64
	if err := json.Unmarshal(point[0], &ts); err != nil {
		return models.Observation{}, false
	}

	var valueStr string
	if err := json.Unmarshal(point[1], &valueStr); err != nil {
		// Tolerate a bare number as well.
		var valueNum float64
		if err := json.Unmarshal(point[1], &valueNum); err != nil {
			return models.Observation{}, false
		}
		return models.Observation{TimestampMS: ts, Value: valueNum}, true
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return models.Observation{}, false
	}
	return models.Observation{TimestampMS: ts, Value: value}, true
}
