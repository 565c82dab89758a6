package hyperliquid

import (
	"context"
	"sync"
	"time"

	"reconflow/logger"
	"reconflow/models"
)

// FetchPortfolios fans the portfolio fetch across a bounded worker pool and
// collects every in-window observation into a table bucketed by the point's
// UTC calendar day. A failed address is logged and skipped; its buckets stay
// empty and the run continues, so one flaky address never aborts the pass.
func (c *Client) FetchPortfolios(ctx context.Context, addresses []string, window models.Window, workers int) *models.ObservationTable {
	if workers < 1 {
		workers = 1
	}

	table := models.NewObservationTable()
	log := c.log.WithComponent("hyperliquid_reader")

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan string)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for address := range jobs {
				observations, err := c.Portfolio(ctx, address, window)
				if err != nil {
					log.WithFields(logger.Fields{"address": address}).WithError(err).Warn("portfolio fetch failed; address degraded")
					continue
				}

				mu.Lock()
				for _, obs := range observations {
					date := time.UnixMilli(obs.TimestampMS).UTC().Format(models.DateFormat)
					table.Add(address, date, models.SourceHyperliquid, obs)
				}
				mu.Unlock()

				logger.AddPortfolioPoints(len(observations))
				log.WithFields(logger.Fields{
					"address": address,
					"points":  len(observations),
				}).Debug("fetched portfolio history")
			}
		}()
	}

	for _, address := range addresses {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return table
		case jobs <- address:
		}
	}
	close(jobs)
	wg.Wait()

	return table
}
