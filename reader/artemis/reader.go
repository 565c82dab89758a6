// Package artemis fetches daily perp balance snapshots from the Artemis S3
// bucket, the ground-truth side of the reconciliation.
package artemis

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "reconflow/config"
	"reconflow/logger"
	"reconflow/models"
)

// Reader lists and downloads snapshot files for each window day. A day with
// no files is an empty bucket, not an error; a day whose listing or
// downloads fail degrades to whatever records were parsed.
type Reader struct {
	cfg    *appconfig.Config
	client *s3.Client
	payer  s3types.RequestPayer
	log    *logger.Log
}

func NewReader(ctx context.Context, cfg *appconfig.Config) (*Reader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(cfg.Artemis.MaxAttempts),
		awsconfig.WithHTTPClient(&http.Client{Timeout: cfg.Artemis.ReadTimeout}),
	}
	if cfg.Artemis.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Artemis.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	var payer s3types.RequestPayer
	if cfg.Artemis.RequesterPays {
		payer = s3types.RequestPayerRequester
	}

	return &Reader{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg),
		payer:  payer,
		log:    logger.GetLogger(),
	}, nil
}

// FetchWindow downloads every snapshot file for every window day and returns
// the observation table filled with records for the supplied addresses.
func (r *Reader) FetchWindow(ctx context.Context, addresses []string, window models.Window) (*models.ObservationTable, error) {
	wallets := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		wallets[strings.ToLower(addr)] = struct{}{}
	}

	table := models.NewObservationTable()
	log := r.log.WithComponent("artemis_reader")

	for cur := window.Start; !cur.After(window.End); cur = cur.AddDate(0, 0, 1) {
		date := cur.Format(models.DateFormat)

		keys := r.listDay(ctx, cur)
		if len(keys) == 0 {
			log.WithFields(logger.Fields{"date": date}).Debug("no snapshot files for day")
			continue
		}

		records := 0
		for _, key := range keys {
			n, err := r.fetchFile(ctx, key, date, wallets, table)
			if err != nil {
				log.WithFields(logger.Fields{"key": key}).WithError(err).Warn("failed to download snapshot file")
				continue
			}
			records += n
		}

		logger.AddSnapshotRecords(records)
		log.WithFields(logger.Fields{
			"date":    date,
			"files":   len(keys),
			"records": records,
		}).Info("fetched artemis day")
	}

	return table, nil
}

// listDay returns the sorted .jsonl keys under the day's prefix. Listing
// failures degrade to an empty day.
func (r *Reader) listDay(ctx context.Context, day time.Time) []string {
	prefix := fmt.Sprintf("%s%d/%02d/%02d/", r.cfg.Artemis.Prefix, day.Year(), int(day.Month()), day.Day())

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:       aws.String(r.cfg.Artemis.Bucket),
		Prefix:       aws.String(prefix),
		RequestPayer: r.payer,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.log.WithComponent("artemis_reader").WithFields(logger.Fields{
				"prefix": prefix,
			}).WithError(err).Warn("failed to list snapshot files")
			return nil
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && strings.HasSuffix(*obj.Key, ".jsonl") {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys
}

func (r *Reader) fetchFile(ctx context.Context, key, date string, wallets map[string]struct{}, table *models.ObservationTable) (int, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:       aws.String(r.cfg.Artemis.Bucket),
		Key:          aws.String(key),
		RequestPayer: r.payer,
	})
	if err != nil {
		return 0, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	records := parseSnapshot(out.Body, wallets)
	for _, rec := range records {
		table.Add(rec.Address, date, models.SourceArtemis, models.Observation{
			TimestampMS: rec.TimestampMS,
			Value:       rec.Value,
		})
	}
	return len(records), nil
}
