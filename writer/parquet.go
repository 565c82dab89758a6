package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "reconflow/config"
	"reconflow/logger"
	"reconflow/models"
)

// PairRecord is one classified pair flattened for the parquet export.
// Pre-normalization fields are null for missing pairs; normalized fields are
// null until the normalize pass has run.
type PairRecord struct {
	RunID             string   `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Address           string   `parquet:"name=address, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date              string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtemisValue      *float64 `parquet:"name=artemis_value, type=DOUBLE, repetitiontype=OPTIONAL"`
	HyperliquidValue  *float64 `parquet:"name=hyperliquid_value, type=DOUBLE, repetitiontype=OPTIONAL"`
	AbsDiff           *float64 `parquet:"name=abs_diff, type=DOUBLE, repetitiontype=OPTIONAL"`
	PctDiff           *float64 `parquet:"name=pct_diff, type=DOUBLE, repetitiontype=OPTIONAL"`
	Match             *bool    `parquet:"name=match, type=BOOLEAN, repetitiontype=OPTIONAL"`
	NormalizedValue   *float64 `parquet:"name=normalized_value, type=DOUBLE, repetitiontype=OPTIONAL"`
	FlowAdjustment    *float64 `parquet:"name=flow_adjustment, type=DOUBLE, repetitiontype=OPTIONAL"`
	EventsInGap       *int32   `parquet:"name=events_in_gap, type=INT32, repetitiontype=OPTIONAL"`
	PctDiffNormalized *float64 `parquet:"name=pct_diff_normalized, type=DOUBLE, repetitiontype=OPTIONAL"`
	MatchNormalized   *bool    `parquet:"name=match_normalized, type=BOOLEAN, repetitiontype=OPTIONAL"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory writing.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) { return mfw.buffer.Read(b) }

func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }

func (mfw *memoryFileWriter) Close() error { return nil }

func (mfw *memoryFileWriter) Bytes() []byte { return mfw.buffer.Bytes() }

// FlattenPairs converts the artifact into flat export records, one per
// address-day pair, tagged with the run ID.
func FlattenPairs(cmp *models.Comparison, runID string) []PairRecord {
	records := make([]PairRecord, 0, len(cmp.Addresses)*cmp.Days)
	for _, addr := range cmp.Addresses {
		for _, day := range addr.Series {
			rec := PairRecord{
				RunID:   runID,
				Address: addr.Address,
				Date:    day.Date,
			}
			if v, ok := day.Artemis.Value(); ok {
				rec.ArtemisValue = &v
			}
			if v, ok := day.Hyperliquid.Value(); ok {
				rec.HyperliquidValue = &v
			}
			if v, ok := day.Diff.Abs(); ok {
				rec.AbsDiff = &v
			}
			if v, ok := day.Diff.Pct(); ok {
				rec.PctDiff = &v
			}
			if v, ok := day.Diff.Match(); ok {
				rec.Match = &v
			}
			if norm := day.HyperliquidNormalized; norm != nil {
				if v, ok := norm.Side.Value(); ok {
					rec.NormalizedValue = &v
				}
				adj := norm.FlowAdjustment
				rec.FlowAdjustment = &adj
				events := int32(norm.EventsInGap)
				rec.EventsInGap = &events
			}
			if day.DiffNormalized != nil {
				if v, ok := day.DiffNormalized.Pct(); ok {
					rec.PctDiffNormalized = &v
				}
				if v, ok := day.DiffNormalized.Match(); ok {
					rec.MatchNormalized = &v
				}
			}
			records = append(records, rec)
		}
	}
	return records
}

// ExportParquet writes the flattened pairs to the configured parquet file
// and optionally uploads the same bytes to S3. Export failures are reported
// but never gate the run.
func ExportParquet(ctx context.Context, cfg *appconfig.Config, cmp *models.Comparison, runID string) error {
	log := logger.GetLogger().WithComponent("parquet_export")

	records := FlattenPairs(cmp, runID)
	memFile := newMemoryFileWriter()

	pw, err := parquetwriter.NewParquetWriter(memFile, new(PairRecord), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(cfg.Export.Parquet.Compression)

	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}

	data := memFile.Bytes()
	if err := os.WriteFile(cfg.Export.Parquet.Path, data, 0644); err != nil {
		return fmt.Errorf("write parquet file: %w", err)
	}

	log.WithFields(logger.Fields{
		"path":    cfg.Export.Parquet.Path,
		"records": len(records),
		"bytes":   len(data),
	}).Info("parquet export written")

	if cfg.Export.S3.Enabled {
		if err := uploadExport(ctx, cfg, data, runID); err != nil {
			return fmt.Errorf("upload parquet export: %w", err)
		}
	}
	return nil
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch strings.ToLower(name) {
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "zstd":
		return parquet.CompressionCodec_ZSTD
	case "none", "uncompressed":
		return parquet.CompressionCodec_UNCOMPRESSED
	default:
		return parquet.CompressionCodec_SNAPPY
	}
}

func uploadExport(ctx context.Context, cfg *appconfig.Config, data []byte, runID string) error {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Export.S3.Region)}
	if cfg.Export.S3.AccessKeyID != "" && cfg.Export.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Export.S3.AccessKeyID,
				cfg.Export.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)

	key := fmt.Sprintf("%s%s/pairs-%s.parquet",
		cfg.Export.S3.Prefix,
		time.Now().UTC().Format("2006/01/02"),
		runID,
	)
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.Export.S3.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}); err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	logger.GetLogger().WithComponent("parquet_export").WithFields(logger.Fields{
		"bucket": cfg.Export.S3.Bucket,
		"key":    key,
	}).Info("parquet export uploaded")
	return nil
}
