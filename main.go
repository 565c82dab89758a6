package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	appconfig "reconflow/config"
	"reconflow/internal/entities"
	"reconflow/logger"
	"reconflow/models"
	"reconflow/processor"
	"reconflow/reader/artemis"
	"reconflow/reader/hyperliquid"
	"reconflow/report"
	"reconflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(subcommands.HelpCommand(), "")
	commander.Register(subcommands.FlagsCommand(), "")
	commander.Register(&extractCmd{}, "pipeline")
	commander.Register(&normalizeCmd{}, "pipeline")
	commander.Register(&analyzeCmd{}, "pipeline")
	commander.Register(&runCmd{}, "pipeline")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// setup loads the configuration and configures logging and metrics. Any
// error here is fatal to the command.
func setup(configPath string) (*appconfig.Config, *logger.Log, error) {
	log := logger.GetLogger()

	cfg, err := appconfig.LoadConfig(appconfig.ResolveConfigPath(configPath))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		return nil, nil, fmt.Errorf("failed to configure logger: %w", err)
	}

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(
			cfg.Metrics.CloudWatch.Region,
			cfg.Metrics.CloudWatch.Namespace,
			cfg.Metrics.CloudWatch.Dashboard,
		)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Reconflow.Name,
		"version": cfg.Reconflow.Version,
		"env":     appconfig.AppEnvironment(),
	}).Info("starting reconflow")

	return cfg, log, nil
}

func analysisWindow(cfg *appconfig.Config) (models.Window, error) {
	end := time.Now().UTC()
	if cfg.Window.End != "" {
		parsed, err := time.Parse(models.DateFormat, cfg.Window.End)
		if err != nil {
			return models.Window{}, fmt.Errorf("invalid window.end: %w", err)
		}
		end = parsed
	}
	return models.NewWindow(end, cfg.Window.Days), nil
}

// extract builds the raw comparison artifact: Artemis buckets (from S3 or
// the cached artifact), Hyperliquid portfolio buckets, alignment and the
// first classification pass.
func extract(ctx context.Context, cfg *appconfig.Config, log *logger.Log, refetch bool) (*models.Comparison, error) {
	window, err := analysisWindow(cfg)
	if err != nil {
		return nil, err
	}

	addresses, err := entities.Load(cfg.Entities.File)
	if err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"addresses": len(addresses),
		"start":     window.Start.Format(models.DateFormat),
		"end":       window.End.Format(models.DateFormat),
		"days":      window.Days,
	}).Info("extract window resolved")

	var table *models.ObservationTable
	if !refetch && writer.ArtifactExists(cfg.Artifact.RawPath) {
		cached, err := writer.LoadArtifact(cfg.Artifact.RawPath)
		if err != nil {
			return nil, err
		}
		table = artemis.FromArtifact(cached)
		log.WithFields(logger.Fields{
			"path":    cfg.Artifact.RawPath,
			"buckets": table.Len(),
		}).Info("reusing artemis data from existing artifact")
	} else {
		reader, err := artemis.NewReader(ctx, cfg)
		if err != nil {
			return nil, err
		}
		table, err = reader.FetchWindow(ctx, addresses, window)
		if err != nil {
			return nil, err
		}
	}

	client := hyperliquid.NewClient(cfg)
	table.Merge(client.FetchPortfolios(ctx, addresses, window, cfg.Hyperliquid.Workers))

	classifier := processor.NewClassifier(cfg.Window.TolerancePct)
	cmp := processor.BuildComparison(addresses, table, window, classifier)
	logger.AddPairsCompared(len(addresses) * window.Days)

	if err := writer.WriteArtifact(cfg.Artifact.RawPath, cmp); err != nil {
		return nil, err
	}

	ok, mismatch, missing := report.MatchCounts(cmp, false)
	fmt.Printf("Extract complete: %d addresses x %d days\n", len(addresses), window.Days)
	fmt.Printf("  OK (< %.1f%%): %d\n", cfg.Window.TolerancePct, ok)
	fmt.Printf("  Mismatch   : %d\n", mismatch)
	fmt.Printf("  Missing    : %d\n", missing)

	return cmp, nil
}

// normalize re-reads the raw artifact, adjusts every pair by the ledger
// flows inside its snapshot gap, re-classifies, and writes the normalized
// artifact. Per-address ledger failures degrade that address only.
func normalize(ctx context.Context, cfg *appconfig.Config, log *logger.Log, cmp *models.Comparison) (*models.Comparison, error) {
	client := hyperliquid.NewClient(cfg)
	classifier := processor.NewClassifier(cfg.Window.TolerancePct)
	nlog := log.WithComponent("normalize")

	for i := range cmp.Addresses {
		series := &cmp.Addresses[i]

		startMS, endMS, ok := processor.SeriesTimestampRange(series)
		if !ok {
			nlog.WithFields(logger.Fields{"address": series.Address}).Info("no timestamps; skipping ledger fetch")
			processor.Fallback(series)
			continue
		}

		records, err := client.Ledger(ctx, series.Address, startMS, endMS)
		if err != nil {
			nlog.WithFields(logger.Fields{"address": series.Address}).WithError(err).Warn("ledger fetch failed; address degraded")
			processor.Fallback(series)
			continue
		}

		flows := processor.ExtractFlows(records)
		logger.AddFlows(len(flows))
		processor.NormalizeSeries(series, flows, classifier)

		nlog.WithFields(logger.Fields{
			"address": series.Address,
			"events":  len(records),
			"flows":   len(flows),
		}).Debug("address normalized")
	}

	cmp.GeneratedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := writer.WriteArtifact(cfg.Artifact.NormalizedPath, cmp); err != nil {
		return nil, err
	}

	okBefore, mismatchBefore, missing := report.MatchCounts(cmp, false)
	okAfter, mismatchAfter, _ := report.MatchCounts(cmp, true)
	fmt.Println("Normalization summary:")
	fmt.Printf("  Before:  OK=%d  Mismatch=%d\n", okBefore, mismatchBefore)
	fmt.Printf("  After :  OK=%d  Mismatch=%d\n", okAfter, mismatchAfter)
	fmt.Printf("  Fixed :  %d pairs\n", okAfter-okBefore)
	fmt.Printf("  Missing (one side): %d\n", missing)

	export(ctx, cfg, log, cmp)
	return cmp, nil
}

// export runs the optional parquet and Kafka sinks. Failures are logged and
// never gate the run.
func export(ctx context.Context, cfg *appconfig.Config, log *logger.Log, cmp *models.Comparison) {
	runID := uuid.New().String()

	if cfg.Export.Parquet.Enabled {
		if err := writer.ExportParquet(ctx, cfg, cmp, runID); err != nil {
			log.WithComponent("export").WithError(err).Warn("parquet export failed")
		}
	}

	if cfg.Export.Kafka.Enabled {
		publisher, err := writer.NewMismatchPublisher(cfg)
		if err != nil {
			log.WithComponent("export").WithError(err).Warn("kafka publisher unavailable")
			return
		}
		defer publisher.Close()
		if err := publisher.Publish(ctx, cmp, runID); err != nil {
			log.WithComponent("export").WithError(err).Warn("kafka publish failed")
		}
	}
}

func analyze(cfg *appconfig.Config, normalized bool) error {
	artifactPath := cfg.Artifact.RawPath
	if normalized {
		artifactPath = cfg.Artifact.NormalizedPath
	}

	cmp, err := writer.LoadArtifact(artifactPath)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %s (generated %s)\n\n", artifactPath, cmp.GeneratedAt)
	dist := report.Analyze(cmp, normalized, cfg.Report.TopN)
	report.Render(os.Stdout, dist)
	return nil
}

type extractCmd struct {
	configPath string
	refetch    bool
}

func (*extractCmd) Name() string     { return "extract" }
func (*extractCmd) Synopsis() string { return "fetch both sources and build the raw comparison artifact" }
func (*extractCmd) Usage() string {
	return `reconflow extract [-config <path>] [-refetch]

  Fetches Artemis S3 snapshots (or reuses them from an existing artifact)
  and Hyperliquid portfolio histories, aligns them under the one-day shift,
  classifies every pair and writes the raw artifact.
`
}

func (c *extractCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "config/config.yml", "Path to configuration file")
	f.BoolVar(&c.refetch, "refetch", false, "Force re-download from S3 even when a cached artifact exists")
}

func (c *extractCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg, log, err := setup(c.configPath)
	if err != nil {
		logger.GetLogger().WithError(err).Error("extract failed")
		return subcommands.ExitFailure
	}
	if _, err := extract(ctx, cfg, log, c.refetch); err != nil {
		log.WithError(err).Error("extract failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type normalizeCmd struct {
	configPath string
}

func (*normalizeCmd) Name() string     { return "normalize" }
func (*normalizeCmd) Synopsis() string { return "adjust the raw artifact by ledger flows in each snapshot gap" }
func (*normalizeCmd) Usage() string {
	return `reconflow normalize [-config <path>]

  Reads the raw artifact, fetches ledger events per address, adds the net
  flow inside each pair's snapshot gap to the Hyperliquid value,
  re-classifies and writes the normalized artifact.
`
}

func (c *normalizeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "config/config.yml", "Path to configuration file")
}

func (c *normalizeCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg, log, err := setup(c.configPath)
	if err != nil {
		logger.GetLogger().WithError(err).Error("normalize failed")
		return subcommands.ExitFailure
	}
	cmp, err := writer.LoadArtifact(cfg.Artifact.RawPath)
	if err != nil {
		log.WithError(err).Error("normalize failed")
		return subcommands.ExitFailure
	}
	if _, err := normalize(ctx, cfg, log, cmp); err != nil {
		log.WithError(err).Error("normalize failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type analyzeCmd struct {
	configPath string
	normalized bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "print the mismatch distribution and worst offenders" }
func (*analyzeCmd) Usage() string {
	return `reconflow analyze [-config <path>] [-normalized]

  Buckets every classified pair by diff percentage and prints the
  distribution, the worst single-day mismatches, and the addresses with
  the most mismatch days.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "config/config.yml", "Path to configuration file")
	f.BoolVar(&c.normalized, "normalized", false, "Analyze the normalized artifact")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg, log, err := setup(c.configPath)
	if err != nil {
		logger.GetLogger().WithError(err).Error("analyze failed")
		return subcommands.ExitFailure
	}
	if err := analyze(cfg, c.normalized); err != nil {
		log.WithError(err).Error("analyze failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type runCmd struct {
	configPath string
	refetch    bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "extract, normalize and analyze in one pass" }
func (*runCmd) Usage() string {
	return `reconflow run [-config <path>] [-refetch]

  Runs the full pipeline: extract, normalize, then analyze the normalized
  artifact.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "config/config.yml", "Path to configuration file")
	f.BoolVar(&c.refetch, "refetch", false, "Force re-download from S3 even when a cached artifact exists")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	cfg, log, err := setup(c.configPath)
	if err != nil {
		logger.GetLogger().WithError(err).Error("run failed")
		return subcommands.ExitFailure
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	cmp, err := extract(ctx, cfg, log, c.refetch)
	if err != nil {
		log.WithError(err).Error("run failed during extract")
		return subcommands.ExitFailure
	}
	if _, err := normalize(ctx, cfg, log, cmp); err != nil {
		log.WithError(err).Error("run failed during normalize")
		return subcommands.ExitFailure
	}
	if err := analyze(cfg, true); err != nil {
		log.WithError(err).Error("run failed during analyze")
		return subcommands.ExitFailure
	}

	log.Info("reconflow run complete")
	return subcommands.ExitSuccess
}
