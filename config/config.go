package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Reconflow   ReconflowConfig   `yaml:"reconflow"`
	Window      WindowConfig      `yaml:"window"`
	Entities    EntitiesConfig    `yaml:"entities"`
	Artemis     ArtemisConfig     `yaml:"artemis"`
	Hyperliquid HyperliquidConfig `yaml:"hyperliquid"`
	Artifact    ArtifactConfig    `yaml:"artifact"`
	Report      ReportConfig      `yaml:"report"`
	Export      ExportConfig      `yaml:"export"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ReconflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type WindowConfig struct {
	// Days is the number of consecutive UTC calendar days ending at End.
	Days int `yaml:"days"`
	// End is the last window day (YYYY-MM-DD); empty means today UTC.
	End string `yaml:"end"`
	// TolerancePct is the match threshold for the diff classifier.
	TolerancePct float64 `yaml:"tolerance_pct"`
}

type EntitiesConfig struct {
	File string `yaml:"file"`
}

type ArtemisConfig struct {
	Bucket         string        `yaml:"bucket"`
	Prefix         string        `yaml:"prefix"`
	Region         string        `yaml:"region"`
	RequesterPays  bool          `yaml:"requester_pays"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
}

type HyperliquidConfig struct {
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	Workers           int           `yaml:"workers"`
	RequestsPerSecond int           `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	RetryMax          int           `yaml:"retry_max"`
	RetryWaitMin      time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax      time.Duration `yaml:"retry_wait_max"`
	LedgerPageLimit   int           `yaml:"ledger_page_limit"`
}

type ArtifactConfig struct {
	RawPath        string `yaml:"raw_path"`
	NormalizedPath string `yaml:"normalized_path"`
}

type ReportConfig struct {
	TopN int `yaml:"top_n"`
}

type ExportConfig struct {
	Parquet ParquetExportConfig `yaml:"parquet"`
	S3      S3ExportConfig      `yaml:"s3"`
	Kafka   KafkaExportConfig   `yaml:"kafka"`
}

type ParquetExportConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

type S3ExportConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type KafkaExportConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// LoadConfig reads, defaults and validates the configuration. Any failure
// here is a configuration error and aborts the run before reconciliation
// begins.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func defaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Days:         32,
			TolerancePct: 0.5,
		},
		Artemis: ArtemisConfig{
			Prefix:         "raw/perp_and_spot_balances/",
			RequesterPays:  true,
			ConnectTimeout: 30 * time.Second,
			ReadTimeout:    300 * time.Second,
			MaxAttempts:    3,
		},
		Hyperliquid: HyperliquidConfig{
			URL:               "https://api.hyperliquid.xyz/info",
			Timeout:           30 * time.Second,
			Workers:           4,
			RequestsPerSecond: 5,
			Burst:             5,
			RetryMax:          3,
			RetryWaitMin:      500 * time.Millisecond,
			RetryWaitMax:      3 * time.Second,
			LedgerPageLimit:   2000,
		},
		Artifact: ArtifactConfig{
			RawPath:        "comparison_output.json",
			NormalizedPath: "comparison_output_normalized.json",
		},
		Report: ReportConfig{TopN: 20},
		Export: ExportConfig{
			Parquet: ParquetExportConfig{Compression: "snappy"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("AWS_REGION"); v != "" {
		if config.Artemis.Region == "" {
			config.Artemis.Region = strings.TrimSpace(v)
		}
		if config.Export.S3.Enabled && config.Export.S3.Region == "" {
			config.Export.S3.Region = strings.TrimSpace(v)
		}
	}
	if config.Export.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Export.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Export.S3.SecretAccessKey = strings.TrimSpace(v)
		}
	}
	config.Artemis.Bucket = strings.TrimSpace(config.Artemis.Bucket)
	config.Export.S3.Bucket = strings.TrimSpace(config.Export.S3.Bucket)
}

func validateConfig(cfg *Config) error {
	if cfg.Reconflow.Name == "" {
		return fmt.Errorf("reconflow.name is required")
	}
	if cfg.Reconflow.Version == "" {
		return fmt.Errorf("reconflow.version is required")
	}

	if cfg.Window.Days <= 0 {
		return fmt.Errorf("window.days must be greater than 0")
	}
	if cfg.Window.End != "" {
		if _, err := time.Parse("2006-01-02", cfg.Window.End); err != nil {
			return fmt.Errorf("window.end '%s' is not a valid YYYY-MM-DD date", cfg.Window.End)
		}
	}
	if cfg.Window.TolerancePct <= 0 {
		return fmt.Errorf("window.tolerance_pct must be greater than 0")
	}

	if cfg.Entities.File == "" {
		return fmt.Errorf("entities.file is required")
	}

	if cfg.Artemis.Bucket == "" {
		return fmt.Errorf("artemis.bucket is required")
	}
	if !isValidS3Bucket(cfg.Artemis.Bucket) {
		return fmt.Errorf("artemis.bucket '%s' is invalid", cfg.Artemis.Bucket)
	}

	if cfg.Hyperliquid.URL == "" {
		return fmt.Errorf("hyperliquid.url is required")
	}
	if cfg.Hyperliquid.Workers <= 0 {
		return fmt.Errorf("hyperliquid.workers must be greater than 0")
	}
	if cfg.Hyperliquid.LedgerPageLimit <= 0 {
		return fmt.Errorf("hyperliquid.ledger_page_limit must be greater than 0")
	}

	if cfg.Artifact.RawPath == "" || cfg.Artifact.NormalizedPath == "" {
		return fmt.Errorf("artifact.raw_path and artifact.normalized_path are required")
	}

	if cfg.Report.TopN <= 0 {
		return fmt.Errorf("report.top_n must be greater than 0")
	}

	if cfg.Export.Parquet.Enabled && cfg.Export.Parquet.Path == "" {
		return fmt.Errorf("export.parquet.path is required when parquet export is enabled")
	}
	if cfg.Export.S3.Enabled {
		if cfg.Export.S3.Bucket == "" {
			return fmt.Errorf("export.s3.bucket is required when S3 export is enabled")
		}
		if !isValidS3Bucket(cfg.Export.S3.Bucket) {
			return fmt.Errorf("export.s3.bucket '%s' is invalid", cfg.Export.S3.Bucket)
		}
	}
	if cfg.Export.Kafka.Enabled {
		if len(cfg.Export.Kafka.Brokers) == 0 {
			return fmt.Errorf("export.kafka.brokers is required when kafka export is enabled")
		}
		if cfg.Export.Kafka.Topic == "" {
			return fmt.Errorf("export.kafka.topic is required when kafka export is enabled")
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
