package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"nfowide/models"
)

type Config struct {
	Nfowide   NfowideConfig   `yaml:"nfowide"`
	Input     InputConfig     `yaml:"input"`
	Symbols   SymbolsConfig   `yaml:"symbols"`
	Pivot     PivotConfig     `yaml:"pivot"`
	Template  TemplateConfig  `yaml:"template"`
	Processor ProcessorConfig `yaml:"processor"`
	Writer    WriterConfig    `yaml:"writer"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type NfowideConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// InputConfig points at the long-format master file for one trade date.
// TradeDate (dd/mm/yyyy) overrides the date taken from the first row.
type InputConfig struct {
	Path      string `yaml:"path"`
	TradeDate string `yaml:"trade_date"`
}

// SymbolsConfig lists the underlyings to pivot. File, when set, is a YAML
// universe file whose symbols are appended to List.
type SymbolsConfig struct {
	List []string `yaml:"list"`
	File string   `yaml:"file"`
}

type PivotConfig struct {
	DuplicatePolicy string   `yaml:"duplicate_policy"`
	OptionBuckets   []string `yaml:"option_buckets"`
}

// TemplateConfig enables the schema-stable variant: output columns and
// numeric widths follow a reference table.
type TemplateConfig struct {
	Path        string `yaml:"path"`
	FillMissing bool   `yaml:"fill_missing"`
}

type ProcessorConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type WriterConfig struct {
	Format      string `yaml:"format"`
	Compression string `yaml:"compression"`
	OutputDir   string `yaml:"output_dir"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled          bool    `yaml:"enabled"`
	Bucket           string  `yaml:"bucket"`
	Region           string  `yaml:"region"`
	Endpoint         string  `yaml:"endpoint"`
	PathStyle        bool    `yaml:"path_style"`
	Prefix           string  `yaml:"prefix"`
	UploadsPerSecond float64 `yaml:"uploads_per_second"`
	AccessKeyID      string  `yaml:"access_key_id"`
	SecretAccessKey  string  `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
	PushgatewayURL string           `yaml:"pushgateway_url"`
	Job            string           `yaml:"job"`
	// ListenAddr, when set, exposes /metrics for the lifetime of the run.
	ListenAddr     string           `yaml:"listen_addr"`
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

const (
	DuplicatePolicyLast  = "last"
	DuplicatePolicyFirst = "first"

	FormatFeather = "feather"
	FormatParquet = "parquet"
)

// Default returns the configuration used for keys the file leaves out.
func Default() Config {
	return Config{
		Nfowide:   NfowideConfig{Name: "nfowide", Version: "dev"},
		Pivot:     PivotConfig{DuplicatePolicy: DuplicatePolicyLast},
		Processor: ProcessorConfig{MaxWorkers: 4},
		Writer: WriterConfig{
			Format:      FormatFeather,
			Compression: "snappy",
			OutputDir:   "nifty50_processed",
		},
		Metrics: MetricsConfig{Job: "nfowide"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)
	config.Writer.Format = strings.ToLower(strings.TrimSpace(config.Writer.Format))
	config.Pivot.DuplicatePolicy = strings.ToLower(strings.TrimSpace(config.Pivot.DuplicatePolicy))

	if config.Symbols.File != "" {
		universe, err := LoadUniverse(config.Symbols.File)
		if err != nil {
			return nil, err
		}
		config.Symbols.List = append(config.Symbols.List, universe.Symbols...)
	}
	if len(config.Symbols.List) == 0 {
		config.Symbols.List = append([]string(nil), Nifty50...)
	}
	config.Symbols.List = dedupeSymbols(config.Symbols.List)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets deployments inject secrets and paths without
// editing the YAML file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("NFOWIDE_INPUT"); v != "" {
		config.Input.Path = strings.TrimSpace(v)
	}
	if v := os.Getenv("NFOWIDE_OUTPUT_DIR"); v != "" {
		config.Writer.OutputDir = strings.TrimSpace(v)
	}
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Nfowide.Name == "" {
		return fmt.Errorf("nfowide.name is required")
	}

	if cfg.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	if _, err := cfg.Input.ParseTradeDate(); err != nil {
		return err
	}

	if cfg.Processor.MaxWorkers <= 0 {
		return fmt.Errorf("processor.max_workers must be greater than 0")
	}

	switch cfg.Pivot.DuplicatePolicy {
	case DuplicatePolicyLast, DuplicatePolicyFirst:
	default:
		return fmt.Errorf("pivot.duplicate_policy '%s' is invalid (want last or first)", cfg.Pivot.DuplicatePolicy)
	}
	for _, b := range cfg.Pivot.OptionBuckets {
		if !isBucket(b) {
			return fmt.Errorf("pivot.option_buckets entry '%s' is invalid", b)
		}
	}

	switch cfg.Writer.Format {
	case FormatFeather, FormatParquet:
	default:
		return fmt.Errorf("writer.format '%s' is invalid (want feather or parquet)", cfg.Writer.Format)
	}
	if cfg.Writer.OutputDir == "" && !cfg.Storage.S3.Enabled {
		return fmt.Errorf("writer.output_dir is required when S3 is disabled")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
		if cfg.Storage.S3.UploadsPerSecond < 0 {
			return fmt.Errorf("storage.s3.uploads_per_second must not be negative")
		}
	}

	return nil
}

// ParseTradeDate returns the configured trade date, or the zero time when
// it should be taken from the input file.
func (c InputConfig) ParseTradeDate() (time.Time, error) {
	if strings.TrimSpace(c.TradeDate) == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(c.TradeDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("input.trade_date '%s' is not dd/mm/yyyy: %w", c.TradeDate, err)
	}
	return d, nil
}

// Buckets converts the configured option bucket labels. Empty means every
// option expiry is kept.
func (c PivotConfig) Buckets() []models.Bucket {
	out := make([]models.Bucket, 0, len(c.OptionBuckets))
	for _, b := range c.OptionBuckets {
		out = append(out, models.Bucket(strings.ToUpper(strings.TrimSpace(b))))
	}
	return out
}

func isBucket(label string) bool {
	label = strings.ToUpper(strings.TrimSpace(label))
	for _, b := range models.Buckets {
		if string(b) == label {
			return true
		}
	}
	return false
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
