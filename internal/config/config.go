package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset"`
	Sort       SortConfig       `yaml:"sort"`
	Report     ReportConfig     `yaml:"report"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Audit      AuditConfig      `yaml:"audit"`
	Log        LogConfig        `yaml:"log"`
}

type DatasetConfig struct {
	Mode      string   `yaml:"mode"` // local, blob or generate
	Dir       string   `yaml:"dir"`
	BucketURL string   `yaml:"bucket_url"`
	Prefix    string   `yaml:"prefix"`
	Names     []string `yaml:"names"`
	Seed      uint64   `yaml:"seed"`
	// Plain files at least this large are memory-mapped.
	MmapThreshold int64 `yaml:"mmap_threshold"`
}

type SortConfig struct {
	Workers       int           `yaml:"workers"`
	Trials        int           `yaml:"trials"`
	MinMeasurable time.Duration `yaml:"min_measurable"`
}

type ReportConfig struct {
	Format    string `yaml:"format"` // text or json
	BucketURL string `yaml:"bucket_url"`
	Prefix    string `yaml:"prefix"`
	Parquet   bool   `yaml:"parquet"`
	// WriteSorted publishes each dataset's sorted output under sorted/.
	// Without a bucket it goes to OutputDir.
	WriteSorted bool   `yaml:"write_sorted"`
	OutputDir   string `yaml:"output_dir"`
}

type CatalogConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	Namespace   string `yaml:"namespace"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type CheckpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// DefaultDatasets mirrors the preset datasets written by cmd/datagen.
var DefaultDatasets = []string{
	"input_small", "input_medium", "input_large",
	"input_mixed_10000", "input_mixed_100000", "input_mixed_1000000",
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Dataset: DatasetConfig{
			Mode:          "local",
			Dir:           "./data",
			Names:         DefaultDatasets,
			Seed:          1,
			MmapThreshold: 1 << 20,
		},
		Sort: SortConfig{
			Workers:       runtime.NumCPU(),
			Trials:        1,
			MinMeasurable: time.Microsecond,
		},
		Report: ReportConfig{
			Format:    "text",
			Prefix:    "bench/",
			OutputDir: "./output",
		},
		Catalog: CatalogConfig{
			Namespace: "default",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Checkpoint: CheckpointConfig{
			Dir: "./checkpoints",
		},
		Audit: AuditConfig{
			Dir: "./audit",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// MustLoad builds the configuration from defaults, an optional YAML file
// named by CONFIG_FILE, and environment variables, in increasing priority.
// It exits the process on an unreadable config file.
func MustLoad() Config {
	log.Println("[config] loading")

	cfg, err := Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("[config] %v", err)
	}
	return cfg
}

// Load is MustLoad without the exit. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Dataset.Mode = getenvDefault("DATASET_MODE", cfg.Dataset.Mode)
	cfg.Dataset.Dir = getenvDefault("DATASET_DIR", cfg.Dataset.Dir)
	cfg.Dataset.BucketURL = getenvDefault("DATASET_BUCKET_URL", cfg.Dataset.BucketURL)
	cfg.Dataset.Prefix = getenvDefault("DATASET_PREFIX", cfg.Dataset.Prefix)
	if v := os.Getenv("DATASETS"); v != "" {
		cfg.Dataset.Names = splitList(v)
	}
	if v := os.Getenv("DATASET_SEED"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Dataset.Seed = parsed
		}
	}
	if v := os.Getenv("MMAP_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Dataset.MmapThreshold = parsed
		}
	}

	if v := os.Getenv("WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Sort.Workers = parsed
		}
	}
	if v := os.Getenv("TRIALS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Sort.Trials = parsed
		}
	}
	if v := os.Getenv("MIN_MEASURABLE"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Sort.MinMeasurable = parsed
		}
	}

	cfg.Report.Format = getenvDefault("REPORT_FORMAT", cfg.Report.Format)
	cfg.Report.BucketURL = getenvDefault("REPORT_BUCKET_URL", cfg.Report.BucketURL)
	cfg.Report.Prefix = getenvDefault("REPORT_PREFIX", cfg.Report.Prefix)
	cfg.Report.Parquet = getenvBool("REPORT_PARQUET", cfg.Report.Parquet)
	cfg.Report.WriteSorted = getenvBool("REPORT_WRITE_SORTED", cfg.Report.WriteSorted)
	cfg.Report.OutputDir = getenvDefault("REPORT_OUTPUT_DIR", cfg.Report.OutputDir)

	cfg.Catalog.PostgresDSN = getenvDefault("CATALOG_DSN", cfg.Catalog.PostgresDSN)
	cfg.Catalog.Namespace = getenvDefault("CATALOG_NAMESPACE", cfg.Catalog.Namespace)

	cfg.Metrics.Enabled = getenvBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Address = getenvDefault("METRICS_ADDRESS", cfg.Metrics.Address)

	cfg.Checkpoint.Enabled = getenvBool("CHECKPOINT_ENABLED", cfg.Checkpoint.Enabled)
	cfg.Checkpoint.Dir = getenvDefault("CHECKPOINT_DIR", cfg.Checkpoint.Dir)

	cfg.Audit.Enabled = getenvBool("AUDIT_ENABLED", cfg.Audit.Enabled)
	cfg.Audit.Dir = getenvDefault("AUDIT_DIR", cfg.Audit.Dir)
	cfg.Audit.Endpoint = getenvDefault("AUDIT_ENDPOINT", cfg.Audit.Endpoint)

	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
}

// Validate reports settings the runner cannot work with.
func (c Config) Validate() error {
	switch c.Dataset.Mode {
	case "local", "blob", "generate":
	default:
		return fmt.Errorf("dataset mode %q: must be local, blob or generate", c.Dataset.Mode)
	}
	if c.Dataset.Mode == "blob" && c.Dataset.BucketURL == "" {
		return fmt.Errorf("dataset mode blob requires DATASET_BUCKET_URL")
	}
	if c.Sort.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Sort.Workers)
	}
	if c.Sort.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Sort.Trials)
	}
	switch c.Report.Format {
	case "text", "json":
	default:
		return fmt.Errorf("report format %q: must be text or json", c.Report.Format)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
