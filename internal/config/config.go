// Package config loads and validates scraper configuration via Viper.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Upload providers.
const (
	ProviderDrive = "drive"
	ProviderGCS   = "gcs"
	ProviderLocal = "local"
)

// Default remote listings the pipeline reads from.
const (
	DefaultCompanySource = "https://raw.githubusercontent.com/Perinban/join_companies/main/websites.json"
	DefaultURLSource     = "https://raw.githubusercontent.com/Perinban/WebScrapJobs/main/job_post_url.txt"
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config captures every knob loaded via Viper.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Discover DiscoverConfig `mapstructure:"discover"`
	Split    SplitConfig    `mapstructure:"split"`
	Combine  CombineConfig  `mapstructure:"combine"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// HTTPConfig shapes every outbound page request.
type HTTPConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Referer        string        `mapstructure:"referer"`
	AcceptLanguage string        `mapstructure:"accept_language"`
}

// ScrapeConfig governs the detail scraping run.
type ScrapeConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	DelayMin    time.Duration `mapstructure:"delay_min"`
	DelayMax    time.Duration `mapstructure:"delay_max"`
	HostRPS     float64       `mapstructure:"host_rps"`
	HostBurst   int           `mapstructure:"host_burst"`
	ChunkSize   int           `mapstructure:"chunk_size"`
}

// DiscoverConfig governs the company listing crawl.
type DiscoverConfig struct {
	Workers       int           `mapstructure:"workers"`
	CompanySource string        `mapstructure:"company_source"`
	URLSource     string        `mapstructure:"url_source"`
	BaseURL       string        `mapstructure:"base_url"`
	Output        string        `mapstructure:"output"`
	DelayMin      time.Duration `mapstructure:"delay_min"`
	DelayMax      time.Duration `mapstructure:"delay_max"`
}

// SplitConfig controls how the URL listing is chunked.
type SplitConfig struct {
	Source    string `mapstructure:"source"`
	ChunkSize int    `mapstructure:"chunk_size"`
	OutputDir string `mapstructure:"output_dir"`
}

// CombineConfig locates per-chunk summaries to merge.
type CombineConfig struct {
	Root   string `mapstructure:"root"`
	Prefix string `mapstructure:"prefix"`
	Output string `mapstructure:"output"`
}

// UploadConfig describes where the combined artifact goes.
type UploadConfig struct {
	Provider        string `mapstructure:"provider"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	FolderID        string `mapstructure:"folder_id"`
	ShareWith       string `mapstructure:"share_with"`
	File            string `mapstructure:"file"`
	Bucket          string `mapstructure:"bucket"`
	LocalDir        string `mapstructure:"local_dir"`
}

// NotifyConfig enables the post-upload Pub/Sub notice when both fields are set.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Enabled reports whether notices should be published.
func (n NotifyConfig) Enabled() bool {
	return n.ProjectID != "" && n.Topic != ""
}

// MetricsConfig points at an optional Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// envAliases binds the variable names used by the original deployment.
var envAliases = map[string][]string{
	"discover.company_source": {"RAW_URL"},
	"discover.url_source":     {"JOB_POST_URL_SOURCE"},
	"split.source":            {"JOB_POST_URL_SOURCE"},
	"upload.credentials_json": {"GDRIVE_SERVICE_ACCOUNT_KEY"},
	"upload.folder_id":        {"GDRIVE_FOLDER_ID"},
	"upload.share_with":       {"GDRIVE_SHARE_WITH"},
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, names := range envAliases {
		prefixed := "JOBSCRAPER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		args := append([]string{key, prefixed}, names...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.referer", "https://www.google.com/")
	v.SetDefault("http.accept_language", "en-US,en;q=0.9")
	v.SetDefault("scrape.concurrency", 10)
	v.SetDefault("scrape.delay_min", 2*time.Second)
	v.SetDefault("scrape.delay_max", 5*time.Second)
	v.SetDefault("scrape.host_rps", 0)
	v.SetDefault("scrape.host_burst", 1)
	v.SetDefault("scrape.chunk_size", 0)
	v.SetDefault("discover.workers", 8)
	v.SetDefault("discover.company_source", DefaultCompanySource)
	v.SetDefault("discover.url_source", DefaultURLSource)
	v.SetDefault("discover.base_url", "https://join.com/companies")
	v.SetDefault("discover.output", "job_post_url.txt")
	v.SetDefault("discover.delay_min", 2*time.Second)
	v.SetDefault("discover.delay_max", 5*time.Second)
	v.SetDefault("split.source", DefaultURLSource)
	v.SetDefault("split.chunk_size", 25000)
	v.SetDefault("split.output_dir", ".")
	v.SetDefault("combine.root", "job-summaries")
	v.SetDefault("combine.prefix", "job-summary")
	v.SetDefault("combine.output", "job_summary.json")
	v.SetDefault("upload.provider", ProviderDrive)
	v.SetDefault("upload.file", "job_summary.json")
	v.SetDefault("upload.local_dir", "uploads")
	v.SetDefault("upload.bucket", "")
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "jobscraper")
	v.SetDefault("logging.development", true)
}

// Validate enforces the limits every command relies on. Upload settings are
// checked separately by UploadConfig.Validate since only one command needs them.
func (c Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be > 0")
	}
	if c.Scrape.DelayMin < 0 || c.Scrape.DelayMin > c.Scrape.DelayMax {
		return fmt.Errorf("scrape.delay_min must be between 0 and scrape.delay_max")
	}
	if c.Scrape.HostRPS < 0 {
		return fmt.Errorf("scrape.host_rps must be >= 0")
	}
	if c.Scrape.ChunkSize < 0 {
		return fmt.Errorf("scrape.chunk_size must be >= 0")
	}
	if c.Discover.Workers <= 0 {
		return fmt.Errorf("discover.workers must be > 0")
	}
	if c.Discover.DelayMin < 0 || c.Discover.DelayMin > c.Discover.DelayMax {
		return fmt.Errorf("discover.delay_min must be between 0 and discover.delay_max")
	}
	if c.Split.ChunkSize <= 0 {
		return fmt.Errorf("split.chunk_size must be > 0")
	}
	return nil
}

// Validate checks the upload preconditions for the configured provider.
func (u UploadConfig) Validate() error {
	switch u.Provider {
	case ProviderDrive, ProviderGCS, ProviderLocal:
	default:
		return fmt.Errorf("upload.provider %q is not supported", u.Provider)
	}
	if u.FolderID == "" {
		return fmt.Errorf("upload.folder_id is required")
	}
	if u.File == "" {
		return fmt.Errorf("upload.file is required")
	}
	if u.Provider == ProviderLocal {
		return nil
	}
	if u.CredentialsJSON == "" {
		return fmt.Errorf("upload.credentials_json is required for %s", u.Provider)
	}
	if !json.Valid([]byte(u.CredentialsJSON)) {
		return fmt.Errorf("upload.credentials_json is not valid JSON")
	}
	if u.Provider == ProviderGCS && u.Bucket == "" {
		return fmt.Errorf("upload.bucket is required for gcs")
	}
	return nil
}
