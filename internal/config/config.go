// Package config loads the command-line tool's configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Backend string        `yaml:"backend"` // "pdf" (default), "lpdf" or "pdfjs"
	Log     LogConfig     `yaml:"log"`
	Extract ExtractConfig `yaml:"extract"`
	Chrome  ChromeConfig  `yaml:"chrome"`
	S3      S3Config      `yaml:"s3"`
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text" or "json"
}

// ExtractConfig contains extraction defaults
type ExtractConfig struct {
	Concurrency    int    `yaml:"concurrency"`     // pages fetched in parallel
	SkipUnresolved bool   `yaml:"skip_unresolved"` // skip images that fail to resolve
	ImageFormat    string `yaml:"image_format"`    // png, jpeg, bmp or tiff
}

// ChromeConfig contains settings for the pdfjs backend
type ChromeConfig struct {
	Path         string        `yaml:"path"`
	NoSandbox    bool          `yaml:"no_sandbox"`
	AutoDownload bool          `yaml:"auto_download"`
	Timeout      time.Duration `yaml:"timeout"`
	LibraryURL   string        `yaml:"library_url"`
	WorkerURL    string        `yaml:"worker_url"`
}

// S3Config contains settings for s3:// output targets
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`       // e.g. "http://localhost:9000" for MinIO
	UsePathStyle bool   `yaml:"use_path_style"` // required by most S3-compatible servers
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration with environment overrides applied.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Backend {
	case "pdf", "lpdf", "pdfjs":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Extract.Concurrency < 0 {
		return fmt.Errorf("config: negative concurrency %d", c.Extract.Concurrency)
	}
	return nil
}

// applyEnv lets environment variables override file config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PDFEXTRACT_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("PDFEXTRACT_CHROME_PATH"); v != "" {
		cfg.Chrome.Path = v
	}
	if v := os.Getenv("PDFEXTRACT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PDFEXTRACT_S3_ENDPOINT"); v != "" {
		cfg.S3.Endpoint = v
		cfg.S3.UsePathStyle = true
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = "pdf"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Extract.ImageFormat == "" {
		cfg.Extract.ImageFormat = "png"
	}
	if cfg.Chrome.Timeout == 0 {
		cfg.Chrome.Timeout = 30 * time.Second
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
}
