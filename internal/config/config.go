package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	DefaultHostURL        = "https://ll.thespacedevs.com"
	DefaultLimit          = 10
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultScratchDir     = "/tmp/images"
	DefaultPipelineName   = "rocket_images"
	DefaultReportFileName = "index.html"
	DefaultMaxRuns        = 100

	EnvFileName = ".env"

	EnvHostURL     = "ROCKET_HOST_URL"
	EnvScratchDir  = "ROCKET_SCRATCH_DIR"
	EnvLogLevel    = "ROCKET_LOG_LEVEL"
	EnvRedisURL    = "ROCKET_REDIS_URL"
	EnvHTTPTimeout = "ROCKET_HTTP_TIMEOUT"
	EnvNoProxy     = "ROCKET_NO_PROXY"
)

type APIConfig struct {
	HostURL string `yaml:"host_url"`
	Limit   int    `yaml:"limit"`
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	NoProxy *bool         `yaml:"no_proxy"`
}

// ProxyDisabled reports whether outbound requests must bypass any proxy. Unset means disabled.
func (c HTTPConfig) ProxyDisabled() bool {
	return c.NoProxy == nil || *c.NoProxy
}

type TransformConfig struct {
	ScratchDir string `yaml:"scratch_dir"`
}

type PipelineConfig struct {
	Name   string `yaml:"name"`
	Notify bool   `yaml:"notify"`
	Report bool   `yaml:"report"`
}

type ReportConfig struct {
	FileName   string `yaml:"file_name"`
	HeaderFile string `yaml:"header_file"`
}

type HistoryConfig struct {
	MaxRuns int `yaml:"max_runs"`
}

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	RedisURL  string          `yaml:"redis_url"`
	API       APIConfig       `yaml:"api"`
	HTTP      HTTPConfig      `yaml:"http"`
	Transform TransformConfig `yaml:"transform"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Report    ReportConfig    `yaml:"report"`
	History   HistoryConfig   `yaml:"history"`
}

func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}

	if c.API.HostURL == "" {
		c.API.HostURL = DefaultHostURL
	}

	if c.API.Limit < 1 {
		c.API.Limit = DefaultLimit
	}

	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}

	if c.HTTP.NoProxy == nil {
		noProxy := true
		c.HTTP.NoProxy = &noProxy
	}

	if c.Transform.ScratchDir == "" {
		c.Transform.ScratchDir = DefaultScratchDir
	}

	if c.Pipeline.Name == "" {
		c.Pipeline.Name = DefaultPipelineName
	}

	if c.Report.FileName == "" {
		c.Report.FileName = DefaultReportFileName
	}

	if c.History.MaxRuns < 1 {
		c.History.MaxRuns = DefaultMaxRuns
	}
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}

	return nil
}

/*
Load reads the yaml file at path (a missing file means defaults), then applies
variables from the .env file and the process environment on top of it.
*/
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	if err := godotenv.Load(EnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot load env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvHostURL); ok {
		c.API.HostURL = v
	}

	if v, ok := os.LookupEnv(EnvScratchDir); ok {
		c.Transform.ScratchDir = v
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}

	if v, ok := os.LookupEnv(EnvRedisURL); ok {
		c.RedisURL = v
	}

	if v, ok := os.LookupEnv(EnvHTTPTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("cannot parse %s: %w", EnvHTTPTimeout, err)
		}
		c.HTTP.Timeout = d
	}

	if v, ok := os.LookupEnv(EnvNoProxy); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("cannot parse %s: %w", EnvNoProxy, err)
		}
		c.HTTP.NoProxy = &b
	}

	return nil
}
