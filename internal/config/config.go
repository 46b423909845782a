package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/ssrhost"
	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
	"github.com/vango-dev/ssrhost/pkg/static"
)

const (
	// DefaultPort is the default listen port.
	DefaultPort = 3000

	// DefaultHost is the default listen host. Empty binds all interfaces.
	DefaultHost = ""

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// FileNames are the project file names Load looks for, in order.
var FileNames = []string{"ssrhost.yaml", "ssrhost.yml", "ssrhost.json"}

// Static source kinds.
const (
	SourceDir = "dir"
	SourceS3  = "s3"
)

// Config is the project configuration.
type Config struct {
	// Name is the project name, used in logs.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Mode is "development" or "production".
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Host is the listen host.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the listen port.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Paths contains project directory configuration.
	Paths PathsConfig `yaml:"paths,omitempty" json:"paths,omitempty"`

	// Static contains production file serving configuration.
	Static StaticConfig `yaml:"static,omitempty" json:"static,omitempty"`

	// API contains API namespace configuration.
	API APIConfig `yaml:"api,omitempty" json:"api,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `yaml:"log,omitempty" json:"log,omitempty"`

	// Metrics contains metrics listener configuration.
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// dir is the project root.
	dir string
}

// PathsConfig contains project paths, relative to the project root.
type PathsConfig struct {
	Template string   `yaml:"template,omitempty" json:"template,omitempty"`
	Pages    string   `yaml:"pages,omitempty" json:"pages,omitempty"`
	Public   string   `yaml:"public,omitempty" json:"public,omitempty"`
	Sources  []string `yaml:"sources,omitempty" json:"sources,omitempty"`
	Client   string   `yaml:"client,omitempty" json:"client,omitempty"`
	Server   string   `yaml:"server,omitempty" json:"server,omitempty"`
	Manifest string   `yaml:"manifest,omitempty" json:"manifest,omitempty"`
}

// StaticConfig selects where production static files are read from.
type StaticConfig struct {
	// Source is "dir" (the client build directory) or "s3".
	Source string `yaml:"source,omitempty" json:"source,omitempty"`

	// Bucket, Prefix, Region and Endpoint configure the s3 source.
	Bucket   string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// Headers are added to every static file response.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// APIConfig configures the API namespace.
type APIConfig struct {
	Prefix       string  `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	MaxBodyBytes int64   `yaml:"maxBodyBytes,omitempty" json:"maxBodyBytes,omitempty"`
	RateLimit    float64 `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	RateBurst    int     `yaml:"rateBurst,omitempty" json:"rateBurst,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// MetricsConfig configures the metrics listener.
type MetricsConfig struct {
	// Addr is the metrics listen address. Empty disables metrics.
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`

	// Namespace prefixes metric names.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ShutdownTimeout   string `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
	ReadHeaderTimeout string `yaml:"readHeaderTimeout,omitempty" json:"readHeaderTimeout,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the project file from dir. A directory without a project file
// yields the defaults.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	c := New()
	c.dir = dir
	return c, nil
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ssrerrors.New("E120").
				WithDetail("No configuration file at " + path).
				Wrap(err)
		}
		return nil, ssrerrors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, ssrerrors.New("E120").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check the file for syntax errors")
	}

	cfg.configPath = path
	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()

	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = string(ssrhost.ModeDevelopment)
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Static.Source == "" {
		c.Static.Source = SourceDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "ssrhost"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout.String()
	}
}

// ApplyEnv overrides fields from environment variables read through
// getenv. APP_ENV=production selects production mode.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("APP_ENV"); v != "" {
		if v == "production" {
			c.Mode = string(ssrhost.ModeProduction)
		} else {
			c.Mode = string(ssrhost.ModeDevelopment)
		}
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return ssrerrors.New("E121").WithDetail("PORT=" + v).Wrap(err)
		}
		c.Port = port
	}
	if v := getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return ssrerrors.New("E121").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Port))
	}
	switch ssrhost.Mode(c.Mode) {
	case ssrhost.ModeDevelopment, ssrhost.ModeProduction:
	default:
		return ssrerrors.New("E122").WithDetail("mode: " + c.Mode)
	}
	switch c.Static.Source {
	case SourceDir:
	case SourceS3:
		if c.Static.Bucket == "" {
			return ssrerrors.New("E123").
				WithDetail("static.source is s3 but static.bucket is empty").
				WithSuggestion("Set static.bucket to the bucket holding the client build")
		}
	default:
		return ssrerrors.New("E123").WithDetail("static.source: " + c.Static.Source)
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	if _, err := c.ReadHeaderTimeout(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// ShutdownTimeout parses Server.ShutdownTimeout.
func (c *Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("server.shutdownTimeout", c.Server.ShutdownTimeout, DefaultShutdownTimeout)
}

// ReadHeaderTimeout parses Server.ReadHeaderTimeout. Zero means the
// server default.
func (c *Config) ReadHeaderTimeout() (time.Duration, error) {
	return parseDuration("server.readHeaderTimeout", c.Server.ReadHeaderTimeout, 0)
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		e := ssrerrors.New("E124").WithDetail(field + ": " + value)
		if err != nil {
			e = e.Wrap(err)
		}
		return 0, e
	}
	return d, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, ssrerrors.Newf(ssrerrors.CategoryConfig, "invalid log level %q", c.Log.Level).Wrap(err)
	}
	return level, nil
}

// StaticSource returns the configured production file source, or nil for
// the client build directory.
func (c *Config) StaticSource() static.Source {
	if c.Static.Source != SourceS3 {
		return nil
	}
	client := static.NewS3Client(c.Static.Region, c.Static.Endpoint)
	return static.NewS3Source(client, c.Static.Bucket, c.Static.Prefix)
}

// AppConfig converts the project configuration into the App configuration.
// Logger, metrics and tracing are left for the caller to set.
func (c *Config) AppConfig() ssrhost.Config {
	return ssrhost.Config{
		Mode:       ssrhost.Mode(c.Mode),
		Root:       c.Dir(),
		Template:   c.Paths.Template,
		PagesDir:   c.Paths.Pages,
		PublicDir:  c.Paths.Public,
		SourceDirs: c.Paths.Sources,
		ClientDir:  c.Paths.Client,
		ServerDir:  c.Paths.Server,
		Manifest:   c.Paths.Manifest,
		Static: ssrhost.StaticConfig{
			Source:  c.StaticSource(),
			Headers: c.Static.Headers,
		},
		API: ssrhost.APIConfig{
			Prefix:       c.API.Prefix,
			MaxBodyBytes: c.API.MaxBodyBytes,
			RateLimit:    rate.Limit(c.API.RateLimit),
			RateBurst:    c.API.RateBurst,
		},
	}
}
