package ssrhost

import (
	"html/template"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vango-dev/ssrhost/pkg/middleware"
	"github.com/vango-dev/ssrhost/pkg/static"
)

// Mode is the operating mode, fixed for the life of an App.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// IsProduction reports whether m is ModeProduction.
func (m Mode) IsProduction() bool {
	return m == ModeProduction
}

// Config configures an App. Relative paths are resolved against Root.
type Config struct {
	// Mode selects development or production. Default: development.
	Mode Mode

	// Root is the project directory. Default: ".".
	Root string

	// Template is the development document template. Default: "index.html".
	Template string

	// PagesDir holds the page templates rendered in development.
	// Default: "src/pages".
	PagesDir string

	// PublicDir holds files the dev bundler serves at the site root.
	// Default: "public".
	PublicDir string

	// SourceDirs are served raw by the dev bundler. Default: ["src"].
	SourceDirs []string

	// ClientDir is the client build output holding index.html, the asset
	// manifest and the static files. Default: "dist/client".
	ClientDir string

	// ServerDir holds the built page templates. Default: "dist/server/pages".
	ServerDir string

	// Manifest is the asset manifest. Default: "<ClientDir>/manifest.json".
	// A missing manifest resolves assets by their own names.
	Manifest string

	// Static configures production file serving.
	Static StaticConfig

	// API configures the /api namespace.
	API APIConfig

	// Funcs are extra functions available to page templates.
	Funcs template.FuncMap

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records request metrics when set.
	Metrics *middleware.HTTPMetrics

	// TracerProvider enables request tracing when set.
	TracerProvider trace.TracerProvider
}

// StaticConfig configures production file serving.
type StaticConfig struct {
	// Source overrides reading files from ClientDir, e.g. with an
	// S3Source.
	Source static.Source

	// Headers are added to every static file response.
	Headers map[string]string
}

// APIConfig configures the API namespace.
type APIConfig struct {
	// Prefix is the mount path. Default: "/api".
	Prefix string

	// MaxBodyBytes limits buffered request bodies. Default: 1 MiB.
	MaxBodyBytes int64

	// RateLimit is the sustained requests per second. Zero disables
	// limiting.
	RateLimit rate.Limit

	// RateBurst is the token bucket size.
	RateBurst int
}

// DefaultMaxBodyBytes is the default API request body limit.
const DefaultMaxBodyBytes = 1 << 20

// withDefaults returns a copy of c with defaults applied and paths made
// absolute under Root.
func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeDevelopment
	}
	if c.Root == "" {
		c.Root = "."
	}
	if abs, err := filepath.Abs(c.Root); err == nil {
		c.Root = abs
	}
	if c.Template == "" {
		c.Template = "index.html"
	}
	if c.PagesDir == "" {
		c.PagesDir = filepath.Join("src", "pages")
	}
	if c.PublicDir == "" {
		c.PublicDir = "public"
	}
	if c.SourceDirs == nil {
		c.SourceDirs = []string{"src"}
	}
	if c.ClientDir == "" {
		c.ClientDir = filepath.Join("dist", "client")
	}
	if c.ServerDir == "" {
		c.ServerDir = filepath.Join("dist", "server", "pages")
	}

	c.Template = c.path(c.Template)
	c.PagesDir = c.path(c.PagesDir)
	c.PublicDir = c.path(c.PublicDir)
	c.ClientDir = c.path(c.ClientDir)
	c.ServerDir = c.path(c.ServerDir)
	if c.Manifest == "" {
		c.Manifest = filepath.Join(c.ClientDir, "manifest.json")
	} else {
		c.Manifest = c.path(c.Manifest)
	}

	if c.API.MaxBodyBytes == 0 {
		c.API.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
