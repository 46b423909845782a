package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/ssrhost"
	"github.com/vango-dev/ssrhost/internal/config"
	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
	"github.com/vango-dev/ssrhost/pkg/middleware"
	"github.com/vango-dev/ssrhost/pkg/server"
)

type serveOptions struct {
	configPath string
	port       int
	host       string
	prod       bool
	trace      bool
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Long: `Start the server.

The mode comes from the project file or APP_ENV; APP_ENV=production or
--prod selects production.

Examples:
  ssrhost serve
  ssrhost serve --port=8080
  APP_ENV=production ssrhost serve --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, err := loadConfig(dir, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Project file (default: ssrhost.yaml in --dir)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config or PORT)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to")
	cmd.Flags().BoolVar(&opts.prod, "prod", false, "Run in production mode")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Start an OpenTelemetry span per request with the global tracer provider")

	return cmd
}

// loadConfig layers the project file, the environment and flags.
func loadConfig(dir string, opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if opts.port > 0 {
		cfg.Port = opts.port
	}
	if opts.host != "" {
		cfg.Host = opts.host
	}
	if opts.prod {
		cfg.Mode = string(ssrhost.ModeProduction)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions, stderr io.Writer) error {
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	appCfg := cfg.AppConfig()
	appCfg.Logger = logger
	if opts.trace {
		appCfg.TracerProvider = otel.GetTracerProvider()
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Addr != "" {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		appCfg.Metrics = middleware.NewHTTPMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(registry),
		)
	}

	app, err := ssrhost.New(ctx, appCfg)
	if err != nil {
		ssrerrors.Print(stderr, err)
		return err
	}
	defer app.Close()

	shutdownTimeout, _ := cfg.ShutdownTimeout()
	readHeaderTimeout, _ := cfg.ReadHeaderTimeout()

	srvCfg := server.Config{
		Addr:              cfg.Address(),
		Handler:           app,
		MetricsAddr:       cfg.Metrics.Addr,
		ReadHeaderTimeout: readHeaderTimeout,
		ShutdownTimeout:   shutdownTimeout,
		Mode:              string(app.Mode()),
		Logger:            logger.With("component", "server"),
		Background:        []func(context.Context) error{app.Watch},
	}
	if registry != nil {
		srvCfg.MetricsHandler = middleware.MetricsHandler(registry)
	}

	return server.New(srvCfg).Run(ctx)
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if cfg.Name != "" {
		logger = logger.With("app", cfg.Name)
	}
	return logger, nil
}
