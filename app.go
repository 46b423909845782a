package ssrhost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/ssrhost/internal/dev"
	"github.com/vango-dev/ssrhost/pkg/api"
	"github.com/vango-dev/ssrhost/pkg/assets"
	"github.com/vango-dev/ssrhost/pkg/dispatch"
	"github.com/vango-dev/ssrhost/pkg/entry"
	"github.com/vango-dev/ssrhost/pkg/fetch"
	"github.com/vango-dev/ssrhost/pkg/middleware"
	"github.com/vango-dev/ssrhost/pkg/render"
	"github.com/vango-dev/ssrhost/pkg/static"
)

// =============================================================================
// App Type
// =============================================================================

// App is the HTTP entry point. It is an http.Handler; the mode and the
// production render cache are fixed by New.
type App struct {
	cfg    Config
	logger *slog.Logger

	api      *api.Namespace
	adapter  fetch.Adapter
	loader   *entry.Loader
	strategy render.Strategy

	// Development only.
	bundler *dev.Bundler

	// Production only.
	files *static.Resolver

	dispatcher *dispatch.Dispatcher
	handler    http.Handler
}

// New creates an App. In production it loads the built template and server
// entry once; a missing template, placeholder or entry fails here rather
// than on the first request.
func New(ctx context.Context, cfg Config) (*App, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger

	a := &App{
		cfg:    cfg,
		logger: logger.With("component", "app"),
		api: api.New(api.Options{
			Prefix:    cfg.API.Prefix,
			RateLimit: cfg.API.RateLimit,
			RateBurst: cfg.API.RateBurst,
			Logger:    logger.With("component", "api"),
		}),
		adapter: fetch.Adapter{MaxBodyBytes: cfg.API.MaxBodyBytes},
	}

	opts := dispatch.Options{Logger: logger.With("component", "dispatch")}

	if cfg.Mode.IsProduction() {
		if err := a.initProduction(ctx); err != nil {
			return nil, err
		}
	} else {
		remapper := dev.Remapper{Root: cfg.Root, PagesDir: cfg.PagesDir}
		a.initDevelopment(remapper)
		opts.Remap = remapper.FixStacktrace
		opts.ErrorOutput = os.Stderr
	}

	a.dispatcher = dispatch.New(a.routes(), opts)
	a.handler = middleware.Chain(a.dispatcher, a.middleware()...)
	return a, nil
}

func (a *App) initProduction(ctx context.Context) error {
	cfg := a.cfg

	resolver, err := a.loadAssets()
	if err != nil {
		return err
	}

	a.loader = &entry.Loader{Dir: cfg.ServerDir, Assets: resolver, Funcs: cfg.Funcs}
	prod, err := render.NewProdStrategy(ctx, filepath.Join(cfg.ClientDir, "index.html"), a.loader)
	if err != nil {
		return fmt.Errorf("load production build: %w", err)
	}
	a.strategy = prod

	source := cfg.Static.Source
	if source == nil {
		source = static.NewDirSource(cfg.ClientDir)
	}
	a.files = static.NewResolver(source, static.Options{
		CacheControl: static.CacheControlProduction,
		Headers:      cfg.Static.Headers,
		Logger:       cfg.Logger.With("component", "static"),
	})
	return nil
}

func (a *App) loadAssets() (assets.Resolver, error) {
	m, err := assets.Load(a.cfg.Manifest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			a.logger.Debug("no asset manifest, resolving assets by name", "path", a.cfg.Manifest)
			return assets.NewPassthroughResolver("/"), nil
		}
		return nil, err
	}
	a.logger.Debug("asset manifest loaded", "path", a.cfg.Manifest, "entries", m.Len())
	return assets.NewResolver(m, "/"), nil
}

func (a *App) initDevelopment(remapper dev.Remapper) {
	cfg := a.cfg

	a.loader = &entry.Loader{
		Dir:    cfg.PagesDir,
		Assets: assets.NewPassthroughResolver("/"),
		Funcs:  cfg.Funcs,
	}

	a.bundler = dev.NewBundler(cfg.Root, cfg.PublicDir, cfg.SourceDirs, cfg.Logger.With("component", "dev"))
	a.bundler.WatchPaths = []string{cfg.Template, cfg.PagesDir}
	a.bundler.Check = a.check
	a.bundler.Remap = remapper.FixStacktrace

	a.strategy = &render.DevStrategy{
		TemplatePath: cfg.Template,
		Transformer:  a.bundler,
		Loader:       a.loader,
	}
}

// check reports whether the template and pages currently on disk load.
func (a *App) check(ctx context.Context) error {
	if _, err := render.LoadTemplate(a.cfg.Template); err != nil {
		return err
	}
	_, err := a.loader.Entry(ctx)
	return err
}

func (a *App) middleware() []middleware.Middleware {
	mws := []middleware.Middleware{middleware.RequestID()}
	if a.cfg.TracerProvider != nil {
		mws = append(mws, middleware.Tracing(middleware.WithTracerProvider(a.cfg.TracerProvider)))
	}
	if a.cfg.Metrics != nil {
		mws = append(mws, a.cfg.Metrics.Middleware())
	}
	return append(mws, middleware.Logging(a.cfg.Logger.With("component", "http")))
}

// =============================================================================
// Dispatch
// =============================================================================

func (a *App) routes() []dispatch.Route {
	routes := []dispatch.Route{{
		Name:    "api",
		Match:   func(r *http.Request) bool { return a.api.Matches(r.URL.Path) },
		Handler: a.serveAPI,
	}}

	if !a.cfg.Mode.IsProduction() {
		return append(routes, dispatch.Route{
			Name:    "dev",
			Match:   dispatch.Always,
			Handler: a.serveDev,
		})
	}

	return append(routes,
		dispatch.Route{
			Name:    "static",
			Match:   func(r *http.Request) bool { return static.IsAsset(r.URL.EscapedPath()) },
			Handler: a.serveStatic,
		},
		dispatch.Route{
			Name:    "render",
			Match:   dispatch.Always,
			Handler: a.serveRender,
		},
	)
}

// serveAPI answers client errors raised while adapting the request, such as
// an oversized body, with their own status.
func (a *App) serveAPI(w http.ResponseWriter, r *http.Request) error {
	err := fetch.ServeFunc(a.adapter, a.api)(w, r)
	var he *fetch.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		a.logger.Debug("api request rejected", "path", r.URL.Path, "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		w.WriteHeader(he.Code)
		_, err = w.Write([]byte(http.StatusText(he.Code)))
		return err
	}
	return err
}

func (a *App) serveDev(w http.ResponseWriter, r *http.Request) error {
	return a.bundler.ServeNext(w, r, func(w http.ResponseWriter, r *http.Request) error {
		if acceptsHTML(r) {
			return a.serveRender(w, r)
		}
		w.WriteHeader(http.StatusNotFound)
		return nil
	})
}

func (a *App) serveStatic(w http.ResponseWriter, r *http.Request) error {
	a.files.ServeHTTP(w, r)
	return nil
}

func (a *App) serveRender(w http.ResponseWriter, r *http.Request) error {
	html, err := a.strategy.Render(r.Context(), r.URL.RequestURI())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write([]byte(html))
	return err
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(strings.Join(r.Header.Values("Accept"), ","), "text/html")
}

// =============================================================================
// Accessors
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// API returns the API namespace. Register routes before serving.
func (a *App) API() *api.Namespace {
	return a.api
}

// Mode returns the operating mode.
func (a *App) Mode() Mode {
	return a.cfg.Mode
}

// Root returns the absolute project directory.
func (a *App) Root() string {
	return a.cfg.Root
}

// Dispatcher returns the ordered dispatch list.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Routes loads the page route table from the current pages directory.
func (a *App) Routes(ctx context.Context) ([]entry.Route, error) {
	e, err := a.loader.Entry(ctx)
	if err != nil {
		return nil, err
	}
	return e.Routes(), nil
}

// Watch pushes live-reload messages to browsers until ctx is done. It
// returns immediately in production.
func (a *App) Watch(ctx context.Context) error {
	if a.bundler == nil {
		return nil
	}
	return a.bundler.Watch(ctx)
}

// Close disconnects live-reload clients.
func (a *App) Close() error {
	if a.bundler != nil {
		a.bundler.Reload.Close()
	}
	return nil
}
