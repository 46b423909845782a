package dev

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
	"github.com/vango-dev/ssrhost/pkg/static"
)

// ClientTag is the script element injected into development documents.
const ClientTag = `<script type="module" src="` + ClientPath + `"></script>`

// Bundler is the development middleware offered every non-API request
// before the render pipeline.
type Bundler struct {
	// Root is the project directory.
	Root string

	// PublicDir holds files served verbatim at the site root.
	PublicDir string

	// SourceDirs are project-relative directories whose files are served
	// raw under "/<dir>/".
	SourceDirs []string

	// WatchPaths are watched in addition to PublicDir and SourceDirs.
	WatchPaths []string

	// Check validates the project after a change. A non-nil error is shown
	// in the browser overlay instead of reloading.
	Check func(ctx context.Context) error

	// Remap rewrites errors before they are shown in the overlay.
	Remap func(error) error

	Reload *ReloadServer
	Logger *slog.Logger

	once    sync.Once
	public  *static.Resolver
	sources *static.Resolver
}

// NewBundler creates a bundler for the project at root.
func NewBundler(root, publicDir string, sourceDirs []string, logger *slog.Logger) *Bundler {
	if logger == nil {
		logger = slog.Default().With("component", "dev")
	}
	return &Bundler{
		Root:       root,
		PublicDir:  publicDir,
		SourceDirs: sourceDirs,
		Reload:     NewReloadServer(logger),
		Logger:     logger,
	}
}

func (b *Bundler) resolvers() (*static.Resolver, *static.Resolver) {
	b.once.Do(func() {
		opts := static.Options{CacheControl: static.CacheControlNoStore, Logger: b.Logger}
		b.public = static.NewResolver(static.NewDirSource(b.PublicDir), opts)
		b.sources = static.NewResolver(static.NewDirSource(b.Root), opts)
	})
	return b.public, b.sources
}

// ServeNext answers reload traffic, public files and raw sources, and
// otherwise calls next.
func (b *Bundler) ServeNext(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	public, sources := b.resolvers()

	switch r.URL.Path {
	case ReloadPath:
		b.Reload.ServeHTTP(w, r)
		return nil
	case ClientPath:
		w.Header().Set("Content-Type", static.ContentType(".js"))
		w.Header().Set("Cache-Control", "no-store")
		if r.Method != http.MethodHead {
			_, err := w.Write([]byte(ClientScript))
			return err
		}
		return nil
	}

	if r.URL.Path != "/" && public.TryServe(w, r) {
		return nil
	}
	if b.isSourcePath(r.URL.Path) && sources.TryServe(w, r) {
		return nil
	}
	return next(w, r)
}

func (b *Bundler) isSourcePath(urlPath string) bool {
	for _, dir := range b.SourceDirs {
		prefix := "/" + strings.Trim(filepath.ToSlash(dir), "/") + "/"
		if prefix != "//" && strings.HasPrefix(urlPath, prefix) {
			return true
		}
	}
	return false
}

// TransformIndexHTML injects the live-reload client before </body>, or
// appends it when the document has no body end tag.
func (b *Bundler) TransformIndexHTML(_ string, html string) (string, error) {
	if i := strings.LastIndex(strings.ToLower(html), "</body>"); i >= 0 {
		return html[:i] + ClientTag + "\n" + html[i:], nil
	}
	return html + ClientTag + "\n", nil
}

// Watch watches the project until ctx is done and pushes reload messages to
// connected browsers.
func (b *Bundler) Watch(ctx context.Context) error {
	paths := append([]string{}, b.WatchPaths...)
	if b.PublicDir != "" {
		paths = append(paths, b.PublicDir)
	}
	for _, dir := range b.SourceDirs {
		paths = append(paths, filepath.Join(b.Root, dir))
	}

	w := NewWatcher(paths, 0, nil)
	return w.Run(ctx, func(changes []Change) {
		b.Apply(ctx, changes)
	})
}

// Apply reacts to one batch of changes.
func (b *Bundler) Apply(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	b.Logger.Info("files changed", "count", len(changes), "first", b.rel(changes[0].Path))

	if b.Check != nil {
		if err := b.Check(ctx); err != nil {
			if b.Remap != nil {
				err = b.Remap(err)
			}
			b.Logger.Error("project check failed", "error", err)
			b.Reload.NotifyError(overlayText(err))
			return
		}
	}
	b.Reload.ClearError()

	if OnlyCSS(changes) {
		b.Reload.NotifyCSS(b.rel(changes[0].Path))
		return
	}
	b.Reload.NotifyReload()
}

func (b *Bundler) rel(p string) string {
	if b.Root == "" {
		return filepath.ToSlash(p)
	}
	if r, err := filepath.Rel(b.Root, p); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(p)
}

func overlayText(err error) string {
	var se *ssrerrors.Error
	if ssrerrors.As(err, &se) {
		return se.FormatCompact()
	}
	return err.Error()
}
