package static

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// CacheControl selects the caching strategy for served assets.
type CacheControl int

const (
	// CacheControlNone leaves Cache-Control unset.
	CacheControlNone CacheControl = iota

	// CacheControlNoStore disables caching (useful in development).
	CacheControlNoStore

	// CacheControlProduction caches fingerprinted files for a year and
	// everything else for an hour with revalidation.
	CacheControlProduction
)

// Options configures a Resolver.
type Options struct {
	// CacheControl selects the Cache-Control strategy.
	CacheControl CacheControl

	// Headers are added to every successful response.
	Headers map[string]string

	// Logger receives read failures other than not-found.
	Logger *slog.Logger
}

// Resolver maps request paths onto files of a Source.
type Resolver struct {
	source Source
	opts   Options
	logger *slog.Logger
}

// NewResolver creates a Resolver reading from source.
func NewResolver(source Source, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "static")
	}
	return &Resolver{
		source: source,
		opts:   opts,
		logger: logger,
	}
}

// Source returns the Source the resolver reads from.
func (res *Resolver) Source() Source {
	return res.source
}

// ServeHTTP answers the asset named by the request path: 200 with the file
// contents, or 404 with a plain text body when the path is invalid, missing
// or unreadable.
func (res *Resolver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !res.TryServe(w, r) {
		notFound(w)
	}
}

// TryServe serves the asset named by the request path if it exists and
// reports whether it did. Nothing is written when it returns false.
func (res *Resolver) TryServe(w http.ResponseWriter, r *http.Request) bool {
	rel, ok := RelPath(r.URL.Path)
	if !ok {
		return false
	}

	f, err := res.source.ReadFile(r.Context(), rel)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			res.logger.Warn("static read failed", "path", rel, "error", err)
		}
		return false
	}

	res.applyCacheHeaders(w, rel)
	for key, value := range res.opts.Headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", ContentType(rel))

	if f.ModTime.IsZero() {
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			w.Write(f.Data)
		}
		return true
	}
	// ServeContent handles HEAD, conditional requests and ranges; the
	// Content-Type set above prevents sniffing.
	http.ServeContent(w, r, rel, f.ModTime, bytes.NewReader(f.Data))
	return true
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not found"))
}

// RelPath returns a sanitized relative file path for a decoded URL path. It
// rejects traversal and absolute-path tricks so serving cannot escape the
// source root, and hidden files or directories are never served.
func RelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// A remaining leading "/" indicates an absolute-path attempt
	// (e.g. "//etc/passwd").
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-leading segments before cleaning. This covers "." and ".."
	// traversal as well as dotfiles like ".env" and ".git/".
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

// applyCacheHeaders applies cache control headers based on the options.
func (res *Resolver) applyCacheHeaders(w http.ResponseWriter, filePath string) {
	switch res.opts.CacheControl {
	case CacheControlNoStore:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")

	case CacheControlProduction:
		if IsFingerprinted(filePath) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		}
	}
}

// IsFingerprinted checks if a file path appears to be fingerprinted.
// Fingerprinted files carry a hash before the extension, e.g. "app.a1b2c3d4.css"
// or "index-a1b2c3d4.js".
func IsFingerprinted(filePath string) bool {
	base := path.Base(filePath)
	stem := strings.TrimSuffix(base, path.Ext(base))

	// Hash separated by "." (app.a1b2c3d4) or "-" (index-a1b2c3d4).
	i := strings.LastIndexAny(stem, ".-")
	if i < 1 {
		return false
	}
	hash := stem[i+1:]
	if len(hash) < 8 {
		return false
	}

	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}

	return true
}
