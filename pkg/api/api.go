package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/vango-dev/ssrhost/pkg/fetch"
)

// DefaultPrefix is where the namespace is mounted.
const DefaultPrefix = "/api"

// HandlerFunc answers an API request. A returned *fetch.Response is sent
// as-is; any other value is encoded as JSON with status 200. Errors that
// implement StatusCode() int choose the status, other errors answer 500.
type HandlerFunc func(req *fetch.Request) (any, error)

// Options configures a Namespace.
type Options struct {
	// Prefix is the mount path. Defaults to DefaultPrefix.
	Prefix string

	// RateLimit is the sustained number of requests per second accepted by
	// the namespace. Zero disables limiting.
	RateLimit rate.Limit

	// RateBurst is the token bucket size. Defaults to RateLimit rounded up.
	RateBurst int

	// Logger receives handler failures.
	Logger *slog.Logger
}

// Namespace is a set of API routes under a common prefix. Register routes
// before serving; registration is not synchronized with requests.
type Namespace struct {
	prefix  string
	router  *chi.Mux
	limiter *rate.Limiter
	logger  *slog.Logger
	limit   rate.Limit
	burst   int
}

// Message is the body of the hello route.
type Message struct {
	Message string `json:"message"`
}

// New creates a namespace with the built-in routes registered.
func New(opts Options) *Namespace {
	prefix := strings.TrimRight(opts.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "api")
	}

	n := &Namespace{
		prefix: prefix,
		router: chi.NewRouter(),
		logger: logger,
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit)
			if float64(burst) < float64(opts.RateLimit) {
				burst++
			}
		}
		n.limiter = rate.NewLimiter(opts.RateLimit, burst)
		n.limit, n.burst = opts.RateLimit, burst
	}

	n.router.NotFound(notFound)
	n.router.MethodNotAllowed(notFound)

	n.Get("/hello", func(*fetch.Request) (any, error) {
		return Message{Message: "Hello from Hono!"}, nil
	})

	return n
}

// Prefix returns the mount path.
func (n *Namespace) Prefix() string {
	return n.prefix
}

// Matches reports whether a request path belongs to the namespace: the
// prefix itself or anything below it.
func (n *Namespace) Matches(path string) bool {
	if !strings.HasPrefix(path, n.prefix) {
		return false
	}
	return len(path) == len(n.prefix) || path[len(n.prefix)] == '/'
}

// Handle registers fn for method and a chi pattern relative to the prefix.
func (n *Namespace) Handle(method, pattern string, fn HandlerFunc) {
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	n.router.Method(method, n.prefix+pattern, n.wrap(fn))
}

// Get registers a GET route.
func (n *Namespace) Get(pattern string, fn HandlerFunc) {
	n.Handle(http.MethodGet, pattern, fn)
}

// Post registers a POST route.
func (n *Namespace) Post(pattern string, fn HandlerFunc) {
	n.Handle(http.MethodPost, pattern, fn)
}

// Put registers a PUT route.
func (n *Namespace) Put(pattern string, fn HandlerFunc) {
	n.Handle(http.MethodPut, pattern, fn)
}

// Delete registers a DELETE route.
func (n *Namespace) Delete(pattern string, fn HandlerFunc) {
	n.Handle(http.MethodDelete, pattern, fn)
}

// Routes lists registered routes as "METHOD pattern" in router walk order.
func (n *Namespace) Routes() []string {
	var out []string
	chi.Walk(n.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, method+" "+route)
		return nil
	})
	return out
}

type requestKey struct{}

// Fetch implements fetch.Handler.
func (n *Namespace) Fetch(req *fetch.Request) (*fetch.Response, error) {
	if n.limiter != nil && !n.limiter.Allow() {
		resp := fetch.Text(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		resp.Header.Set("Retry-After", "1")
		resp.Header.Set("X-RateLimit-Limit", strconv.FormatFloat(float64(n.limit), 'f', -1, 64))
		resp.Header.Set("X-RateLimit-Burst", strconv.Itoa(n.burst))
		return resp, nil
	}

	hr, err := req.HTTP()
	if err != nil {
		return nil, err
	}
	hr = hr.WithContext(context.WithValue(hr.Context(), requestKey{}, req))

	rec := fetch.NewRecorder()
	n.router.ServeHTTP(rec, hr)
	return rec.Response(), nil
}

// ServeHTTP adapts the request and serves it through Fetch.
func (n *Namespace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fetch.Serve(n).ServeHTTP(w, r)
}

// Param returns a URL parameter of the matched route.
func Param(req *fetch.Request, name string) string {
	return chi.URLParamFromCtx(req.Context(), name)
}

func (n *Namespace) wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := r.Context().Value(requestKey{}).(*fetch.Request)
		if !ok {
			var err error
			if req, err = fetch.FromHTTP(r); err != nil {
				n.writeError(w, r, err)
				return
			}
		}
		req = req.WithContext(r.Context())

		v, err := fn(req)
		if err != nil {
			n.writeError(w, r, err)
			return
		}

		resp, ok := v.(*fetch.Response)
		if !ok {
			if resp, err = fetch.JSON(http.StatusOK, v); err != nil {
				n.writeError(w, r, err)
				return
			}
		}
		fetch.WriteHTTP(w, resp)
	}
}

func (n *Namespace) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := fetch.StatusCode(err)
	if status >= http.StatusInternalServerError {
		n.logger.Error("api handler failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeText(w, status, http.StatusText(status))
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, "404 Not Found")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
