package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

// HandlerFunc serves a request and reports failure by returning an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Route is one entry of the dispatch list.
type Route struct {
	// Name labels the route in logs, metrics and traces.
	Name string

	// Match reports whether the route handles r.
	Match func(r *http.Request) bool

	// Handler serves matched requests.
	Handler HandlerFunc
}

// Always matches every request.
func Always(*http.Request) bool { return true }

// Options configures a Dispatcher.
type Options struct {
	// Logger receives failures. Defaults to slog.Default.
	Logger *slog.Logger

	// Remap rewrites errors before they are reported, e.g. to point
	// template and panic positions at project sources. Optional.
	Remap func(error) error

	// ErrorOutput, when set, receives a formatted report of every failure
	// in addition to the log line.
	ErrorOutput io.Writer
}

// Dispatcher is an http.Handler over an ordered route list. The list is
// fixed at construction.
type Dispatcher struct {
	routes []Route
	logger *slog.Logger
	remap  func(error) error

	outMu sync.Mutex
	out   io.Writer
}

// New creates a dispatcher over routes, tried in order.
func New(routes []Route, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "dispatch")
	}
	return &Dispatcher{
		routes: append([]Route(nil), routes...),
		logger: logger,
		remap:  opts.Remap,
		out:    opts.ErrorOutput,
	}
}

// Routes returns the route list in dispatch order.
func (d *Dispatcher) Routes() []Route {
	return append([]Route(nil), d.routes...)
}

// Match returns the first route matching r.
func (d *Dispatcher) Match(r *http.Request) (Route, bool) {
	for _, route := range d.routes {
		if route.Match(r) {
			return route, true
		}
	}
	return Route{}, false
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := TrackWriter(w)

	route, ok := d.Match(r)
	if !ok {
		setRoute(r.Context(), "unmatched")
		rw.Header().Set("Content-Type", "text/plain")
		rw.WriteHeader(http.StatusNotFound)
		rw.Write([]byte("Not found"))
		return
	}
	setRoute(r.Context(), route.Name)

	if err := d.run(route, rw, r); err != nil {
		d.fail(rw, r, route.Name, err)
	}
}

func (d *Dispatcher) run(route Route, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			err = ssrerrors.FromPanic(v)
		}
	}()
	return route.Handler(w, r)
}

// fail is the catch-all: report the error and answer 500 when the response
// has not been started.
func (d *Dispatcher) fail(rw *ResponseWriter, r *http.Request, route string, err error) {
	if d.remap != nil {
		err = d.remap(err)
	}

	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		d.logger.Debug("request canceled",
			"route", route,
			"method", r.Method,
			"path", r.URL.Path,
		)
		return
	}

	attrs := []any{
		"route", route,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	}
	var se *ssrerrors.Error
	if errors.As(err, &se) && se.Location != nil {
		attrs = append(attrs, "location", se.Location.String())
	}
	d.logger.Error("request failed", attrs...)

	if d.out != nil {
		d.outMu.Lock()
		ssrerrors.Print(d.out, err)
		d.outMu.Unlock()
	}

	if rw.Committed() {
		d.logger.Warn("response already started, cannot send error status",
			"route", route,
			"status", rw.Status(),
		)
		return
	}

	h := rw.Header()
	for _, key := range []string{"Content-Length", "Content-Encoding", "ETag", "Last-Modified", "Cache-Control"} {
		h.Del(key)
	}
	h.Set("Content-Type", "text/plain")
	rw.WriteHeader(http.StatusInternalServerError)
	rw.Write([]byte("Internal Server Error"))
}

type routeSlot struct {
	mu   sync.Mutex
	name string
}

type routeSlotKey struct{}

// WithRouteSlot returns a context in which the dispatcher records the name
// of the matched route. Middleware wrapping the dispatcher calls this before
// serving and RouteName afterwards.
func WithRouteSlot(ctx context.Context) context.Context {
	if _, ok := ctx.Value(routeSlotKey{}).(*routeSlot); ok {
		return ctx
	}
	return context.WithValue(ctx, routeSlotKey{}, &routeSlot{})
}

// RouteName returns the route recorded in ctx, or "" if none.
func RouteName(ctx context.Context) string {
	slot, ok := ctx.Value(routeSlotKey{}).(*routeSlot)
	if !ok {
		return ""
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.name
}

func setRoute(ctx context.Context, name string) {
	if slot, ok := ctx.Value(routeSlotKey{}).(*routeSlot); ok {
		slot.mu.Lock()
		slot.name = name
		slot.mu.Unlock()
	}
}
