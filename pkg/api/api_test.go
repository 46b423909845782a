package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/ssrhost/pkg/fetch"
)

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHello(t *testing.T) {
	ns := New(Options{})

	rr := doRequest(t, ns, http.MethodGet, "http://example.com/api/hello", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got, want := rr.Body.String(), `{"message":"Hello from Hono!"}`; got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestNotFound(t *testing.T) {
	ns := New(Options{})

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "http://example.com/api/missing"},
		{http.MethodPost, "http://example.com/api/hello"},
		{http.MethodGet, "http://example.com/api"},
	} {
		rr := doRequest(t, ns, tc.method, tc.target, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tc.method, tc.target, rr.Code)
		}
		if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
			t.Errorf("%s %s Content-Type = %q, want text/plain", tc.method, tc.target, got)
		}
	}
}

func TestMatches(t *testing.T) {
	ns := New(Options{})

	tests := map[string]bool{
		"/api":          true,
		"/api/":         true,
		"/api/hello":    true,
		"/apix":         false,
		"/api-docs":     false,
		"/":             false,
		"/assets/api/x": false,
	}
	for path, want := range tests {
		if got := ns.Matches(path); got != want {
			t.Errorf("Matches(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestCustomRoutes(t *testing.T) {
	ns := New(Options{})

	ns.Get("/users/{id}", func(req *fetch.Request) (any, error) {
		return map[string]string{"id": Param(req, "id"), "q": req.URL.Query().Get("q")}, nil
	})
	ns.Post("/echo", func(req *fetch.Request) (any, error) {
		resp := fetch.NewResponse(http.StatusCreated, req.Body)
		resp.Header.Set("Content-Type", "text/plain")
		return resp, nil
	})
	ns.Delete("/users/{id}", func(*fetch.Request) (any, error) {
		return nil, &fetch.HTTPError{Code: http.StatusForbidden, Message: "nope"}
	})
	ns.Put("/fail", func(*fetch.Request) (any, error) {
		return nil, errors.New("database down")
	})

	t.Run("params and query", func(t *testing.T) {
		rr := doRequest(t, ns, http.MethodGet, "http://example.com/api/users/7?q=x", "")
		if rr.Code != http.StatusOK || rr.Body.String() != `{"id":"7","q":"x"}` {
			t.Errorf("got %d %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("response passthrough", func(t *testing.T) {
		rr := doRequest(t, ns, http.MethodPost, "http://example.com/api/echo", "ping")
		if rr.Code != http.StatusCreated || rr.Body.String() != "ping" {
			t.Errorf("got %d %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("status error", func(t *testing.T) {
		rr := doRequest(t, ns, http.MethodDelete, "http://example.com/api/users/7", "")
		if rr.Code != http.StatusForbidden || rr.Body.String() != "Forbidden" {
			t.Errorf("got %d %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("plain error", func(t *testing.T) {
		rr := doRequest(t, ns, http.MethodPut, "http://example.com/api/fail", "")
		if rr.Code != http.StatusInternalServerError || rr.Body.String() != "Internal Server Error" {
			t.Errorf("got %d %s", rr.Code, rr.Body.String())
		}
	})

	want := []string{
		"PUT /api/fail",
		"POST /api/echo",
		"GET /api/hello",
		"GET /api/users/{id}",
		"DELETE /api/users/{id}",
	}
	sortStrings := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff(want, ns.Routes(), sortStrings); diff != "" {
		t.Errorf("Routes() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchKeepsRequest(t *testing.T) {
	ns := New(Options{Prefix: "/v1/"})

	var seen *fetch.Request
	ns.Post("/capture", func(req *fetch.Request) (any, error) {
		seen = req
		return struct{}{}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "http://example.com/v1/capture", strings.NewReader("body"))
	req.Header.Add("X-Multi", "a")
	req.Header.Add("X-Multi", "b")
	fr, err := fetch.FromHTTP(req)
	if err != nil {
		t.Fatalf("FromHTTP: %v", err)
	}

	resp, err := ns.Fetch(fr)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != "{}" {
		t.Fatalf("response = %d %s", resp.Status, resp.Body)
	}
	if seen == nil {
		t.Fatal("handler not called")
	}
	if string(seen.Body) != "body" {
		t.Errorf("body = %q", seen.Body)
	}
	if diff := cmp.Diff([]string{"a", "b"}, seen.Header.Values("X-Multi")); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if ns.Prefix() != "/v1" {
		t.Errorf("Prefix() = %q, want /v1", ns.Prefix())
	}
}

func TestRateLimit(t *testing.T) {
	ns := New(Options{RateLimit: 1, RateBurst: 2})

	for i := 0; i < 2; i++ {
		if rr := doRequest(t, ns, http.MethodGet, "http://example.com/api/hello", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rr.Code)
		}
	}

	rr := doRequest(t, ns, http.MethodGet, "http://example.com/api/hello", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	if got := rr.Header().Get("X-RateLimit-Burst"); got != "2" {
		t.Errorf("X-RateLimit-Burst = %q, want 2", got)
	}
}
