package dev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testBundler(t *testing.T) *Bundler {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "public", "robots.txt"), "User-agent: *")
	writeFile(t, filepath.Join(root, "src", "main.js"), "console.log(1)")
	writeFile(t, filepath.Join(root, "secret.env"), "TOKEN=1")
	return NewBundler(root, filepath.Join(root, "public"), []string{"src"}, nil)
}

func TestTransformIndexHTML(t *testing.T) {
	b := &Bundler{}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "before body end",
			in:   "<html><body><!--app-html--></body></html>",
			want: "<html><body><!--app-html-->" + ClientTag + "\n</body></html>",
		},
		{
			name: "uppercase tag",
			in:   "<BODY>x</BODY>",
			want: "<BODY>x" + ClientTag + "\n</BODY>",
		},
		{
			name: "no body",
			in:   "<!--app-html-->",
			want: "<!--app-html-->" + ClientTag + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.TransformIndexHTML("/", tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TransformIndexHTML() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBundler_ServeNext(t *testing.T) {
	b := testBundler(t)

	tests := []struct {
		path     string
		wantNext bool
		wantBody string
		wantType string
	}{
		{path: ClientPath, wantBody: ClientScript, wantType: "text/javascript"},
		{path: "/robots.txt", wantBody: "User-agent: *", wantType: "application/octet-stream"},
		{path: "/src/main.js", wantBody: "console.log(1)", wantType: "text/javascript"},
		{path: "/secret.env", wantNext: true},
		{path: "/src/missing.js", wantNext: true},
		{path: "/", wantNext: true},
		{path: "/about", wantNext: true},
		{path: "/src/../secret.env", wantNext: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path = tt.path
			rec := httptest.NewRecorder()

			called := false
			err := b.ServeNext(rec, req, func(w http.ResponseWriter, r *http.Request) error {
				called = true
				w.WriteHeader(http.StatusTeapot)
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if called != tt.wantNext {
				t.Fatalf("next called = %v, want %v", called, tt.wantNext)
			}
			if tt.wantNext {
				if rec.Code != http.StatusTeapot {
					t.Errorf("status = %d, want next handler's 418", rec.Code)
				}
				return
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, tt.wantType) {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
				t.Errorf("Cache-Control = %q, want no-store", got)
			}
		})
	}
}

func TestBundler_ServeNextPropagatesError(t *testing.T) {
	b := testBundler(t)
	want := errors.New("render failed")
	err := b.ServeNext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil),
		func(http.ResponseWriter, *http.Request) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func dialReload(t *testing.T, s *ReloadServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + ReloadPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, s *ReloadServer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", s.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) ReloadMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return msg
}

func TestReloadServer_Broadcast(t *testing.T) {
	s := NewReloadServer(nil)
	defer s.Close()
	conn := dialReload(t, s)
	waitClients(t, s, 1)

	s.NotifyReload()
	if got := readMessage(t, conn); got.Type != ReloadTypeFull {
		t.Errorf("type = %q, want reload", got.Type)
	}

	s.NotifyCSS("styles/app.css")
	if diff := cmp.Diff(ReloadMessage{Type: ReloadTypeCSS, File: "styles/app.css"}, readMessage(t, conn)); diff != "" {
		t.Errorf("css message mismatch (-want +got):\n%s", diff)
	}

	s.NotifyError("boom")
	if diff := cmp.Diff(ReloadMessage{Type: ReloadTypeError, Error: "boom"}, readMessage(t, conn)); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}

	s.ClearError()
	if got := readMessage(t, conn); got.Type != ReloadTypeClear {
		t.Errorf("type = %q, want clear", got.Type)
	}
}

func TestReloadServer_ReplaysError(t *testing.T) {
	s := NewReloadServer(nil)
	defer s.Close()
	s.NotifyError("template: index.gohtml:3: unexpected EOF")

	conn := dialReload(t, s)
	got := readMessage(t, conn)
	if got.Type != ReloadTypeError || !strings.Contains(got.Error, "index.gohtml:3") {
		t.Errorf("replayed message = %+v", got)
	}
}

func TestReloadServer_ClientDisconnect(t *testing.T) {
	s := NewReloadServer(nil)
	conn := dialReload(t, s)
	waitClients(t, s, 1)
	conn.Close()
	waitClients(t, s, 0)
}

func TestWatcher_Poll(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.gohtml")
	writeFile(t, page, "v1")
	writeFile(t, filepath.Join(dir, "node_modules", "x.js"), "ignored")

	w := NewWatcher([]string{dir}, time.Millisecond, nil)
	if got := w.Poll(); got != nil {
		t.Fatalf("first Poll() = %v, want nil baseline", got)
	}
	if got := w.Poll(); len(got) != 0 {
		t.Fatalf("Poll() without changes = %v", got)
	}

	css := filepath.Join(dir, "app.css")
	writeFile(t, css, "body{}")
	if diff := cmp.Diff([]Change{{Path: css, Kind: ChangeCSS}}, w.Poll()); diff != "" {
		t.Errorf("added file mismatch (-want +got):\n%s", diff)
	}

	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(page, later, later); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Change{{Path: page, Kind: ChangeSource}}, w.Poll()); diff != "" {
		t.Errorf("modified file mismatch (-want +got):\n%s", diff)
	}

	if err := os.Remove(css); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Change{{Path: css, Kind: ChangeCSS, Removed: true}}, w.Poll()); diff != "" {
		t.Errorf("removed file mismatch (-want +got):\n%s", diff)
	}

	writeFile(t, filepath.Join(dir, "node_modules", "y.js"), "ignored")
	writeFile(t, filepath.Join(dir, "page.swp"), "ignored")
	if got := w.Poll(); len(got) != 0 {
		t.Errorf("ignored files reported: %v", got)
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func([]Change) {}) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestOnlyCSS(t *testing.T) {
	tests := []struct {
		changes []Change
		want    bool
	}{
		{nil, false},
		{[]Change{{Path: "a.css", Kind: ChangeCSS}}, true},
		{[]Change{{Path: "a.css", Kind: ChangeCSS}, {Path: "b.gohtml", Kind: ChangeSource}}, false},
		{[]Change{{Path: "a.css", Kind: ChangeCSS, Removed: true}}, false},
	}
	for i, tt := range tests {
		if got := OnlyCSS(tt.changes); got != tt.want {
			t.Errorf("case %d: OnlyCSS() = %v, want %v", i, got, tt.want)
		}
	}
}

func TestBundler_Apply(t *testing.T) {
	b := testBundler(t)
	conn := dialReload(t, b.Reload)
	waitClients(t, b.Reload, 1)

	checkErr := ssrerrors.New("E102").Wrap(errors.New("bad page"))
	b.Check = func(context.Context) error { return checkErr }
	b.Apply(context.Background(), []Change{{Path: filepath.Join(b.Root, "src", "pages", "index.gohtml")}})
	got := readMessage(t, conn)
	if got.Type != ReloadTypeError || !strings.Contains(got.Error, "E102") {
		t.Fatalf("after failed check = %+v, want error overlay", got)
	}

	b.Check = func(context.Context) error { return nil }
	b.Apply(context.Background(), []Change{{Path: filepath.Join(b.Root, "src", "app.css"), Kind: ChangeCSS}})
	if got := readMessage(t, conn); got.Type != ReloadTypeClear {
		t.Fatalf("after fixed check = %+v, want clear", got)
	}
	if diff := cmp.Diff(ReloadMessage{Type: ReloadTypeCSS, File: "src/app.css"}, readMessage(t, conn)); diff != "" {
		t.Errorf("css message mismatch (-want +got):\n%s", diff)
	}

	b.Apply(context.Background(), []Change{{Path: filepath.Join(b.Root, "src", "main.js")}})
	if got := readMessage(t, conn); got.Type != ReloadTypeFull {
		t.Errorf("after source change = %+v, want reload", got)
	}
}

func TestRemapper_FixStacktrace(t *testing.T) {
	root := t.TempDir()
	pages := filepath.Join(root, "src", "pages")
	writeFile(t, filepath.Join(pages, "about.gohtml"), "<h1>About</h1>\n{{.Missing.Field}}\n")
	m := Remapper{Root: root, PagesDir: pages}

	t.Run("template error gets location", func(t *testing.T) {
		err := fmt.Errorf("render: %w", errors.New(`template: about.gohtml:2:10: executing "about.gohtml" at <.Missing.Field>: nil pointer`))
		var got *ssrerrors.Error
		if !errors.As(m.FixStacktrace(err), &got) {
			t.Fatal("remapped error is not coded")
		}
		if got.Code != "E103" {
			t.Errorf("Code = %q, want E103", got.Code)
		}
		want := &ssrerrors.Location{File: "src/pages/about.gohtml", Line: 2, Column: 10}
		if diff := cmp.Diff(want, got.Location); diff != "" {
			t.Errorf("Location mismatch (-want +got):\n%s", diff)
		}
		if len(got.Context) == 0 {
			t.Error("Context is empty, want source lines")
		}
	})

	t.Run("existing location made relative", func(t *testing.T) {
		coded := ssrerrors.New("E102").WithLocation(filepath.Join(pages, "about.gohtml"), 1, 0)
		var got *ssrerrors.Error
		if !errors.As(m.FixStacktrace(coded), &got) {
			t.Fatal("remapped error is not coded")
		}
		if got.Location.File != "src/pages/about.gohtml" {
			t.Errorf("File = %q", got.Location.File)
		}
		if coded.Location.File == got.Location.File {
			t.Error("original error was modified")
		}
	})

	t.Run("stack trimmed to project", func(t *testing.T) {
		coded := ssrerrors.New("E202").WithStack([]ssrerrors.Frame{
			{Function: "net/http.(*conn).serve", File: "/usr/local/go/src/net/http/server.go", Line: 2000},
			{Function: "app.render", File: filepath.Join(root, "app.go"), Line: 12},
		})
		var got *ssrerrors.Error
		if !errors.As(m.FixStacktrace(coded), &got) {
			t.Fatal("remapped error is not coded")
		}
		want := []ssrerrors.Frame{{Function: "app.render", File: "app.go", Line: 12}}
		if diff := cmp.Diff(want, got.Stack); diff != "" {
			t.Errorf("Stack mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("plain error unchanged", func(t *testing.T) {
		err := io.ErrUnexpectedEOF
		if got := m.FixStacktrace(err); got != err {
			t.Errorf("FixStacktrace() = %v, want the same error", got)
		}
		if m.FixStacktrace(nil) != nil {
			t.Error("FixStacktrace(nil) != nil")
		}
	})
}
