package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

const chunkManifest = `{
  "src/entry-client.ts": {
    "file": "assets/entry-client-a1b2c3d4.js",
    "css": ["assets/entry-client-e5f6a7b8.css"],
    "imports": ["_shared.js"],
    "isEntry": true
  },
  "_shared.js": {
    "file": "assets/shared-0f0f0f0f.js",
    "css": ["assets/shared-11223344.css", "assets/entry-client-e5f6a7b8.css"]
  },
  "src/admin.ts": {
    "file": "assets/admin-99887766.js",
    "imports": ["_shared.js"],
    "isEntry": true
  }
}`

func TestManifestResolve(t *testing.T) {
	m := NewManifest(map[string]string{
		"app.js":     "app.abc12345.js",
		"styles.css": "styles.def45678.css",
	})

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "app.js", "app.abc12345.js"},
		{"found entry css", "styles.css", "styles.def45678.css"},
		{"missing entry returns original", "unknown.js", "unknown.js"},
		{"empty string returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Resolve(tt.source)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestParseChunkManifest(t *testing.T) {
	m, err := Parse([]byte(chunkManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
	if got := m.Resolve("src/entry-client.ts"); got != "assets/entry-client-a1b2c3d4.js" {
		t.Errorf("Resolve(entry) = %q", got)
	}
	if diff := cmp.Diff([]string{"src/admin.ts", "src/entry-client.ts"}, m.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}

	// Imported stylesheets come first and duplicates are dropped.
	want := []string{"assets/shared-11223344.css", "assets/entry-client-e5f6a7b8.css"}
	if diff := cmp.Diff(want, m.CSS("src/entry-client.ts")); diff != "" {
		t.Errorf("CSS() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"not json":     `{`,
		"not object":   `[1,2]`,
		"entry number": `{"a.js": 5}`,
		"missing file": `{"a.js": {"css": ["a.css"]}}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			if !ssrerrors.HasCode(err, "E106") {
				t.Fatalf("Parse(%s) error = %v, want E106", data, err)
			}
		})
	}
}

func TestCSSHandlesImportCycles(t *testing.T) {
	m, err := Parse([]byte(`{
		"a.js": {"file": "a.1.js", "imports": ["b.js"], "css": ["a.css"]},
		"b.js": {"file": "b.1.js", "imports": ["a.js"], "css": ["b.css"]}
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff([]string{"b.css", "a.css"}, m.CSS("a.js")); diff != "" {
		t.Errorf("CSS() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte(`{"app.js": "app.12345678.js"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Resolve("app.js"); got != "app.12345678.js" {
		t.Errorf("Resolve(app.js) = %q", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want not-exist", err)
	}
}

func TestNilManifest(t *testing.T) {
	var m *Manifest
	if got := m.Resolve("app.js"); got != "app.js" {
		t.Errorf("nil Resolve = %q", got)
	}
	if m.Len() != 0 || m.Entries() != nil || m.CSS("app.js") != nil {
		t.Error("nil manifest should be empty")
	}
}

func TestResolvers(t *testing.T) {
	m, err := Parse([]byte(chunkManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	prod := NewResolver(m, "/")
	if got := prod.Asset("src/entry-client.ts"); got != "/assets/entry-client-a1b2c3d4.js" {
		t.Errorf("prod Asset = %q", got)
	}
	if got := prod.Asset("favicon.ico"); got != "/favicon.ico" {
		t.Errorf("prod Asset(unknown) = %q", got)
	}
	wantCSS := []string{"/assets/shared-11223344.css", "/assets/entry-client-e5f6a7b8.css"}
	if diff := cmp.Diff(wantCSS, prod.CSS("src/entry-client.ts")); diff != "" {
		t.Errorf("prod CSS mismatch (-want +got):\n%s", diff)
	}

	dev := NewPassthroughResolver("/")
	if got := dev.Asset("src/entry-client.ts"); got != "/src/entry-client.ts" {
		t.Errorf("dev Asset = %q", got)
	}
	if dev.CSS("src/entry-client.ts") != nil {
		t.Error("dev CSS should be nil")
	}
}
