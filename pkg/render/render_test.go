package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

const indexHTML = `<!doctype html>
<html>
<head><title>App</title></head>
<body><div id="app"><!--app-html--></div></body>
</html>`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func echoLoader(calls *atomic.Int32) EntryLoader {
	return EntryLoaderFunc(func(context.Context) (RenderFunc, error) {
		if calls != nil {
			calls.Add(1)
		}
		return func(_ context.Context, url string) (string, error) {
			return "<p>" + url + "</p>", nil
		}, nil
	})
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("index.html", indexHTML)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}

	got := tmpl.Splice("<h1>hi</h1>")
	if strings.Contains(got, Placeholder) {
		t.Errorf("spliced document still contains placeholder: %s", got)
	}
	if !strings.Contains(got, `<div id="app"><h1>hi</h1></div>`) {
		t.Errorf("fragment not spliced at placeholder: %s", got)
	}
	if tmpl.String() != indexHTML {
		t.Errorf("String() does not round-trip the source")
	}
}

func TestParseTemplateMissingPlaceholder(t *testing.T) {
	_, err := ParseTemplate("index.html", "<html><body></body></html>")
	if !ssrerrors.HasCode(err, "E101") {
		t.Fatalf("error = %v, want E101", err)
	}
}

func TestSpliceReplacesFirstPlaceholderOnly(t *testing.T) {
	tmpl, err := ParseTemplate("t", "a"+Placeholder+"b"+Placeholder+"c")
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if got, want := tmpl.Splice("X"), "aXb"+Placeholder+"c"; got != want {
		t.Errorf("Splice() = %q, want %q", got, want)
	}
}

func TestLoadTemplateMissingFile(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.html"))
	if !ssrerrors.HasCode(err, "E100") {
		t.Fatalf("error = %v, want E100", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist: %v", err)
	}
}

func TestProdStrategyLoadsOnce(t *testing.T) {
	path := writeTemplate(t, indexHTML)

	var calls atomic.Int32
	s, err := NewProdStrategy(context.Background(), path, echoLoader(&calls))
	if err != nil {
		t.Fatalf("NewProdStrategy: %v", err)
	}

	// The template file is no longer needed once the strategy exists.
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	first, err := s.Render(context.Background(), "/about?x=1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := s.Render(context.Background(), "/about?x=1")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if first != second {
		t.Errorf("renders differ:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(first, "<p>/about?x=1</p>") {
		t.Errorf("document missing fragment: %s", first)
	}
	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}
}

func TestProdStrategyErrors(t *testing.T) {
	t.Run("template without placeholder", func(t *testing.T) {
		path := writeTemplate(t, "<html></html>")
		_, err := NewProdStrategy(context.Background(), path, echoLoader(nil))
		if !ssrerrors.HasCode(err, "E101") {
			t.Fatalf("error = %v, want E101", err)
		}
	})

	t.Run("entry load failure", func(t *testing.T) {
		path := writeTemplate(t, indexHTML)
		loader := EntryLoaderFunc(func(context.Context) (RenderFunc, error) {
			return nil, errors.New("no pages")
		})
		_, err := NewProdStrategy(context.Background(), path, loader)
		if !ssrerrors.HasCode(err, "E102") {
			t.Fatalf("error = %v, want E102", err)
		}
	})

	t.Run("render failure", func(t *testing.T) {
		tmpl, _ := ParseTemplate("t", Placeholder)
		s := NewStaticStrategy(tmpl, func(context.Context, string) (string, error) {
			return "", errors.New("boom")
		})
		_, err := s.Render(context.Background(), "/")
		if !ssrerrors.HasCode(err, "E103") {
			t.Fatalf("error = %v, want E103", err)
		}
	})
}

type injectTransformer struct{}

func (injectTransformer) TransformIndexHTML(url, html string) (string, error) {
	return strings.Replace(html, "</body>", "<script src=\"/_dev/client.js\"></script></body>", 1), nil
}

type failingTransformer struct{}

func (failingTransformer) TransformIndexHTML(string, string) (string, error) {
	return "", errors.New("transform failed")
}

func TestDevStrategyRereadsEveryRequest(t *testing.T) {
	path := writeTemplate(t, indexHTML)

	var calls atomic.Int32
	s := &DevStrategy{
		TemplatePath: path,
		Transformer:  injectTransformer{},
		Loader:       echoLoader(&calls),
	}

	got, err := s.Render(context.Background(), "/")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, `<script src="/_dev/client.js"></script></body>`) {
		t.Errorf("transformer output missing: %s", got)
	}

	edited := strings.Replace(indexHTML, "<title>App</title>", "<title>Edited</title>", 1)
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err = s.Render(context.Background(), "/")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "<title>Edited</title>") {
		t.Errorf("edit not picked up: %s", got)
	}
	if calls.Load() != 2 {
		t.Errorf("loader called %d times, want 2", calls.Load())
	}
}

func TestDevStrategyErrors(t *testing.T) {
	t.Run("missing template", func(t *testing.T) {
		s := &DevStrategy{TemplatePath: filepath.Join(t.TempDir(), "index.html"), Loader: echoLoader(nil)}
		_, err := s.Render(context.Background(), "/")
		if !ssrerrors.HasCode(err, "E100") {
			t.Fatalf("error = %v, want E100", err)
		}
	})

	t.Run("transform failure", func(t *testing.T) {
		s := &DevStrategy{TemplatePath: writeTemplate(t, indexHTML), Transformer: failingTransformer{}, Loader: echoLoader(nil)}
		_, err := s.Render(context.Background(), "/")
		if !ssrerrors.HasCode(err, "E104") {
			t.Fatalf("error = %v, want E104", err)
		}
	})

	t.Run("placeholder removed while running", func(t *testing.T) {
		s := &DevStrategy{TemplatePath: writeTemplate(t, "<html></html>"), Loader: echoLoader(nil)}
		_, err := s.Render(context.Background(), "/")
		if !ssrerrors.HasCode(err, "E101") {
			t.Fatalf("error = %v, want E101", err)
		}
	})
}
