package render

import (
	"context"
	"os"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

// RenderFunc renders the application for a request URL (path and query)
// to an HTML fragment. Unknown routes render the not-found view.
type RenderFunc func(ctx context.Context, url string) (string, error)

// EntryLoader loads the server entry and returns its render function.
type EntryLoader interface {
	Load(ctx context.Context) (RenderFunc, error)
}

// EntryLoaderFunc adapts a function to EntryLoader.
type EntryLoaderFunc func(ctx context.Context) (RenderFunc, error)

// Load implements EntryLoader.
func (f EntryLoaderFunc) Load(ctx context.Context) (RenderFunc, error) {
	return f(ctx)
}

// Transformer rewrites the raw template before rendering, e.g. to inject
// the dev client script.
type Transformer interface {
	TransformIndexHTML(url, html string) (string, error)
}

// Strategy renders a full HTML document for a request URL.
type Strategy interface {
	Render(ctx context.Context, url string) (string, error)
}

// =============================================================================
// Development
// =============================================================================

// DevStrategy re-reads every input on each request.
type DevStrategy struct {
	// TemplatePath is the source document template (usually index.html).
	TemplatePath string

	// Transformer is applied to the template text. Optional.
	Transformer Transformer

	// Loader reloads the server entry from source.
	Loader EntryLoader
}

// Render implements Strategy.
func (s *DevStrategy) Render(ctx context.Context, url string) (string, error) {
	data, err := os.ReadFile(s.TemplatePath)
	if err != nil {
		return "", ssrerrors.New("E100").WithDetail(s.TemplatePath).Wrap(err)
	}

	html := string(data)
	if s.Transformer != nil {
		html, err = s.Transformer.TransformIndexHTML(url, html)
		if err != nil {
			return "", ssrerrors.FromError(err, "E104")
		}
	}

	tmpl, err := ParseTemplate(s.TemplatePath, html)
	if err != nil {
		return "", err
	}

	render, err := s.Loader.Load(ctx)
	if err != nil {
		return "", ssrerrors.FromError(err, "E102")
	}

	return renderInto(ctx, tmpl, render, url)
}

// =============================================================================
// Production
// =============================================================================

// ProdStrategy holds the built template and entry. It never changes after
// construction and is shared by all requests.
type ProdStrategy struct {
	tmpl   *Template
	render RenderFunc
}

// NewProdStrategy reads the built template and loads the built entry.
func NewProdStrategy(ctx context.Context, templatePath string, loader EntryLoader) (*ProdStrategy, error) {
	tmpl, err := LoadTemplate(templatePath)
	if err != nil {
		return nil, err
	}

	render, err := loader.Load(ctx)
	if err != nil {
		return nil, ssrerrors.FromError(err, "E102")
	}

	return NewStaticStrategy(tmpl, render), nil
}

// NewStaticStrategy builds a ProdStrategy from an already parsed template
// and render function.
func NewStaticStrategy(tmpl *Template, render RenderFunc) *ProdStrategy {
	return &ProdStrategy{tmpl: tmpl, render: render}
}

// Template returns the cached document template.
func (s *ProdStrategy) Template() *Template {
	return s.tmpl
}

// Render implements Strategy.
func (s *ProdStrategy) Render(ctx context.Context, url string) (string, error) {
	return renderInto(ctx, s.tmpl, s.render, url)
}

func renderInto(ctx context.Context, tmpl *Template, render RenderFunc, url string) (string, error) {
	fragment, err := render(ctx, url)
	if err != nil {
		return "", ssrerrors.FromError(err, "E103")
	}
	return tmpl.Splice(fragment), nil
}
