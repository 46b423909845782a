package entry

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
	"github.com/vango-dev/ssrhost/pkg/assets"
	"github.com/vango-dev/ssrhost/pkg/render"
)

const defaultNotFound = `<main class="not-found"><h1>Not Found</h1><p>No page matches {{.Path}}.</p></main>`

// Data is passed to pages and layouts.
type Data struct {
	// URL is the request URL as received (path and query).
	URL string

	// Path is the decoded request path.
	Path string

	// Query holds the parsed query string.
	Query url.Values

	// Params holds route parameters by name.
	Params map[string]string

	// NotFound is true when no page matched and the 404 view is rendering.
	NotFound bool

	// Content is the output of the wrapped page. Only set for layouts.
	Content template.HTML
}

// Param returns a route parameter, or "" when absent.
func (d *Data) Param(name string) string {
	return d.Params[name]
}

// Options configures Build.
type Options struct {
	// Dir is the on-disk directory the files came from. It is only used to
	// attribute errors to source files.
	Dir string

	// Assets resolves names for the "asset" and "assetCSS" functions.
	// Defaults to a passthrough resolver rooted at "/".
	Assets assets.Resolver

	// Funcs are extra template functions available to every file.
	Funcs template.FuncMap
}

type page struct {
	file string
	tmpl *template.Template
}

func (p *page) execute(buf *bytes.Buffer, data *Data) error {
	return p.tmpl.ExecuteTemplate(buf, p.file, data)
}

// Entry is a parsed page directory. It is immutable and safe for
// concurrent use.
type Entry struct {
	root     *node
	notFound *page
	routes   []Route
	dir      string
}

// Build parses every page file in fsys.
func Build(fsys fs.FS, opts Options) (*Entry, error) {
	resolver := opts.Assets
	if resolver == nil {
		resolver = assets.NewPassthroughResolver("/")
	}

	funcs := template.FuncMap{
		"asset":    resolver.Asset,
		"assetCSS": resolver.CSS,
	}
	for name, fn := range opts.Funcs {
		funcs[name] = fn
	}

	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, Ext) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, ssrerrors.New("E102").WithDetail(opts.Dir).Wrap(err)
	}

	e := &Entry{root: &node{}, dir: opts.Dir}

	// Partials go into the shared base before pages are cloned from it.
	base := template.New("_base").Funcs(funcs)
	for _, rel := range files {
		if classify(rel) != kindPartial {
			continue
		}
		src, err := fs.ReadFile(fsys, rel)
		if err != nil {
			return nil, e.fileError("E102", rel, err)
		}
		if _, err := base.New(rel).Parse(string(src)); err != nil {
			return nil, e.fileError("E102", rel, err)
		}
	}

	parse := func(name, src string) (*page, error) {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.New(name).Parse(src); err != nil {
			return nil, err
		}
		return &page{file: name, tmpl: t}, nil
	}

	var pages []*page
	for _, rel := range files {
		kind := classify(rel)
		if kind == kindPartial {
			continue
		}

		src, err := fs.ReadFile(fsys, rel)
		if err != nil {
			return nil, e.fileError("E102", rel, err)
		}
		p, err := parse(rel, string(src))
		if err != nil {
			return nil, e.fileError("E102", rel, err)
		}

		switch kind {
		case kindNotFound:
			e.notFound = p
		case kindLayout:
			pattern, err := dirPattern(path.Dir(rel))
			if err != nil {
				return nil, e.fileError("E102", rel, err)
			}
			n, err := e.root.insert(pattern)
			if err != nil {
				return nil, e.fileError("E105", rel, err)
			}
			n.layout = p
		case kindPage:
			pages = append(pages, p)
		}
	}

	for _, p := range pages {
		pattern, err := pagePattern(p.file)
		if err != nil {
			return nil, e.fileError("E102", p.file, err)
		}
		n, err := e.root.insert(pattern)
		if err != nil {
			return nil, e.fileError("E105", p.file, err)
		}
		if n.page != nil {
			return nil, e.fileError("E105", p.file,
				fmt.Errorf("%s is already served by %s", pattern, n.page.file))
		}
		n.page = p
		e.routes = append(e.routes, Route{Pattern: pattern, File: p.file})
	}

	if e.notFound == nil {
		p, err := parse(notFoundFile, defaultNotFound)
		if err != nil {
			return nil, err
		}
		e.notFound = p
	}

	for i := range e.routes {
		for _, l := range e.root.layoutChain(e.routes[i].Pattern) {
			e.routes[i].Layouts = append(e.routes[i].Layouts, l.file)
		}
	}
	sortRoutes(e.routes)

	return e, nil
}

// fileError builds a coded error attributed to a page file, using the
// position html/template reported when there is one.
func (e *Entry) fileError(code, rel string, err error) *ssrerrors.Error {
	out := ssrerrors.New(code).Wrap(err)
	name, line, col, ok := TemplatePosition(err)
	if !ok {
		name, line, col = rel, 0, 0
	}
	file := name
	if e.dir != "" {
		file = filepath.Join(e.dir, filepath.FromSlash(name))
	}
	if line > 0 {
		return out.WithLocation(file, line, col)
	}
	return out.WithDetail(file)
}

// Routes returns the page routes sorted by pattern.
func (e *Entry) Routes() []Route {
	out := make([]Route, len(e.routes))
	copy(out, e.routes)
	return out
}

// Render implements render.RenderFunc. Unknown and malformed URLs render
// the not-found view.
func (e *Entry) Render(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data := &Data{URL: rawURL, Params: map[string]string{}}

	var (
		p       *page
		layouts []*page
		ok      bool
	)
	if u, err := url.Parse(rawURL); err == nil {
		data.Path = u.Path
		data.Query = u.Query()
		if segments, err := canonicalSegments(u.EscapedPath()); err == nil {
			p, layouts, ok = e.root.match(segments, data.Params, nil)
		}
	}
	if data.Query == nil {
		data.Query = url.Values{}
	}
	if !ok {
		data.NotFound = true
		data.Params = map[string]string{}
		p = e.notFound
		layouts = nil
		if e.root.layout != nil {
			layouts = []*page{e.root.layout}
		}
	}

	var buf bytes.Buffer
	if err := p.execute(&buf, data); err != nil {
		return "", e.fileError("E103", p.file, err)
	}
	for i := len(layouts) - 1; i >= 0; i-- {
		data.Content = template.HTML(buf.String())
		buf.Reset()
		if err := layouts[i].execute(&buf, data); err != nil {
			return "", e.fileError("E103", layouts[i].file, err)
		}
	}
	return buf.String(), nil
}

// Loader loads an Entry from a directory. It implements render.EntryLoader.
type Loader struct {
	// Dir is the page directory.
	Dir string

	// FS overrides reading from Dir, e.g. with an embed.FS. Dir is still
	// used to attribute errors.
	FS fs.FS

	// Assets resolves the "asset" template functions.
	Assets assets.Resolver

	// Funcs are extra template functions.
	Funcs template.FuncMap
}

// Entry parses the directory.
func (l *Loader) Entry(ctx context.Context) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fsys := l.FS
	if fsys == nil {
		if _, err := os.Stat(l.Dir); err != nil {
			return nil, ssrerrors.New("E102").WithDetail(l.Dir).Wrap(err)
		}
		fsys = os.DirFS(l.Dir)
	}

	return Build(fsys, Options{Dir: l.Dir, Assets: l.Assets, Funcs: l.Funcs})
}

// Load implements render.EntryLoader.
func (l *Loader) Load(ctx context.Context) (render.RenderFunc, error) {
	e, err := l.Entry(ctx)
	if err != nil {
		return nil, err
	}
	return e.Render, nil
}
