package assets

// Resolver maps source asset names to URL paths.
type Resolver interface {
	// Asset returns the URL path for a source asset, e.g.
	// "src/entry-client.ts" → "/assets/entry-client-a1b2c3d4.js".
	Asset(source string) string

	// CSS returns URL paths of the stylesheets a source asset needs.
	CSS(source string) []string
}

type manifestResolver struct {
	manifest *Manifest
	base     string
}

// NewResolver resolves through a manifest. base is prepended to every
// resolved file, normally "/".
func NewResolver(m *Manifest, base string) Resolver {
	return &manifestResolver{
		manifest: m,
		base:     base,
	}
}

func (r *manifestResolver) Asset(source string) string {
	return r.base + r.manifest.Resolve(source)
}

func (r *manifestResolver) CSS(source string) []string {
	files := r.manifest.CSS(source)
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = r.base + f
	}
	return out
}

// passthrough serves sources by their own name; the dev bundler compiles
// them on request.
type passthrough struct {
	base string
}

// NewPassthroughResolver returns a resolver for development where sources
// are served as-is. Stylesheets are imported by the scripts themselves, so
// CSS always returns nil.
func NewPassthroughResolver(base string) Resolver {
	return &passthrough{base: base}
}

func (p *passthrough) Asset(source string) string {
	return p.base + source
}

func (p *passthrough) CSS(string) []string {
	return nil
}
