package render

import (
	"os"
	"strings"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

// Placeholder marks where the rendered fragment goes in a template.
const Placeholder = "<!--app-html-->"

// Template is a parsed document template. It is immutable.
type Template struct {
	name   string
	before string
	after  string
}

// ParseTemplate splits html at the first placeholder. A document without
// one is rejected with E101.
func ParseTemplate(name, html string) (*Template, error) {
	before, after, ok := strings.Cut(html, Placeholder)
	if !ok {
		return nil, ssrerrors.New("E101").
			WithDetail("template " + name + " does not contain " + Placeholder).
			WithSuggestion("Add " + Placeholder + " inside the element the client hydrates, e.g. <div id=\"app\">" + Placeholder + "</div>")
	}
	return &Template{name: name, before: before, after: after}, nil
}

// LoadTemplate reads and parses a template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ssrerrors.New("E100").WithDetail(path).Wrap(err)
	}
	t, err := ParseTemplate(path, string(data))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the name the template was parsed under.
func (t *Template) Name() string {
	return t.name
}

// Splice returns the document with fragment in place of the placeholder.
// Later occurrences of the placeholder are left untouched.
func (t *Template) Splice(fragment string) string {
	var b strings.Builder
	b.Grow(len(t.before) + len(fragment) + len(t.after))
	b.WriteString(t.before)
	b.WriteString(fragment)
	b.WriteString(t.after)
	return b.String()
}

// String returns the template source with the placeholder restored.
func (t *Template) String() string {
	return t.before + Placeholder + t.after
}
