// Package assets resolves source asset names to the fingerprinted files
// written by the client build.
//
// The client build writes dist/client/manifest.json. Two shapes are
// accepted: a flat mapping
//
//	{"app.js": "app.a1b2c3d4.js"}
//
// and the bundler's chunk manifest
//
//	{
//	  "src/entry-client.ts": {
//	    "file": "assets/entry-client-a1b2c3d4.js",
//	    "css": ["assets/entry-client-e5f6a7b8.css"],
//	    "isEntry": true
//	  }
//	}
//
// Page templates call the resolver through the "asset" and "assetCSS"
// template functions:
//
//	<script type="module" src="{{asset "src/entry-client.ts"}}"></script>
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

// Entry describes one built chunk.
type Entry struct {
	File    string   `json:"file"`
	CSS     []string `json:"css,omitempty"`
	Imports []string `json:"imports,omitempty"`
	IsEntry bool     `json:"isEntry,omitempty"`
}

// Manifest maps source asset names to built chunks. A Manifest is
// immutable after construction and safe for concurrent use.
type Manifest struct {
	entries map[string]Entry
}

// NewManifest builds a manifest from a flat source-to-file mapping.
func NewManifest(files map[string]string) *Manifest {
	entries := make(map[string]Entry, len(files))
	for source, file := range files {
		entries[source] = Entry{File: file}
	}
	return &Manifest{entries: entries}
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes either manifest shape.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ssrerrors.New("E106").Wrap(err)
	}

	entries := make(map[string]Entry, len(raw))
	for source, value := range raw {
		var file string
		if err := json.Unmarshal(value, &file); err == nil {
			entries[source] = Entry{File: file}
			continue
		}

		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, ssrerrors.New("E106").Wrap(fmt.Errorf("entry %q: %w", source, err))
		}
		if e.File == "" {
			return nil, ssrerrors.New("E106").Wrap(fmt.Errorf("entry %q has no file", source))
		}
		entries[source] = e
	}

	return &Manifest{entries: entries}, nil
}

// Lookup returns the chunk built from source.
func (m *Manifest) Lookup(source string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	e, ok := m.entries[source]
	return e, ok
}

// Resolve returns the built file for source, or source itself when the
// manifest has no entry for it.
func (m *Manifest) Resolve(source string) string {
	if e, ok := m.Lookup(source); ok {
		return e.File
	}
	return source
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns the names of the chunks marked as entry points, sorted.
func (m *Manifest) Entries() []string {
	if m == nil {
		return nil
	}
	var names []string
	for source, e := range m.entries {
		if e.IsEntry {
			names = append(names, source)
		}
	}
	sort.Strings(names)
	return names
}

// CSS returns the stylesheets of source and of every chunk it imports,
// in import order without duplicates.
func (m *Manifest) CSS(source string) []string {
	var out []string
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true

		e, ok := m.Lookup(name)
		if !ok {
			return
		}
		for _, imp := range e.Imports {
			walk(imp)
		}
		for _, css := range e.CSS {
			if !seen[css] {
				seen[css] = true
				out = append(out, css)
			}
		}
	}
	walk(source)
	return out
}
