package dev

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ChangeKind classifies a changed file by how browsers pick it up.
type ChangeKind int

const (
	// ChangeSource needs a full page reload.
	ChangeSource ChangeKind = iota
	// ChangeCSS can be swapped without reloading the page.
	ChangeCSS
)

func (k ChangeKind) String() string {
	if k == ChangeCSS {
		return "css"
	}
	return "source"
}

// Change is one detected file change.
type Change struct {
	Path    string
	Kind    ChangeKind
	Removed bool
}

// DefaultIgnore lists directory and file name globs the watcher skips.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"tmp",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls a set of directories for modified, added and removed files.
type Watcher struct {
	paths    []string
	ignore   []string
	interval time.Duration

	mu      sync.Mutex
	stamps  map[string]time.Time
	started bool
}

// NewWatcher creates a watcher. Interval defaults to 200ms and ignore to
// DefaultIgnore.
func NewWatcher(paths []string, interval time.Duration, ignore []string) *Watcher {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if ignore == nil {
		ignore = DefaultIgnore
	}
	return &Watcher{
		paths:    paths,
		ignore:   ignore,
		interval: interval,
		stamps:   make(map[string]time.Time),
	}
}

// Run polls until ctx is done, calling fn with each non-empty batch of
// changes.
func (w *Watcher) Run(ctx context.Context, fn func([]Change)) error {
	w.Poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if changes := w.Poll(); len(changes) > 0 {
				fn(changes)
			}
		}
	}
}

// Poll rescans the watched paths and returns the changes since the previous
// call, sorted by path. The first call records a baseline and returns nil.
func (w *Watcher) Poll() []Change {
	current := make(map[string]time.Time)
	for _, root := range w.paths {
		filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if w.skip(d.Name()) {
				if d.IsDir() && p != root {
					return filepath.SkipDir
				}
				if !d.IsDir() {
					return nil
				}
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			current[p] = info.ModTime()
			return nil
		})
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	previous := w.stamps
	w.stamps = current
	if !w.started {
		w.started = true
		return nil
	}

	var changes []Change
	for p, mod := range current {
		if old, ok := previous[p]; !ok || !mod.Equal(old) {
			changes = append(changes, Change{Path: p, Kind: classifyChange(p)})
		}
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			changes = append(changes, Change{Path: p, Kind: classifyChange(p), Removed: true})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

func (w *Watcher) skip(name string) bool {
	for _, pattern := range w.ignore {
		if name == pattern {
			return true
		}
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := filepath.Match(pattern, name); ok {
				return true
			}
		}
	}
	return false
}

func classifyChange(path string) ChangeKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css", ".scss", ".sass", ".less":
		return ChangeCSS
	default:
		return ChangeSource
	}
}

// OnlyCSS reports whether every change can be applied as a stylesheet swap.
func OnlyCSS(changes []Change) bool {
	if len(changes) == 0 {
		return false
	}
	for _, c := range changes {
		if c.Kind != ChangeCSS || c.Removed {
			return false
		}
	}
	return true
}
