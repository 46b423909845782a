package dev

import (
	"path/filepath"
	"strings"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
	"github.com/vango-dev/ssrhost/pkg/entry"
)

// Remapper rewrites render errors and panic stacks to project-relative
// source positions.
type Remapper struct {
	// Root is the project directory positions are made relative to.
	Root string

	// PagesDir is where template names reported by html/template live.
	PagesDir string
}

// FixStacktrace returns err with its location and stack frames rewritten.
// Errors without a coded error in their chain are coded E103 when a
// template position can be recovered, and returned unchanged otherwise.
func (m Remapper) FixStacktrace(err error) error {
	if err == nil {
		return nil
	}

	var coded *ssrerrors.Error
	if !ssrerrors.As(err, &coded) {
		if _, _, _, ok := entry.TemplatePosition(err); !ok {
			return err
		}
		coded = ssrerrors.New("E103").Wrap(err)
	}

	fixed := *coded
	if fixed.Location == nil {
		if name, line, col, ok := entry.TemplatePosition(coded); ok {
			fixed.WithLocation(filepath.Join(m.PagesDir, filepath.FromSlash(name)), line, col)
		}
	}
	if fixed.Location != nil {
		loc := *fixed.Location
		loc.File = m.rel(loc.File)
		fixed.Location = &loc
	}
	fixed.Stack = m.projectFrames(coded.Stack)
	return &fixed
}

// projectFrames keeps the frames inside Root, made relative. When none are,
// the stack is returned unchanged.
func (m Remapper) projectFrames(frames []ssrerrors.Frame) []ssrerrors.Frame {
	if len(frames) == 0 || m.Root == "" {
		return frames
	}
	var out []ssrerrors.Frame
	for _, f := range frames {
		if rel, ok := m.inside(f.File); ok {
			f.File = rel
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return frames
	}
	return out
}

func (m Remapper) rel(p string) string {
	if rel, ok := m.inside(p); ok {
		return rel
	}
	return filepath.ToSlash(p)
}

func (m Remapper) inside(p string) (string, bool) {
	if m.Root == "" || p == "" {
		return "", false
	}
	root, err := filepath.Abs(m.Root)
	if err != nil {
		return "", false
	}
	abs := p
	if !filepath.IsAbs(abs) {
		if abs, err = filepath.Abs(p); err != nil {
			return "", false
		}
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
