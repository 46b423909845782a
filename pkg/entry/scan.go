package entry

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Ext is the page template file extension.
const Ext = ".gohtml"

const (
	layoutFile   = "_layout" + Ext
	notFoundFile = "_404" + Ext
)

type fileKind int

const (
	kindPage fileKind = iota
	kindLayout
	kindNotFound
	kindPartial
)

// classify reports what a page-directory file is used for.
func classify(rel string) fileKind {
	base := path.Base(rel)
	switch {
	case base == layoutFile:
		return kindLayout
	case rel == notFoundFile:
		return kindNotFound
	case strings.HasPrefix(base, "_"):
		return kindPartial
	default:
		return kindPage
	}
}

var paramSegment = regexp.MustCompile(`^\[(\.\.\.)?([A-Za-z_][A-Za-z0-9_]*)\]$`)

// pagePattern converts a page file path to its URL pattern.
//
//	index.gohtml             → /
//	blog/index.gohtml        → /blog
//	users/[id].gohtml        → /users/:id
//	docs/[...path].gohtml    → /docs/*path
func pagePattern(rel string) (string, error) {
	p := strings.TrimSuffix(rel, Ext)
	if p == "index" {
		p = ""
	}
	p = strings.TrimSuffix(p, "/index")
	return dirPattern(p)
}

// dirPattern converts a directory path to a URL pattern. Bracket segments
// become parameters; a catch-all must be the last segment.
func dirPattern(dir string) (string, error) {
	if dir == "" || dir == "." {
		return "/", nil
	}

	segments := strings.Split(dir, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "[") {
			continue
		}
		m := paramSegment.FindStringSubmatch(seg)
		if m == nil {
			return "", fmt.Errorf("invalid parameter segment %q", seg)
		}
		if m[1] != "" {
			if i != len(segments)-1 {
				return "", fmt.Errorf("catch-all %q must be the last segment", seg)
			}
			segments[i] = "*" + m[2]
			continue
		}
		segments[i] = ":" + m[2]
	}
	return "/" + strings.Join(segments, "/"), nil
}

var templateErrorPos = regexp.MustCompile(`template: ([^:]+):(\d+)(?::(\d+))?:`)

// TemplatePosition extracts the file name, line and column html/template
// reported in err. Column is zero when the message carries none.
func TemplatePosition(err error) (name string, line, column int, ok bool) {
	if err == nil {
		return "", 0, 0, false
	}
	m := templateErrorPos.FindStringSubmatch(err.Error())
	if m == nil {
		return "", 0, 0, false
	}
	fmt.Sscan(m[2], &line)
	if m[3] != "" {
		fmt.Sscan(m[3], &column)
	}
	return m[1], line, column, true
}
