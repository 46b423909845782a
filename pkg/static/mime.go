package static

import (
	"path"
	"strings"
)

// DefaultContentType is used for extensions missing from the table.
const DefaultContentType = "application/octet-stream"

// contentTypes is the fixed extension-to-MIME table.
var contentTypes = map[string]string{
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".css":  "text/css",
	".html": "text/html",
	".json": "application/json",
	".ico":  "image/x-icon",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
}

// ContentType returns the MIME type for a file name based on its extension.
func ContentType(name string) string {
	if ct, ok := contentTypes[Ext(name)]; ok {
		return ct
	}
	return DefaultContentType
}

// Ext returns the extension of the last element of name. A single leading
// dot belongs to the base name, so dotfiles such as ".env" have no
// extension while ".env.local" has ".local".
func Ext(name string) string {
	base := path.Base(name)
	if base == ".." {
		return ""
	}
	return path.Ext(strings.TrimPrefix(base, "."))
}

// stripQuery removes the query string from a request URI.
func stripQuery(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i]
	}
	return uri
}

// IsAsset reports whether a request URI names a static asset: its path has
// a file extension and that extension is not ".html". The URI must still be
// escaped; a decoded "?" in the path would cut it short.
func IsAsset(uri string) bool {
	ext := Ext(stripQuery(uri))
	return ext != "" && ext != ".html"
}
