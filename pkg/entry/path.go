package entry

import (
	"errors"
	"net/url"
	"strings"
)

var (
	errBadPath        = errors.New("invalid path")
	errEscapesRoot    = errors.New("path escapes root via ..")
	errEncodedSlash   = errors.New("encoded slash in segment")
	errBadPercentCode = errors.New("invalid percent escape sequence")
)

// canonicalSegments normalizes a URL path into decoded segments: repeated
// slashes collapse, "." segments drop and ".." pops, never above the root.
// Backslashes, NUL bytes, bad escapes and encoded slashes are rejected.
func canonicalSegments(p string) ([]string, error) {
	if strings.ContainsAny(p, "\\\x00") || strings.Contains(strings.ToUpper(p), "%00") {
		return nil, errBadPath
	}

	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return nil, errEscapesRoot
			}
			out = out[:len(out)-1]
			continue
		}

		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return nil, errBadPercentCode
		}
		if strings.Contains(decoded, "/") {
			return nil, errEncodedSlash
		}
		out = append(out, decoded)
	}
	return out, nil
}
