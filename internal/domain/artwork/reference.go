package artwork

import (
	"net/url"
	"path"
	"strings"
)

const imageScheme = "image://"

// Reference is a raw artwork value as stored by Kodi: a remote-internal path,
// an image:// wrapped path, or an external http(s) URL.
type Reference string

// IsImageURI reports whether the reference uses the image:// wrapper.
func (r Reference) IsImageURI() bool {
	return strings.HasPrefix(string(r), imageScheme)
}

// Decode returns the remote-internal path: one image:// prefix stripped and
// percent-decoded, and one trailing separator trimmed.
func (r Reference) Decode() string {
	s := string(r)
	if strings.HasPrefix(s, imageScheme) {
		s = s[len(imageScheme):]
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
	}
	return strings.TrimSuffix(s, "/")
}

// IsExternal reports whether the decoded reference is an http(s) URL.
func (r Reference) IsExternal() bool {
	return isHTTPURL(r.Decode())
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// baseName returns the last element of a remote path. Both separators are
// accepted since Kodi stores Windows paths verbatim.
func baseName(p string) string {
	p = strings.TrimRight(p, `/\`)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// hasScheme reports whether loc starts with one of the given scheme prefixes
// (e.g. "nfs://").
func hasScheme(loc string, schemes []string) bool {
	lower := strings.ToLower(loc)
	for _, s := range schemes {
		if s != "" && strings.HasPrefix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// splitLocation splits "nfs://host/a/b" into ("nfs://host", "/a/b"). Plain
// paths have an empty root.
func splitLocation(loc string) (root, p string) {
	i := strings.Index(loc, "://")
	if i < 0 {
		return "", loc
	}
	rest := loc[i+3:]
	j := strings.Index(rest, "/")
	if j < 0 {
		return loc, "/"
	}
	return loc[:i+3+j], rest[j:]
}

// parentDir returns the directory containing loc, keeping any scheme root.
func parentDir(loc string) string {
	root, p := splitLocation(strings.TrimSuffix(loc, "/"))
	return root + path.Dir(p)
}

// joinLocation appends name elements to a directory location.
func joinLocation(dir string, elem ...string) string {
	return strings.TrimRight(dir, "/") + "/" + strings.Join(elem, "/")
}
