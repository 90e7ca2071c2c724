package folio

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Slugify converts a string to a lowercase, dash-separated, URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

// PostURL returns the public address of a post.
func PostURL(base, id string) string {
	return BuildURL(base, "posts", id)
}

// queryInt parses an integer query parameter, returning fallback when the
// parameter is missing or not a number.
func queryInt(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// hasQuery reports whether any of the named query parameters is present.
func hasQuery(c echo.Context, names ...string) bool {
	q := c.QueryParams()
	for _, n := range names {
		if _, ok := q[n]; ok {
			return true
		}
	}
	return false
}
