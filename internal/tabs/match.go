package tabs

import (
	"net/url"
	"regexp"
	"strings"
)

// MatchPattern reports whether rawURL matches a Chrome extension match
// pattern such as "*://*.youtube.com/*" or "*://yt_downloader.local/*".
// A "*" scheme matches http and https; a "*." host prefix matches the domain
// and all of its subdomains; "*" in the path matches any run of characters.
// "<all_urls>" matches everything with a scheme Chrome allows.
func MatchPattern(pattern, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return false
	}
	if pattern == "<all_urls>" {
		switch u.Scheme {
		case "http", "https", "ws", "wss", "ftp", "file":
			return true
		}
		return false
	}

	scheme, rest, ok := strings.Cut(pattern, "://")
	if !ok {
		return false
	}
	host, path := rest, "/"
	if i := strings.Index(rest, "/"); i >= 0 {
		host, path = rest[:i], rest[i:]
	}

	if !matchScheme(scheme, u.Scheme) || !matchHost(host, u.Hostname()) {
		return false
	}

	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return globToRegexp(path).MatchString(target)
}

func matchScheme(pattern, scheme string) bool {
	if pattern == "*" {
		return scheme == "http" || scheme == "https"
	}
	return strings.EqualFold(pattern, scheme)
}

func matchHost(pattern, host string) bool {
	pattern = strings.ToLower(pattern)
	host = strings.ToLower(host)
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*."):
		base := pattern[2:]
		return host == base || strings.HasSuffix(host, "."+base)
	default:
		if h, _, ok := strings.Cut(pattern, ":"); ok {
			pattern = h
		}
		return pattern == host
	}
}

func globToRegexp(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}
