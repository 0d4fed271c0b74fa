package protocol

import "strings"

// ProtocolFromURL returns the scheme of url: everything before the first
// colon. It returns false when url has no colon or the scheme would be empty.
func ProtocolFromURL(url string) (string, bool) {
	i := strings.IndexByte(url, ':')
	if i <= 0 {
		return "", false
	}
	return url[:i], true
}

// ResourceFromURL returns everything after the first colon of url with
// exactly one leading "//" removed. A url without a scheme is treated as a
// bare resource. Handlers still receive the raw url on Open; this form is
// for display and lookup.
func ResourceFromURL(url string) string {
	resource := url
	if i := strings.IndexByte(url, ':'); i > 0 {
		resource = url[i+1:]
	}
	return strings.TrimPrefix(resource, "//")
}
