package netgate

import (
	"net/url"
	"strings"
)

// CacheKey builds "METHOD:path:query". Query keys are sorted; values of one
// key keep their order. Paths are used as given: no case folding and no
// trailing-slash cleanup, so "/users" and "/users/" are different keys.
func CacheKey(method, path string, params url.Values) string {
	q := params.Encode() // sorts by key
	var b strings.Builder
	b.Grow(len(method) + len(path) + len(q) + 2)
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(':')
	b.WriteString(path)
	b.WriteByte(':')
	b.WriteString(q)
	return b.String()
}

// keyPath extracts the path component of a CacheKey. Encoded queries never
// contain a raw ':' so the last one ends the path.
func keyPath(key string) string {
	first := strings.IndexByte(key, ':')
	last := strings.LastIndexByte(key, ':')
	if first < 0 || last <= first {
		return ""
	}
	return key[first+1 : last]
}

// InvalidationMode selects which cached keys a mutation of path purges.
type InvalidationMode uint8

const (
	// InvalidateSubstring purges every key containing the mutated path anywhere.
	// Coarse: a mutation of "/users" also purges "GET:/admin/users:".
	InvalidateSubstring InvalidationMode = iota

	// InvalidatePathPrefix purges keys whose path equals the mutated path or
	// lies below it at a segment boundary.
	InvalidatePathPrefix
)

func (m InvalidationMode) String() string {
	switch m {
	case InvalidatePathPrefix:
		return "prefix"
	default:
		return "substring"
	}
}

// ParseInvalidationMode accepts "substring" and "prefix"; "" is substring.
func ParseInvalidationMode(s string) (InvalidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return InvalidateSubstring, nil
	case "prefix":
		return InvalidatePathPrefix, nil
	default:
		return 0, &OptionError{Field: "Invalidation", Reason: "unknown mode " + s}
	}
}

func (m InvalidationMode) matcher(fragment string) func(key string) bool {
	if fragment == "" {
		return func(string) bool { return true }
	}
	if m != InvalidatePathPrefix {
		return func(key string) bool { return strings.Contains(key, fragment) }
	}
	dir := strings.TrimSuffix(fragment, "/") + "/"
	return func(key string) bool {
		p := keyPath(key)
		return p == fragment || strings.HasPrefix(p, dir)
	}
}
