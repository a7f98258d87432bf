package payload

import "strings"

// Get extracts a nested value from a decoded JSON document using a
// dot-separated path ("sleep.info.score"). The found flag distinguishes a
// missing path from a path that resolves to an explicit null: a field set to
// null is valid data, an absent field is not.
func Get(doc map[string]any, path string) (any, bool) {
	if doc == nil || path == "" {
		return nil, false
	}

	var current any = doc
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := node[key]
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}
