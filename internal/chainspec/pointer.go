package chainspec

import "strings"

// jsonPointer is a `/`-separated JSON Pointer (RFC 6901 subset, no `~`
// escaping since every segment this package uses is a plain identifier).
type jsonPointer string

func (p jsonPointer) segments() []string {
	s := strings.TrimPrefix(string(p), "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// dotPath converts a pointer to the dot-separated path gjson/sjson expect.
func (p jsonPointer) dotPath() string {
	return strings.Join(p.segments(), ".")
}

func (p jsonPointer) join(segment string) jsonPointer {
	return jsonPointer(string(p) + "/" + segment)
}

// navigate walks doc following the pointer's segments, returning the
// innermost map[string]interface{} found and true if the full path
// resolved to a map.
func navigate(doc map[string]interface{}, p jsonPointer) (map[string]interface{}, bool) {
	cur := doc
	for _, seg := range p.segments() {
		next, ok := cur[seg]
		if !ok {
			return nil, false
		}
		m, ok := next.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur = m
	}
	return cur, true
}

// exists reports whether the pointer resolves to any value (map or not).
func exists(doc map[string]interface{}, p jsonPointer) bool {
	segs := p.segments()
	if len(segs) == 0 {
		return true
	}
	cur := map[string]interface{}(doc)
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return false
		}
		if i == len(segs)-1 {
			return true
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return false
		}
		cur = m
	}
	return true
}

// ensureMapAt walks/creates maps along the pointer and returns the
// innermost map, creating missing intermediate maps as it goes.
func ensureMapAt(doc map[string]interface{}, p jsonPointer) map[string]interface{} {
	cur := doc
	for _, seg := range p.segments() {
		next, ok := cur[seg]
		if !ok {
			m := map[string]interface{}{}
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]interface{})
		if !ok {
			m = map[string]interface{}{}
			cur[seg] = m
		}
		cur = m
	}
	return cur
}
