package fieldpath

import (
	"fmt"
	"sort"
	"strings"
)

// Get resolves path inside root. Wildcard segments never match.
func Get(root map[string]any, path Path) (any, bool) {
	if root == nil || len(path) == 0 {
		return nil, false
	}
	var current any = root
	for _, seg := range path {
		switch node := current.(type) {
		case map[string]any:
			if seg.Kind != KeySegment {
				return nil, false
			}
			next, ok := node[seg.Key]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			if seg.Kind != IndexSegment || seg.Index >= len(node) {
				return nil, false
			}
			current = node[seg.Index]
		default:
			return nil, false
		}
	}
	return current, true
}

// GetString parses raw and resolves it inside root.
func GetString(root map[string]any, raw string) (any, bool) {
	path, err := Parse(raw)
	if err != nil {
		return nil, false
	}
	return Get(root, path)
}

// Set writes value at path, creating maps for member segments and slices for
// index segments. An index may address an existing element or the slot right
// after the last one; anything further fails with ErrIndexOutOfRange and
// leaves root untouched. Scalars sitting where a container is needed are
// replaced.
func Set(root map[string]any, path Path, value any) error {
	if root == nil {
		return fmt.Errorf("fieldpath: root map is nil")
	}
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if path[0].Kind != KeySegment {
		return fmt.Errorf("%w: %q must start with a member name", ErrInvalidPath, path.String())
	}
	if path.HasWildcard() {
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidPath, path.String())
	}
	if err := checkBounds(root[path[0].Key], path[1:]); err != nil {
		return fmt.Errorf("%w in %q", err, path.String())
	}
	root[path[0].Key] = setIn(root[path[0].Key], path[1:], value)
	return nil
}

// checkBounds walks the existing tree along rest and rejects index segments
// that would leave a gap.
func checkBounds(node any, rest Path) error {
	for _, seg := range rest {
		switch seg.Kind {
		case KeySegment:
			obj, _ := node.(map[string]any)
			node = obj[seg.Key]
		default:
			list, _ := node.([]any)
			if seg.Index > len(list) {
				return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, seg.Index, len(list))
			}
			if seg.Index == len(list) {
				node = nil
				continue
			}
			node = list[seg.Index]
		}
	}
	return nil
}

// setIn returns node with value written at the remaining path. Containers are
// mutated in place where possible; grown slices are returned for the caller to
// store back. Bounds were checked by Set.
func setIn(node any, rest Path, value any) any {
	if len(rest) == 0 {
		return value
	}
	seg := rest[0]
	switch seg.Kind {
	case KeySegment:
		obj, ok := node.(map[string]any)
		if !ok || obj == nil {
			obj = make(map[string]any)
		}
		obj[seg.Key] = setIn(obj[seg.Key], rest[1:], value)
		return obj
	default:
		list, _ := node.([]any)
		if seg.Index == len(list) {
			return append(list, setIn(nil, rest[1:], value))
		}
		list[seg.Index] = setIn(list[seg.Index], rest[1:], value)
		return list
	}
}

// Clone deep-copies maps and slices; other values are shared.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = Clone(v)
		}
		return clone
	case []any:
		if typed == nil {
			return []any(nil)
		}
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = Clone(v)
		}
		return clone
	case []string:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = v
		}
		return clone
	case []map[string]any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = Clone(v)
		}
		return clone
	default:
		return typed
	}
}

// CloneMap deep-copies a value tree, never returning nil.
func CloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return make(map[string]any)
	}
	return Clone(src).(map[string]any)
}

// Leaves lists every leaf path of root in sorted order. Scalars, empty
// containers and sequences holding no objects (checkbox groups) are leaves.
func Leaves(root map[string]any) []string {
	var out []string
	collectLeaves(root, nil, &out)
	sort.Strings(out)
	return out
}

func collectLeaves(node any, prefix Path, out *[]string) {
	switch typed := node.(type) {
	case map[string]any:
		if len(typed) == 0 && len(prefix) > 0 {
			*out = append(*out, prefix.String())
			return
		}
		for key, child := range typed {
			collectLeaves(child, prefix.Append(Key(key)), out)
		}
	case []any:
		if !holdsObjects(typed) {
			*out = append(*out, prefix.String())
			return
		}
		for i, child := range typed {
			collectLeaves(child, prefix.Append(Index(i)), out)
		}
	default:
		if len(prefix) > 0 {
			*out = append(*out, prefix.String())
		}
	}
}

func holdsObjects(list []any) bool {
	for _, item := range list {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

// RemapIndices rewrites keys of m that address elements of the sequence at
// array. fn receives each element index and returns the new index, or false
// to drop the entry. Keys outside array are kept as is.
func RemapIndices[V any](m map[string]V, array Path, fn func(int) (int, bool)) map[string]V {
	out := make(map[string]V, len(m))
	for key, value := range m {
		path, err := Parse(key)
		if err != nil || len(path) <= len(array) || !path.HasPrefix(array) || path[len(array)].Kind != IndexSegment {
			out[key] = value
			continue
		}
		next, keep := fn(path[len(array)].Index)
		if !keep {
			continue
		}
		moved := path.Append()
		moved[len(array)] = Index(next)
		out[moved.String()] = value
	}
	return out
}

// IsUnder reports whether key addresses path itself or something nested in it.
func IsUnder(key, path string) bool {
	if key == path {
		return true
	}
	return strings.HasPrefix(key, path+".") || strings.HasPrefix(key, path+"[")
}
