package fieldpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPath reports a path that does not follow the `a.b[0].c` grammar.
	ErrInvalidPath = errors.New("fieldpath: invalid path")
	// ErrIndexOutOfRange reports a write more than one element past the end
	// of a sequence.
	ErrIndexOutOfRange = errors.New("fieldpath: index out of range")
)

// SegmentKind discriminates the three segment shapes a path may contain.
type SegmentKind int

const (
	// KeySegment addresses an object member.
	KeySegment SegmentKind = iota
	// IndexSegment addresses a sequence element.
	IndexSegment
	// WildcardSegment (`[]` or `[*]`) matches every element of a sequence.
	// Only schema paths use it.
	WildcardSegment
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

// Path is a parsed field path.
type Path []Segment

// Key builds an object member segment.
func Key(name string) Segment { return Segment{Kind: KeySegment, Key: name} }

// Index builds a sequence element segment.
func Index(i int) Segment { return Segment{Kind: IndexSegment, Index: i} }

// Parse splits a path such as `pets[0].name` into segments. Empty members,
// unterminated brackets and negative indices are rejected.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	var (
		out       Path
		i         int
		expectKey = true
	)
	for i < len(raw) {
		switch raw[i] {
		case '.':
			if expectKey || i == len(raw)-1 {
				return nil, fmt.Errorf("%w: unexpected '.' in %q", ErrInvalidPath, raw)
			}
			expectKey = true
			i++
		case '[':
			end := strings.IndexByte(raw[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated '[' in %q", ErrInvalidPath, raw)
			}
			if len(out) == 0 {
				return nil, fmt.Errorf("%w: %q starts with an index", ErrInvalidPath, raw)
			}
			inner := strings.TrimSpace(raw[i+1 : i+end])
			switch inner {
			case "", "*":
				out = append(out, Segment{Kind: WildcardSegment})
			default:
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("%w: bad index %q in %q", ErrInvalidPath, inner, raw)
				}
				out = append(out, Index(idx))
			}
			expectKey = false
			i += end + 1
			if i < len(raw) && raw[i] != '.' && raw[i] != '[' {
				return nil, fmt.Errorf("%w: expected '.' or '[' after index in %q", ErrInvalidPath, raw)
			}
		default:
			if !expectKey {
				return nil, fmt.Errorf("%w: expected '.' or '[' in %q", ErrInvalidPath, raw)
			}
			end := strings.IndexAny(raw[i:], ".[]")
			if end < 0 {
				end = len(raw) - i
			}
			if end == 0 || (i+end < len(raw) && raw[i+end] == ']') {
				return nil, fmt.Errorf("%w: unexpected ']' in %q", ErrInvalidPath, raw)
			}
			out = append(out, Key(raw[i:i+end]))
			expectKey = false
			i += end
		}
	}
	return out, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String formats the path back into bracket notation.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		switch seg.Kind {
		case KeySegment:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		case IndexSegment:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		case WildcardSegment:
			b.WriteString("[]")
		}
	}
	return b.String()
}

// HasWildcard reports whether any segment is a wildcard.
func (p Path) HasWildcard() bool {
	for _, seg := range p {
		if seg.Kind == WildcardSegment {
			return true
		}
	}
	return false
}

// HasPrefix reports whether p starts with every segment of prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Append returns a new path with segs appended; p is left untouched.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Generalize replaces every index with a wildcard so a concrete value path
// (`pets[2].name`) can be matched against schema paths (`pets[].name`).
func (p Path) Generalize() Path {
	out := p.Append()
	for i, seg := range out {
		if seg.Kind == IndexSegment {
			out[i] = Segment{Kind: WildcardSegment}
		}
	}
	return out
}

// At formats `base[index]`.
func At(base string, index int) string {
	return base + "[" + strconv.Itoa(index) + "]"
}

// Join formats `parent.child`, tolerating an empty parent.
func Join(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

// FromPointer converts JSON pointers (`/pets/0/name`, `#/pets/0/name`),
// JSONPath-ish (`$.pets[0].name`) and dotted (`pets.0.name`) locators into
// bracket notation. Numeric segments become indices.
func FromPointer(raw string) string {
	clean := strings.TrimSpace(raw)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimPrefix(clean, "#")
		clean = strings.TrimPrefix(clean, "/")
		clean = strings.TrimPrefix(clean, ".")
		clean = strings.TrimPrefix(clean, "$")
	}
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	var out Path
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		if idx, err := strconv.Atoi(segment); err == nil && idx >= 0 && len(out) > 0 {
			out = append(out, Index(idx))
			continue
		}
		out = append(out, Key(segment))
	}
	return out.String()
}
