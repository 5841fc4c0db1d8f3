package formstate

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
)

// SetFieldError records msg for path; an empty message clears it. The path
// must resolve inside the current values.
func (e *Engine) SetFieldError(path, msg string) error {
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return err
	}
	key := parsed.String()
	return e.update(false, func() error {
		if _, ok := fieldpath.Get(e.values, parsed); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPath, path)
		}
		msg = strings.TrimSpace(msg)
		if msg == "" {
			delete(e.fieldErrors, key)
			return nil
		}
		e.fieldErrors[key] = msg
		return nil
	})
}

// ApplyServerErrors merges an error payload returned by a backend into the
// error map. Keys may be JSON pointers (`/body/pets/0/name`), JSONPath-ish
// (`$.pets[0].name`) or dotted paths; common envelope segments (body,
// request, payload, data, attributes) are ignored and the longest prefix
// that resolves in the values wins. The first message per field is kept.
// Messages that match no field are returned, trimmed and de-duplicated, as
// form-level errors. The next Validate replaces the merged entries.
func (e *Engine) ApplyServerErrors(payload map[string][]string) []string {
	if len(payload) == 0 {
		return nil
	}

	var form []string
	e.mu.Lock()
	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		path, ok := e.matchServerPath(rawPath)
		if !ok {
			form = append(form, normalized...)
			continue
		}
		e.fieldErrors[path] = normalized[0]
	}
	e.unlockAndPublish()

	return normalizeMessages(form)
}

func (e *Engine) matchServerPath(raw string) (string, bool) {
	if isFormLevelKey(raw) {
		return "", false
	}
	parsed, err := fieldpath.Parse(fieldpath.FromPointer(raw))
	if err != nil {
		return "", false
	}
	for _, candidate := range []fieldpath.Path{parsed, dropWrapperSegments(parsed)} {
		for end := len(candidate); end > 0; end-- {
			prefix := candidate[:end]
			if prefix[0].Kind != fieldpath.KeySegment {
				break
			}
			if _, ok := fieldpath.Get(e.values, prefix); ok {
				return prefix.String(), true
			}
		}
	}
	return "", false
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
}

func dropWrapperSegments(path fieldpath.Path) fieldpath.Path {
	out := path
	for len(out) > 0 && out[0].Kind == fieldpath.KeySegment {
		if _, ok := wrapperSegments[strings.ToLower(out[0].Key)]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
