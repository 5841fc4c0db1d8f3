package formstate

import (
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/schema"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func defaultSanitizer() Sanitizer {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// HandleChange applies raw input from a control to path, coerced according to
// the field's kind:
//
//   - text: stringified, HTML stripped when the field (or engine) sanitises
//   - checkbox: bool for single boxes; for groups (current value is a
//     sequence) input names the option whose membership is toggled
//   - radio, select: must be one of the field's options when it declares any
//   - array: rejected with ErrUnsupportedChange, use the array operations
//
// Paths without a schema field are written as is.
func (e *Engine) HandleChange(path string, input any) error {
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return err
	}
	field, known := e.lookupField(path)
	if !known {
		return e.SetFieldValue(path, input)
	}

	return e.update(e.validateOnChange, func() error {
		current, _ := fieldpath.Get(e.values, parsed)
		value, err := e.coerce(field, current, input)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return fieldpath.Set(e.values, parsed, value)
	})
}

// ToggleOption adds or removes option from the checkbox group at path.
func (e *Engine) ToggleOption(path, option string, checked bool) error {
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return err
	}
	field, known := e.lookupField(path)
	if known && len(field.Options) > 0 && !slices.Contains(field.Options, option) {
		return fmt.Errorf("%s: %w %q", path, ErrInvalidOption, option)
	}
	return e.update(e.validateOnChange, func() error {
		current, _ := fieldpath.Get(e.values, parsed)
		group, err := asGroup(current)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return fieldpath.Set(e.values, parsed, setMembership(group, option, checked))
	})
}

func (e *Engine) lookupField(path string) (schema.Field, bool) {
	if e.lookup == nil {
		return schema.Field{}, false
	}
	return e.lookup.Lookup(path)
}

func (e *Engine) coerce(field schema.Field, current, input any) (any, error) {
	switch field.Kind {
	case schema.KindCheckbox:
		if group, ok := current.([]any); ok {
			option := fmt.Sprint(input)
			if len(field.Options) > 0 && !slices.Contains(field.Options, option) {
				return nil, fmt.Errorf("%w %q", ErrInvalidOption, option)
			}
			return setMembership(group, option, !containsOption(group, option)), nil
		}
		return toBool(input)
	case schema.KindRadio, schema.KindSelect:
		option := fmt.Sprint(input)
		if input == nil {
			option = ""
		}
		if option != "" && len(field.Options) > 0 && !slices.Contains(field.Options, option) {
			return nil, fmt.Errorf("%w %q", ErrInvalidOption, option)
		}
		return option, nil
	case schema.KindArray, schema.KindGroup:
		return nil, ErrUnsupportedChange
	default:
		text := ""
		if input != nil {
			text = fmt.Sprint(input)
		}
		if field.Sanitize || e.sanitizeAll {
			text = e.sanitize(text)
		}
		return text, nil
	}
}

func (e *Engine) sanitize(text string) string {
	s := e.sanitizer
	if s == nil {
		s = defaultSanitizer()
	}
	// the strict policy escapes entities; values hold plain text
	return html.UnescapeString(s.Sanitize(text))
}

func toBool(input any) (bool, error) {
	switch typed := input.(type) {
	case bool:
		return typed, nil
	case nil:
		return false, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "on", "1", "yes":
			return true, nil
		case "false", "off", "0", "no", "":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: cannot use %v as a checkbox value", ErrInvalidOption, input)
}

func asGroup(current any) ([]any, error) {
	switch typed := current.(type) {
	case nil:
		return nil, nil
	case []any:
		return typed, nil
	default:
		return nil, fmt.Errorf("%w: checkbox group holds %T", ErrNotArray, current)
	}
}

func containsOption(group []any, option string) bool {
	for _, item := range group {
		if fmt.Sprint(item) == option {
			return true
		}
	}
	return false
}

// setMembership returns a new group with option present or absent, keeping
// the order of the remaining members.
func setMembership(group []any, option string, checked bool) []any {
	if containsOption(group, option) == checked {
		return append([]any{}, group...)
	}
	out := make([]any, 0, len(group)+1)
	for _, item := range group {
		if fmt.Sprint(item) == option {
			continue
		}
		out = append(out, item)
	}
	if checked {
		out = append(out, option)
	}
	return out
}
