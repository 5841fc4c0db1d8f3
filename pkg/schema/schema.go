package schema

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
)

// Schema is a static constraint tree: an ordered list of fields, each with an
// ordered list of rules, evaluated by one interpreter. Fields must not be
// modified once the schema has been used.
type Schema struct {
	Fields []Field `json:"fields" yaml:"fields"`

	once       sync.Once
	compiled   []compiledField
	byPath     map[string]int
	compileErr error
}

var (
	_ Validator    = (*Schema)(nil)
	_ ShapeChecker = (*Schema)(nil)
	_ FieldLookup  = (*Schema)(nil)
)

// New builds a schema and compiles its rules eagerly so configuration errors
// surface at construction.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{Fields: fields}
	if err := s.Compile(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is New for schemas declared as package-level literals.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

type compiledField struct {
	field Field
	path  fieldpath.Path
	rules []compiledRule
}

type compiledRule struct {
	kind    string
	message string
	number  float64
	re      *regexp.Regexp
	allowed map[string]struct{}
}

// Compile parses paths, thresholds and patterns. It runs once; later calls
// return the first result.
func (s *Schema) Compile() error {
	if s == nil {
		return &ConfigError{Reason: "schema is nil"}
	}
	s.once.Do(func() {
		s.compiled, s.byPath, s.compileErr = compileFields(s.Fields)
	})
	return s.compileErr
}

func compileFields(fields []Field) ([]compiledField, map[string]int, error) {
	out := make([]compiledField, 0, len(fields))
	byPath := make(map[string]int, len(fields))
	for _, field := range fields {
		path, err := fieldpath.Parse(strings.TrimSpace(field.Path))
		if err != nil {
			return nil, nil, &ConfigError{Path: field.Path, Reason: err.Error()}
		}
		if !field.Kind.Valid() {
			return nil, nil, &ConfigError{Path: field.Path, Reason: fmt.Sprintf("unknown field kind %q", field.Kind)}
		}
		key := path.String()
		if _, dup := byPath[key]; dup {
			return nil, nil, &ConfigError{Path: key, Reason: "field declared twice"}
		}
		field.Path = key

		cf := compiledField{field: field, path: path}
		for _, rule := range field.Rules {
			cr, err := compileRule(field, rule)
			if err != nil {
				return nil, nil, err
			}
			cf.rules = append(cf.rules, cr)
		}
		byPath[key] = len(out)
		out = append(out, cf)
	}
	return out, byPath, nil
}

func compileRule(field Field, rule Rule) (compiledRule, error) {
	kind := strings.TrimSpace(rule.Kind)
	cr := compiledRule{kind: kind, message: strings.TrimSpace(rule.Message)}
	if cr.message == "" {
		msg, ok := defaultMessages[kind]
		if !ok {
			return cr, &ConfigError{Path: field.Path, Reason: fmt.Sprintf("unknown rule kind %q", rule.Kind)}
		}
		cr.message = msg
	}

	switch kind {
	case RuleRequired:
	case RuleMinLength, RuleMaxLength, RuleMinItems, RuleMaxItems:
		n, err := strconv.Atoi(strings.TrimSpace(rule.Params["value"]))
		if err != nil || n < 0 {
			return cr, &ConfigError{Path: field.Path, Reason: fmt.Sprintf("%s expects a non-negative integer value, got %q", kind, rule.Params["value"])}
		}
		cr.number = float64(n)
	case RuleMin, RuleMax:
		v, err := strconv.ParseFloat(strings.TrimSpace(rule.Params["value"]), 64)
		if err != nil {
			return cr, &ConfigError{Path: field.Path, Reason: fmt.Sprintf("%s expects a numeric value, got %q", kind, rule.Params["value"])}
		}
		cr.number = v
	case RulePattern:
		re, err := regexp.Compile(rule.Params["pattern"])
		if err != nil {
			return cr, &ConfigError{Path: field.Path, Reason: fmt.Sprintf("pattern: %v", err)}
		}
		cr.re = re
	case RuleOneOf:
		options := field.Options
		if raw := strings.TrimSpace(rule.Params["values"]); raw != "" {
			options = strings.Split(raw, ",")
		}
		if len(options) == 0 {
			return cr, &ConfigError{Path: field.Path, Reason: "oneOf requires options"}
		}
		cr.allowed = make(map[string]struct{}, len(options))
		for _, opt := range options {
			cr.allowed[strings.TrimSpace(opt)] = struct{}{}
		}
	default:
		return cr, &ConfigError{Path: field.Path, Reason: fmt.Sprintf("unknown rule kind %q", rule.Kind)}
	}
	return cr, nil
}

// Lookup returns the field declared for a concrete value path. Indices are
// matched against `[]` wildcards, so `pets[3].name` finds `pets[].name`.
func (s *Schema) Lookup(path string) (Field, bool) {
	if s.Compile() != nil {
		return Field{}, false
	}
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return Field{}, false
	}
	if idx, ok := s.byPath[parsed.String()]; ok {
		return s.compiled[idx].field, true
	}
	if idx, ok := s.byPath[parsed.Generalize().String()]; ok {
		return s.compiled[idx].field, true
	}
	return Field{}, false
}

// CheckShape verifies every schema path resolves inside values. Sequences
// that are currently empty match any element path.
func (s *Schema) CheckShape(values map[string]any) error {
	if err := s.Compile(); err != nil {
		return err
	}
	for _, cf := range s.compiled {
		if _, err := expand(values, cf.path); err != nil {
			return err
		}
	}
	return nil
}

// Validate walks values depth-first along each field path and applies the
// field's rules. Required short-circuits; otherwise only the first failing
// rule is reported per concrete path.
func (s *Schema) Validate(ctx context.Context, values map[string]any) (Errors, error) {
	if err := s.Compile(); err != nil {
		return nil, err
	}
	out := make(Errors)
	for _, cf := range s.compiled {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		targets, err := expand(values, cf.path)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			msg, err := cf.evaluate(ctx, target.value)
			if err != nil {
				return nil, fmt.Errorf("schema: check %s: %w", target.path, err)
			}
			if msg != "" {
				out[target.path] = msg
			}
		}
	}
	return out, nil
}

func (cf compiledField) evaluate(ctx context.Context, value any) (string, error) {
	for _, rule := range cf.rules {
		if rule.kind == RuleRequired {
			if isEmpty(value) {
				return rule.message, nil
			}
			continue
		}
		if value == nil {
			continue
		}
		if msg := rule.apply(value); msg != "" {
			return msg, nil
		}
	}
	if cf.field.Check != nil {
		return cf.field.Check(ctx, value)
	}
	return "", nil
}

func (r compiledRule) apply(value any) string {
	switch r.kind {
	case RuleMinLength, RuleMaxLength:
		n, ok := length(value)
		if !ok {
			return messageInvalidType
		}
		if r.kind == RuleMinLength && float64(n) < r.number {
			return r.message
		}
		if r.kind == RuleMaxLength && float64(n) > r.number {
			return r.message
		}
	case RuleMinItems, RuleMaxItems:
		list, ok := value.([]any)
		if !ok {
			return messageInvalidType
		}
		if r.kind == RuleMinItems && float64(len(list)) < r.number {
			return r.message
		}
		if r.kind == RuleMaxItems && float64(len(list)) > r.number {
			return r.message
		}
	case RuleMin, RuleMax:
		n, ok := number(value)
		if !ok {
			return messageInvalidType
		}
		if r.kind == RuleMin && n < r.number {
			return r.message
		}
		if r.kind == RuleMax && n > r.number {
			return r.message
		}
	case RulePattern:
		str, ok := value.(string)
		if !ok {
			return messageInvalidType
		}
		if !r.re.MatchString(str) {
			return r.message
		}
	case RuleOneOf:
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if !r.allows(item) {
					return r.message
				}
			}
			return ""
		}
		if str, ok := value.(string); ok && str == "" {
			return ""
		}
		if !r.allows(value) {
			return r.message
		}
	}
	return ""
}

func (r compiledRule) allows(value any) bool {
	_, ok := r.allowed[fmt.Sprint(value)]
	return ok
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}

func length(value any) (int, bool) {
	switch typed := value.(type) {
	case string:
		return utf8.RuneCountInString(typed), true
	case []any:
		return len(typed), true
	default:
		return 0, false
	}
}

func number(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		v, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return v, err == nil
	default:
		return 0, false
	}
}

type target struct {
	path  string
	value any
}

// expand resolves a (possibly wildcarded) schema path into the concrete
// values it addresses. Fixed structure must exist in values; below a wildcard
// a nil element or an absent member resolves to a nil value so the field's
// rules still run against it.
func expand(values map[string]any, path fieldpath.Path) ([]target, error) {
	var out []target
	if err := expandInto(values, path, nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func expandInto(node any, rest, prefix fieldpath.Path, lenient bool, out *[]target) error {
	if len(rest) == 0 {
		*out = append(*out, target{path: prefix.String(), value: node})
		return nil
	}
	seg := rest[0]
	next := prefix.Append(seg)
	switch seg.Kind {
	case fieldpath.KeySegment:
		if node == nil && lenient {
			return expandInto(nil, rest[1:], next, lenient, out)
		}
		obj, ok := node.(map[string]any)
		if !ok {
			return &ConfigError{Path: prefix.String(), Reason: fmt.Sprintf("expected an object, found %T", node)}
		}
		child, ok := obj[seg.Key]
		if !ok && !lenient {
			return &ConfigError{Path: next.String(), Reason: "path does not exist in form values"}
		}
		return expandInto(child, rest[1:], next, lenient, out)
	case fieldpath.IndexSegment:
		if node == nil && lenient {
			return expandInto(nil, rest[1:], next, lenient, out)
		}
		list, ok := node.([]any)
		if !ok {
			return &ConfigError{Path: prefix.String(), Reason: fmt.Sprintf("expected a sequence, found %T", node)}
		}
		if seg.Index >= len(list) {
			if lenient {
				return expandInto(nil, rest[1:], next, lenient, out)
			}
			return &ConfigError{Path: next.String(), Reason: "index out of range"}
		}
		return expandInto(list[seg.Index], rest[1:], next, lenient, out)
	default:
		if node == nil && lenient {
			return nil
		}
		list, ok := node.([]any)
		if !ok {
			return &ConfigError{Path: prefix.String(), Reason: fmt.Sprintf("expected a sequence, found %T", node)}
		}
		for i, item := range list {
			if err := expandInto(item, rest[1:], prefix.Append(fieldpath.Index(i)), true, out); err != nil {
				return err
			}
		}
		return nil
	}
}
