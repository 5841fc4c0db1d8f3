package schema

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind is the tagged variant of input controls a field can be bound to. Each
// kind carries its own value coercion rule, applied by the form engine.
type Kind string

const (
	KindText     Kind = "text"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
	KindSelect   Kind = "select"
	KindArray    Kind = "array"
	// KindGroup is an object whose members are fields of their own; it has no
	// control and only carries object-level rules such as required.
	KindGroup Kind = "group"
)

// Valid reports whether k is a known kind. The empty kind is treated as text.
func (k Kind) Valid() bool {
	switch k {
	case "", KindText, KindCheckbox, KindRadio, KindSelect, KindArray, KindGroup:
		return true
	default:
		return false
	}
}

const (
	RuleRequired  = "required"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleMin       = "min"
	RuleMax       = "max"
	RuleOneOf     = "oneOf"
	RuleMinItems  = "minItems"
	RuleMaxItems  = "maxItems"
)

const messageInvalidType = "invalid type"

var defaultMessages = map[string]string{
	RuleRequired:  "required",
	RuleMinLength: "min length not met",
	RuleMaxLength: "max length exceeded",
	RulePattern:   "does not match required pattern",
	RuleMin:       "below minimum",
	RuleMax:       "above maximum",
	RuleOneOf:     "not an allowed option",
	RuleMinItems:  "too few items",
	RuleMaxItems:  "too many items",
}

// Rule is a single constraint applied to a field. Thresholds live in
// Params["value"], regular expressions in Params["pattern"] and allowed
// options in Params["values"] (comma separated). Message overrides the
// default text reported when the rule fails.
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// CheckFunc is a custom, possibly blocking, field check. It returns a non-empty
// message when the value is invalid, or an error to abort the validation run.
type CheckFunc func(ctx context.Context, value any) (string, error)

// Field binds an ordered rule list (and presentation hints the engine needs
// for coercion) to a path. Paths may use `[]` to address every element of a
// sequence, e.g. `pets[].name`.
type Field struct {
	Path     string   `json:"path" yaml:"path"`
	Kind     Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Sanitize bool     `json:"sanitize,omitempty" yaml:"sanitize,omitempty"`
	Rules    []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`

	Check CheckFunc `json:"-" yaml:"-"`
}

// Errors maps concrete field paths to a single human readable message.
type Errors map[string]string

// Paths returns the failing paths in sorted order.
func (e Errors) Paths() []string {
	out := make([]string, 0, len(e))
	for path := range e {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Clone copies the map; a nil receiver yields an empty map.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Validator is the contract the form engine consumes. Implementations must
// return the complete set of failures for values; the engine replaces its
// error map wholesale with the result.
type Validator interface {
	Validate(ctx context.Context, values map[string]any) (Errors, error)
}

// ValidatorFunc adapts a function into a Validator.
type ValidatorFunc func(ctx context.Context, values map[string]any) (Errors, error)

// Validate delegates to the underlying function.
func (fn ValidatorFunc) Validate(ctx context.Context, values map[string]any) (Errors, error) {
	return fn(ctx, values)
}

// ShapeChecker is implemented by validators that can verify default values
// match the structure they expect.
type ShapeChecker interface {
	CheckShape(values map[string]any) error
}

// FieldLookup resolves the schema field governing a concrete value path.
type FieldLookup interface {
	Lookup(path string) (Field, bool)
}

// ConfigError reports a schema that does not fit the values it is applied to,
// or a rule that cannot be interpreted.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Reason)
}

// Required marks a field as mandatory.
func Required(message ...string) Rule {
	return Rule{Kind: RuleRequired, Message: first(message)}
}

// MinLength bounds string length (in runes) or sequence length from below.
func MinLength(n int, message ...string) Rule {
	return Rule{Kind: RuleMinLength, Params: map[string]string{"value": strconv.Itoa(n)}, Message: first(message)}
}

// MaxLength bounds string length (in runes) or sequence length from above.
func MaxLength(n int, message ...string) Rule {
	return Rule{Kind: RuleMaxLength, Params: map[string]string{"value": strconv.Itoa(n)}, Message: first(message)}
}

// Pattern requires strings to match expr.
func Pattern(expr string, message ...string) Rule {
	return Rule{Kind: RulePattern, Params: map[string]string{"pattern": expr}, Message: first(message)}
}

// Min bounds numbers from below.
func Min(v float64, message ...string) Rule {
	return Rule{Kind: RuleMin, Params: map[string]string{"value": strconv.FormatFloat(v, 'f', -1, 64)}, Message: first(message)}
}

// Max bounds numbers from above.
func Max(v float64, message ...string) Rule {
	return Rule{Kind: RuleMax, Params: map[string]string{"value": strconv.FormatFloat(v, 'f', -1, 64)}, Message: first(message)}
}

// OneOf restricts values to options. Without options the field's own Options
// are used.
func OneOf(options ...string) Rule {
	rule := Rule{Kind: RuleOneOf}
	if len(options) > 0 {
		rule.Params = map[string]string{"values": strings.Join(options, ",")}
	}
	return rule
}

// MinItems bounds sequence length from below.
func MinItems(n int, message ...string) Rule {
	return Rule{Kind: RuleMinItems, Params: map[string]string{"value": strconv.Itoa(n)}, Message: first(message)}
}

// MaxItems bounds sequence length from above.
func MaxItems(n int, message ...string) Rule {
	return Rule{Kind: RuleMaxItems, Params: map[string]string{"value": strconv.Itoa(n)}, Message: first(message)}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
