package formstate

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// IDGenerator produces identifiers for array elements pushed without one.
type IDGenerator func() string

// Sanitizer cleans free text before it is stored. *bluemonday.Policy
// satisfies it.
type Sanitizer interface {
	Sanitize(string) string
}

// Option configures an Engine.
type Option func(*Engine)

// WithValidateOnChange revalidates after every value change and array
// operation.
func WithValidateOnChange(enabled bool) Option {
	return func(e *Engine) {
		e.validateOnChange = enabled
	}
}

// WithValidateOnBlur revalidates after HandleBlur.
func WithValidateOnBlur(enabled bool) Option {
	return func(e *Engine) {
		e.validateOnBlur = enabled
	}
}

// WithIDKey sets the member that carries array element identifiers
// (default "id"). An empty key disables identifier assignment.
func WithIDKey(key string) Option {
	return func(e *Engine) {
		e.idKey = strings.TrimSpace(key)
	}
}

// WithIDGenerator overrides the default UUID generator.
func WithIDGenerator(fn IDGenerator) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithFieldLookup supplies field kinds and options for HandleChange when the
// validator does not provide them itself.
func WithFieldLookup(lookup schema.FieldLookup) Option {
	return func(e *Engine) {
		if lookup != nil {
			e.lookup = lookup
		}
	}
}

// WithSanitizer cleans every text field on HandleChange, not only the fields
// flagged with Sanitize in the schema.
func WithSanitizer(s Sanitizer) Option {
	return func(e *Engine) {
		e.sanitizer = s
		e.sanitizeAll = s != nil
	}
}

// WithManualSubmitting leaves IsSubmitting set after a successful submit
// callback; the caller clears it with SetSubmitting(false) once its own
// asynchronous work completes.
func WithManualSubmitting(enabled bool) Option {
	return func(e *Engine) {
		e.manualSubmitting = enabled
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
