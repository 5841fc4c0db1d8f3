package formstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// SubmitFunc receives a copy of the values once validation passed.
type SubmitFunc func(ctx context.Context, values map[string]any) error

// Engine owns the values, touched flags, validation errors and submission
// status of one form. All mutations are serialised; validators run outside
// the lock so a slow check does not block input handling.
type Engine struct {
	mu sync.Mutex

	initial     map[string]any
	values      map[string]any
	touched     map[string]bool
	fieldErrors schema.Errors
	submitting  bool
	submitCount int
	generation  uint64

	validator schema.Validator
	lookup    schema.FieldLookup
	onSubmit  SubmitFunc

	validateOnChange bool
	validateOnBlur   bool
	manualSubmitting bool
	idKey            string
	newID            IDGenerator
	sanitizer        Sanitizer
	sanitizeAll      bool
	logger           *slog.Logger

	listeners    []listener
	nextListener uint64
}

// New creates an engine seeded with a deep copy of defaults. A nil validator
// accepts every value. When the validator can check shapes, defaults that do
// not match it are rejected with a *schema.ConfigError.
func New(defaults map[string]any, validator schema.Validator, onSubmit SubmitFunc, options ...Option) (*Engine, error) {
	e := &Engine{
		validator: validator,
		onSubmit:  onSubmit,
		idKey:     "id",
		newID:     uuid.NewString,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if e.validator == nil {
		e.validator = schema.ValidatorFunc(func(context.Context, map[string]any) (schema.Errors, error) {
			return schema.Errors{}, nil
		})
	}
	if lookup, ok := validator.(schema.FieldLookup); ok {
		e.lookup = lookup
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}

	if checker, ok := e.validator.(schema.ShapeChecker); ok {
		if err := checker.CheckShape(defaults); err != nil {
			return nil, fmt.Errorf("formstate: default values: %w", err)
		}
	}

	e.initialize(defaults)
	return e, nil
}

func (e *Engine) initialize(defaults map[string]any) {
	e.initial = fieldpath.CloneMap(defaults)
	e.values = fieldpath.CloneMap(defaults)
	e.touched = make(map[string]bool)
	e.fieldErrors = make(schema.Errors)
	e.submitting = false
	e.submitCount = 0
	// pending validations belong to the old values
	e.generation++
}

// SetFieldValue writes value at path, creating intermediate objects and
// sequences as needed. Sequences only grow by one element at a time; an index
// past the end fails with ErrIndexOutOfRange. Errors whose path disappears
// with the write are dropped.
func (e *Engine) SetFieldValue(path string, value any) error {
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return err
	}
	return e.update(e.validateOnChange, func() error {
		return fieldpath.Set(e.values, parsed, fieldpath.Clone(value))
	})
}

// SetFieldTouched records whether the user has left the field. The path is
// stored in canonical form so it lines up with error keys.
func (e *Engine) SetFieldTouched(path string, touched bool) error {
	key, err := concretePath(path)
	if err != nil {
		return err
	}
	return e.update(false, func() error {
		e.touched[key] = touched
		return nil
	})
}

// HandleBlur marks path as touched and revalidates when validate-on-blur is
// enabled.
func (e *Engine) HandleBlur(path string) error {
	key, err := concretePath(path)
	if err != nil {
		return err
	}
	return e.update(e.validateOnBlur, func() error {
		e.touched[key] = true
		return nil
	})
}

// concretePath parses raw and formats it back, rejecting wildcards.
func concretePath(raw string) (string, error) {
	parsed, err := fieldpath.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.HasWildcard() {
		return "", fmt.Errorf("%w: %q contains a wildcard", fieldpath.ErrInvalidPath, raw)
	}
	return parsed.String(), nil
}

// SetSubmitting flips the submission flag. Callers using
// WithManualSubmitting clear it once their asynchronous work is done.
func (e *Engine) SetSubmitting(submitting bool) {
	_ = e.update(false, func() error {
		e.submitting = submitting
		return nil
	})
}

// Reset restores the initial values and clears touched flags, errors and
// submission state.
func (e *Engine) Reset() {
	_ = e.update(false, func() error {
		e.initialize(e.initial)
		return nil
	})
}

// ResetTo replaces the initial snapshot with values and resets to it.
func (e *Engine) ResetTo(values map[string]any) error {
	if checker, ok := e.validator.(schema.ShapeChecker); ok {
		if err := checker.CheckShape(values); err != nil {
			return fmt.Errorf("formstate: reset values: %w", err)
		}
	}
	return e.update(false, func() error {
		e.initialize(values)
		return nil
	})
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned function removes the subscription.
func (e *Engine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, l := range e.listeners {
				if l.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// update runs fn under the lock, publishes the resulting snapshot and
// optionally revalidates. A revalidation error is wrapped with ErrRevalidate:
// the write itself was stored.
func (e *Engine) update(revalidate bool, fn func() error) error {
	if err := e.apply(fn); err != nil {
		return err
	}
	if !revalidate {
		return nil
	}
	if _, err := e.Validate(context.Background()); err != nil && !errors.Is(err, ErrValidationSuperseded) {
		return fmt.Errorf("%w: %w", ErrRevalidate, err)
	}
	return nil
}

// apply runs fn under the lock and publishes on success. The lock is released
// when fn fails or panics. Errors left pointing at paths fn removed are
// pruned.
func (e *Engine) apply(fn func() error) error {
	e.mu.Lock()
	locked := true
	defer func() {
		if locked {
			e.mu.Unlock()
		}
	}()
	if err := fn(); err != nil {
		return err
	}
	e.fieldErrors = reachable(e.values, e.fieldErrors)
	locked = false
	e.unlockAndPublish()
	return nil
}

type listener struct {
	id uint64
	fn func(Snapshot)
}

// unlockAndPublish releases the lock, then hands a snapshot to every
// subscriber, in subscription order. Snapshots are only built when someone
// listens.
func (e *Engine) unlockAndPublish() {
	if len(e.listeners) == 0 {
		e.mu.Unlock()
		return
	}
	snap := e.snapshotLocked()
	listeners := append([]listener(nil), e.listeners...)
	e.mu.Unlock()

	for _, l := range listeners {
		l.fn(snap)
	}
}
