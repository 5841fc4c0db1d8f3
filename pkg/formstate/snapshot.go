package formstate

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Snapshot is a read-only copy of the engine state handed to renderers.
// Mutating it does not affect the engine.
type Snapshot struct {
	Values       map[string]any
	Touched      map[string]bool
	Errors       schema.Errors
	IsSubmitting bool
	SubmitCount  int
	Dirty        bool
	IsValid      bool
}

// FieldState is the per-field view a control needs to render itself.
type FieldState struct {
	Path    string
	Value   any
	Touched bool
	Error   string
}

// DisplayError returns the error only once the user has left the field.
func (f FieldState) DisplayError() string {
	if !f.Touched {
		return ""
	}
	return f.Error
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Field returns the state of a single field.
func (e *Engine) Field(path string) FieldState {
	e.mu.Lock()
	defer e.mu.Unlock()
	value, _ := fieldpath.GetString(e.values, path)
	return FieldState{
		Path:    path,
		Value:   fieldpath.Clone(value),
		Touched: e.touched[path],
		Error:   e.fieldErrors[path],
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	touched := make(map[string]bool, len(e.touched))
	for k, v := range e.touched {
		touched[k] = v
	}
	return Snapshot{
		Values:       fieldpath.CloneMap(e.values),
		Touched:      touched,
		Errors:       e.fieldErrors.Clone(),
		IsSubmitting: e.submitting,
		SubmitCount:  e.submitCount,
		Dirty:        !cmp.Equal(e.initial, e.values, cmpopts.EquateEmpty()),
		IsValid:      len(e.fieldErrors) == 0,
	}
}

// Value resolves path inside the snapshot values.
func (s Snapshot) Value(path string) (any, bool) {
	return fieldpath.GetString(s.Values, path)
}

// Field returns the snapshot state of one field.
func (s Snapshot) Field(path string) FieldState {
	value, _ := s.Value(path)
	return FieldState{
		Path:    path,
		Value:   value,
		Touched: s.Touched[path],
		Error:   s.Errors[path],
	}
}

// FieldError returns the error text to display for path: empty until the
// field is touched.
func (s Snapshot) FieldError(path string) string {
	return s.Field(path).DisplayError()
}

// Paths lists the leaf value paths in sorted order.
func (s Snapshot) Paths() []string {
	return fieldpath.Leaves(s.Values)
}

// FieldDirty reports whether path differs from its initial value.
func (e *Engine) FieldDirty(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	before, _ := fieldpath.GetString(e.initial, path)
	after, _ := fieldpath.GetString(e.values, path)
	return !cmp.Equal(before, after, cmpopts.EquateEmpty())
}
