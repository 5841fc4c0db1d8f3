package formstate

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// Validate runs the validator against a copy of the current values and
// replaces the error map with the result. A run that is overtaken by a newer
// Validate (or by Reset) is discarded and reports ErrValidationSuperseded.
// Validator errors leave the error map untouched.
func (e *Engine) Validate(ctx context.Context) (schema.Errors, error) {
	errs, applied, err := e.validate(ctx)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrValidationSuperseded
	}
	return errs, nil
}

// validate returns the validator's verdict even when it could not be applied
// because a newer run started meanwhile.
func (e *Engine) validate(ctx context.Context) (schema.Errors, bool, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	values := fieldpath.CloneMap(e.values)
	e.mu.Unlock()

	errs, err := e.validator.Validate(ctx, values)
	if err != nil {
		e.logger.Debug("formstate: validation failed to run", slog.Any("error", err))
		return nil, false, err
	}
	errs = errs.Clone()

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("formstate: discarding superseded validation", slog.Uint64("generation", gen))
		return errs, false, nil
	}
	e.fieldErrors = reachable(e.values, errs)
	e.unlockAndPublish()
	return errs, true, nil
}

// reachable keeps only errors whose path still resolves in values. Values can
// change while a validator runs; stale paths would break the coordinate
// system shared by values and errors. A member missing from an object (or
// from a nil element) still counts: that is where "required" lands.
func reachable(values map[string]any, errs schema.Errors) schema.Errors {
	out := make(schema.Errors, len(errs))
	for path, msg := range errs {
		if addressable(values, path) {
			out[path] = msg
		}
	}
	return out
}

func addressable(values map[string]any, raw string) bool {
	path, err := fieldpath.Parse(raw)
	if err != nil {
		return false
	}
	if _, ok := fieldpath.Get(values, path); ok {
		return true
	}
	last := len(path) - 1
	if last == 0 || path[last].Kind != fieldpath.KeySegment {
		return false
	}
	parent, ok := fieldpath.Get(values, path[:last])
	if !ok {
		return false
	}
	switch parent.(type) {
	case nil, map[string]any:
		return true
	default:
		return false
	}
}
