package formstate

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
)

// Submit validates the form and, when no field fails, hands a copy of the
// values to the submit callback. Every leaf field is marked touched first so
// blocking errors become visible; failing paths are touched as well. IsSubmitting is true from the start of the
// call until validation fails or the callback returns (or panics); with
// WithManualSubmitting a successful callback leaves it set for the caller to
// clear. A callback that never returns leaves IsSubmitting set.
//
// The callback's error is returned unchanged. Validation failures return an
// *InvalidError matching ErrValidationFailed.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		return ErrSubmitInProgress
	}
	e.submitting = true
	e.submitCount++
	for _, leaf := range fieldpath.Leaves(e.values) {
		e.touched[leaf] = true
	}
	e.unlockAndPublish()

	release := true
	defer func() {
		if release {
			e.SetSubmitting(false)
		}
	}()

	errs, _, err := e.validate(ctx)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		// members absent from the values have no leaf to touch above
		_ = e.update(false, func() error {
			for path := range errs {
				e.touched[path] = true
			}
			return nil
		})
		e.logger.Debug("formstate: submit blocked by validation", slog.Int("invalid", len(errs)))
		return &InvalidError{Errors: errs}
	}
	if e.onSubmit == nil {
		return nil
	}

	e.mu.Lock()
	values := fieldpath.CloneMap(e.values)
	e.mu.Unlock()

	if err := e.onSubmit(ctx, values); err != nil {
		e.logger.Debug("formstate: submit callback failed", slog.Any("error", err))
		return err
	}
	if e.manualSubmitting {
		release = false
	}
	return nil
}
