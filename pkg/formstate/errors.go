package formstate

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/schema"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while a previous
	// submission has not finished.
	ErrSubmitInProgress = errors.New("formstate: submit already in progress")
	// ErrValidationFailed matches the error Submit returns when validation
	// blocked the submit callback.
	ErrValidationFailed = errors.New("formstate: validation failed")
	// ErrValidationSuperseded is returned by Validate when a newer run started
	// before this one finished; its result was discarded.
	ErrValidationSuperseded = errors.New("formstate: validation superseded")
	// ErrNotArray reports an array operation against a non-sequence value.
	ErrNotArray = errors.New("formstate: value is not an array")
	// ErrIndexOutOfRange reports an array index outside the current length,
	// including writes that would leave a gap in a sequence.
	ErrIndexOutOfRange = fieldpath.ErrIndexOutOfRange
	// ErrInvalidOption reports a radio/select/checkbox input outside the
	// field's option set.
	ErrInvalidOption = errors.New("formstate: invalid option")
	// ErrUnsupportedChange reports a change event against a field kind that
	// only accepts array operations.
	ErrUnsupportedChange = errors.New("formstate: unsupported change")
	// ErrRevalidate wraps a validator failure that followed a successful
	// write; the value was stored.
	ErrRevalidate = errors.New("formstate: revalidate after write")
	// ErrUnknownPath reports a path that does not resolve inside the values.
	ErrUnknownPath = errors.New("formstate: unknown path")
)

// InvalidError is returned by Submit when the validator reported failures.
// It matches ErrValidationFailed with errors.Is.
type InvalidError struct {
	Errors schema.Errors
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %d invalid field(s)", ErrValidationFailed.Error(), len(e.Errors))
}

// Is lets errors.Is(err, ErrValidationFailed) succeed.
func (e *InvalidError) Is(target error) bool {
	return target == ErrValidationFailed
}
