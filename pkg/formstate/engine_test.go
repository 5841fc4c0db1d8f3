package formstate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/schema"
)

func lastNameSchema() *schema.Schema {
	return schema.MustNew(schema.Field{
		Path:  "lastName",
		Rules: []schema.Rule{schema.MaxLength(10)},
	})
}

func newEngine(t *testing.T, defaults map[string]any, validator schema.Validator, onSubmit formstate.SubmitFunc, opts ...formstate.Option) *formstate.Engine {
	t.Helper()
	engine, err := formstate.New(defaults, validator, onSubmit, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_MaxLengthScenario(t *testing.T) {
	engine := newEngine(t, map[string]any{"lastName": ""}, lastNameSchema(), nil)
	ctx := context.Background()

	if err := engine.SetFieldValue("lastName", "verylongname12345"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if got := engine.Snapshot().Errors; len(got) != 0 {
		t.Fatalf("set value must not validate by default, got %v", got)
	}

	errs, err := engine.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if diff := cmp.Diff(schema.Errors{"lastName": "max length exceeded"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if err := engine.SetFieldValue("lastName", "Smith"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if _, err := engine.Validate(ctx); err != nil {
		t.Fatalf("validate: %v", err)
	}
	snap := engine.Snapshot()
	if len(snap.Errors) != 0 || !snap.IsValid {
		t.Fatalf("expected valid form, got %v", snap.Errors)
	}
}

func TestEngine_SetFieldValueRoundTrip(t *testing.T) {
	engine := newEngine(t, map[string]any{}, nil, nil)
	writes := map[string]any{
		"firstName":         "Ada",
		"isTall":            true,
		"cookies":           []any{"vanilla"},
		"pets[0].name":      "jarvis",
		"owner.address.zip": "90210",
	}
	for path, value := range writes {
		if err := engine.SetFieldValue(path, value); err != nil {
			t.Fatalf("set %s: %v", path, err)
		}
	}
	snap := engine.Snapshot()
	for path, want := range writes {
		got, ok := snap.Value(path)
		if !ok {
			t.Fatalf("path %s missing from snapshot", path)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("value mismatch at %s (-want +got):\n%s", path, diff)
		}
	}

	if err := engine.SetFieldValue("pets[", "x"); err == nil {
		t.Fatalf("expected malformed path to fail")
	}
}

func TestEngine_DefaultsAreCopied(t *testing.T) {
	defaults := map[string]any{"pets": []any{map[string]any{"id": "a", "name": "jarvis"}}}
	engine := newEngine(t, defaults, nil, nil)

	defaults["pets"].([]any)[0].(map[string]any)["name"] = "mutated"
	snap := engine.Snapshot()
	snap.Values["pets"].([]any)[0].(map[string]any)["name"] = "also mutated"

	if got, _ := engine.Snapshot().Value("pets[0].name"); got != "jarvis" {
		t.Fatalf("engine state leaked through defaults or snapshot: %v", got)
	}
}

func TestEngine_RejectsShapeMismatch(t *testing.T) {
	_, err := formstate.New(map[string]any{"firstName": ""}, lastNameSchema(), nil)
	var cfgErr *schema.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestEngine_ResetToRejectsShapeMismatch(t *testing.T) {
	engine := newEngine(t, map[string]any{"lastName": ""}, lastNameSchema(), nil)
	var cfgErr *schema.ConfigError
	if err := engine.ResetTo(map[string]any{"other": ""}); !errors.As(err, &cfgErr) {
		t.Fatalf("expected reset to reject mismatched values, got %v", err)
	}
	if err := engine.ResetTo(map[string]any{"lastName": "Smith"}); err != nil {
		t.Fatalf("reset to: %v", err)
	}
	if engine.Snapshot().Dirty {
		t.Fatalf("new initial values must not be dirty")
	}
}

func TestEngine_ValidateReportsConfigError(t *testing.T) {
	s := schema.MustNew(schema.Field{Path: "pets[0].name", Rules: []schema.Rule{schema.Required()}})
	engine := newEngine(t, map[string]any{
		"pets": []any{map[string]any{"id": "a", "name": "jarvis"}},
	}, s, nil)

	if err := engine.RemoveArrayElement("pets", 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	var cfgErr *schema.ConfigError
	if _, err := engine.Validate(context.Background()); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestEngine_TouchedAndErrorsAreIndependent(t *testing.T) {
	engine := newEngine(t, map[string]any{"lastName": "verylongname12345"}, lastNameSchema(), nil)
	if _, err := engine.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	snap := engine.Snapshot()
	if snap.Errors["lastName"] == "" {
		t.Fatalf("expected error before touch")
	}
	if got := snap.FieldError("lastName"); got != "" {
		t.Fatalf("error must be hidden until touched, got %q", got)
	}

	engine.SetFieldTouched("lastName", true)
	if got := engine.Snapshot().FieldError("lastName"); got != "max length exceeded" {
		t.Fatalf("expected visible error after touch, got %q", got)
	}
	if got := engine.Field("lastName"); !got.Touched || got.DisplayError() == "" {
		t.Fatalf("unexpected field state %+v", got)
	}
}

func TestEngine_ValidateOnBlurAndChange(t *testing.T) {
	engine := newEngine(t, map[string]any{"lastName": ""}, lastNameSchema(), nil,
		formstate.WithValidateOnBlur(true),
		formstate.WithValidateOnChange(true),
	)
	if err := engine.SetFieldValue("lastName", "verylongname12345"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if engine.Snapshot().Errors["lastName"] == "" {
		t.Fatalf("expected validate-on-change to populate errors")
	}
	if err := engine.HandleBlur("lastName"); err != nil {
		t.Fatalf("blur: %v", err)
	}
	if got := engine.Snapshot().FieldError("lastName"); got == "" {
		t.Fatalf("expected visible error after blur")
	}
}

func TestEngine_ResetRestoresInitialState(t *testing.T) {
	engine := newEngine(t, map[string]any{"lastName": ""}, lastNameSchema(), nil)
	_ = engine.SetFieldValue("lastName", "verylongname12345")
	engine.SetFieldTouched("lastName", true)
	if _, err := engine.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !engine.Snapshot().Dirty || !engine.FieldDirty("lastName") {
		t.Fatalf("expected dirty form")
	}

	engine.Reset()
	want := formstate.Snapshot{
		Values:  map[string]any{"lastName": ""},
		Touched: map[string]bool{},
		Errors:  schema.Errors{},
		IsValid: true,
	}
	if diff := cmp.Diff(want, engine.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch after reset (-want +got):\n%s", diff)
	}
}

func TestEngine_Subscribe(t *testing.T) {
	engine := newEngine(t, map[string]any{"lastName": ""}, nil, nil)

	var seen []string
	unsubscribe := engine.Subscribe(func(s formstate.Snapshot) {
		v, _ := s.Value("lastName")
		seen = append(seen, v.(string))
	})
	_ = engine.SetFieldValue("lastName", "a")
	_ = engine.SetFieldValue("lastName", "ab")
	unsubscribe()
	unsubscribe()
	_ = engine.SetFieldValue("lastName", "abc")

	if diff := cmp.Diff([]string{"a", "ab"}, seen); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_ValidateLastWriteWins(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   int
		started = make(chan struct{})
		release = make(chan struct{})
	)
	validator := schema.ValidatorFunc(func(ctx context.Context, values map[string]any) (schema.Errors, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()
		if call == 1 {
			close(started)
			<-release
			return schema.Errors{"lastName": "stale"}, nil
		}
		return schema.Errors{}, nil
	})
	engine := newEngine(t, map[string]any{"lastName": ""}, validator, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := engine.Validate(context.Background())
		firstErr <- err
	}()
	<-started

	if _, err := engine.Validate(context.Background()); err != nil {
		t.Fatalf("second validate: %v", err)
	}
	close(release)

	if err := <-firstErr; !errors.Is(err, formstate.ErrValidationSuperseded) {
		t.Fatalf("expected superseded error, got %v", err)
	}
	if got := engine.Snapshot().Errors; len(got) != 0 {
		t.Fatalf("stale result applied: %v", got)
	}
}

func TestEngine_ValidatorErrorKeepsErrors(t *testing.T) {
	fail := false
	validator := schema.ValidatorFunc(func(context.Context, map[string]any) (schema.Errors, error) {
		if fail {
			return nil, errors.New("lookup unavailable")
		}
		return schema.Errors{"lastName": "taken"}, nil
	})
	engine := newEngine(t, map[string]any{"lastName": ""}, validator, nil)
	if _, err := engine.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	fail = true
	if _, err := engine.Validate(context.Background()); err == nil {
		t.Fatalf("expected validator error")
	}
	if got := engine.Snapshot().Errors["lastName"]; got != "taken" {
		t.Fatalf("error map should be untouched, got %q", got)
	}
}

func petNameSchema() *schema.Schema {
	return schema.MustNew(schema.Field{Path: "pets[].name", Rules: []schema.Rule{schema.Required()}})
}

func TestEngine_ReplacingContainerDropsStaleErrors(t *testing.T) {
	engine := newEngine(t, map[string]any{
		"pets": []any{map[string]any{"id": "a", "name": ""}},
	}, petNameSchema(), nil)
	if _, err := engine.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := engine.Snapshot().Errors["pets[0].name"]; got != "required" {
		t.Fatalf("expected required error, got %q", got)
	}

	if err := engine.SetFieldValue("pets", []any{}); err != nil {
		t.Fatalf("set value: %v", err)
	}
	snap := engine.Snapshot()
	if len(snap.Errors) != 0 || !snap.IsValid {
		t.Fatalf("errors must follow the values they describe, got %v", snap.Errors)
	}
}

func TestEngine_SetFieldValueRejectsGaps(t *testing.T) {
	engine := newEngine(t, map[string]any{
		"pets": []any{map[string]any{"id": "a", "name": "jarvis"}},
	}, petNameSchema(), nil)

	for _, path := range []string{"pets[2].name", "pets[1152921504606846976].name"} {
		if err := engine.SetFieldValue(path, "rex"); !errors.Is(err, formstate.ErrIndexOutOfRange) {
			t.Fatalf("%s: expected ErrIndexOutOfRange, got %v", path, err)
		}
	}
	if err := engine.SetFieldValue("pets[1].name", "rex"); err != nil {
		t.Fatalf("append by index: %v", err)
	}
	want := []any{
		map[string]any{"id": "a", "name": "jarvis"},
		map[string]any{"name": "rex"},
	}
	if diff := cmp.Diff(want, engine.Snapshot().Values["pets"]); diff != "" {
		t.Fatalf("pets mismatch (-want +got):\n%s", diff)
	}
	if err := engine.Submit(context.Background()); err != nil {
		t.Fatalf("submit after writes: %v", err)
	}
}

func TestEngine_MissingElementMemberIsRequired(t *testing.T) {
	engine := newEngine(t, map[string]any{"pets": []any{}}, petNameSchema(),
		func(context.Context, map[string]any) error { return nil })

	if _, err := engine.PushArrayElement("pets", map[string]any{"type": "frog"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	err := engine.Submit(context.Background())
	var invalid *formstate.InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidError, got %v", err)
	}
	if diff := cmp.Diff(schema.Errors{"pets[0].name": "required"}, invalid.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := engine.Snapshot().FieldError("pets[0].name"); got != "required" {
		t.Fatalf("expected error kept for the absent member, got %q", got)
	}

	if err := engine.SetFieldValue("pets[0].name", "jarvis"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if err := engine.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

type panicSanitizer struct{}

func (panicSanitizer) Sanitize(string) string { panic("sanitizer exploded") }

func TestEngine_PanicInsideUpdateReleasesLock(t *testing.T) {
	engine := newEngine(t, map[string]any{"firstName": ""},
		schema.MustNew(schema.Field{Path: "firstName", Kind: schema.KindText}), nil,
		formstate.WithSanitizer(panicSanitizer{}))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = engine.HandleChange("firstName", "Ada")
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Snapshot()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("engine lock still held after panic")
	}
}

func TestEngine_TouchedPathsAreCanonical(t *testing.T) {
	engine := newEngine(t, map[string]any{
		"pets": []any{map[string]any{"id": "a", "name": ""}},
	}, petNameSchema(), nil)
	if _, err := engine.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := engine.SetFieldTouched("pets[ 0].name", true); err != nil {
		t.Fatalf("touch: %v", err)
	}
	snap := engine.Snapshot()
	if diff := cmp.Diff(map[string]bool{"pets[0].name": true}, snap.Touched); diff != "" {
		t.Fatalf("touched mismatch (-want +got):\n%s", diff)
	}
	if got := snap.FieldError("pets[0].name"); got != "required" {
		t.Fatalf("expected visible error, got %q", got)
	}

	if err := engine.SetFieldTouched("pets[].name", true); !errors.Is(err, fieldpath.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath for wildcard, got %v", err)
	}
	if err := engine.HandleBlur("pets..name"); !errors.Is(err, fieldpath.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath for malformed path, got %v", err)
	}
}

func TestEngine_RevalidateErrorKeepsWrite(t *testing.T) {
	s := schema.MustNew(schema.Field{Path: "pets[0].name", Rules: []schema.Rule{schema.Required()}})
	engine := newEngine(t, map[string]any{
		"pets": []any{map[string]any{"id": "a", "name": "jarvis"}},
	}, s, nil, formstate.WithValidateOnChange(true))

	err := engine.SetFieldValue("pets", []any{})
	if !errors.Is(err, formstate.ErrRevalidate) {
		t.Fatalf("expected ErrRevalidate, got %v", err)
	}
	var cfgErr *schema.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected wrapped ConfigError, got %v", err)
	}
	if diff := cmp.Diff([]any{}, engine.Snapshot().Values["pets"]); diff != "" {
		t.Fatalf("write should be stored (-want +got):\n%s", diff)
	}
}
