// Package demo walks a user through a form on the terminal, one prompt per
// field, and feeds every answer into a formstate.Engine.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/schema"
)

const (
	actionAdd    = "add"
	actionRemove = "remove"
	actionDone   = "done"
)

// ElementFactory returns a fresh element for the array at path.
type ElementFactory func(path string) map[string]any

// Option configures a Session.
type Option func(*Session)

// WithEngineOptions forwards options to the underlying engine.
func WithEngineOptions(opts ...formstate.Option) Option {
	return func(s *Session) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithElementFactory overrides the zero element derived from the schema.
func WithElementFactory(fn ElementFactory) Option {
	return func(s *Session) {
		if fn != nil {
			s.newElement = fn
		}
	}
}

// WithMaxAttempts bounds how many times Run retries a submit that failed
// validation. Zero means no bound.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		s.maxAttempts = n
	}
}

// WithLogger sets the logger for the session and its engine.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session asks for every field of a schema, submits, and re-asks the fields
// that failed validation until the engine accepts the values.
type Session struct {
	engine *formstate.Engine
	schema *schema.Schema
	driver prompt.Driver

	engineOpts  []formstate.Option
	newElement  ElementFactory
	maxAttempts int
	logger      *slog.Logger

	submitted map[string]any
}

// NewSession wires defaults and s into an engine that validates on blur.
func NewSession(defaults map[string]any, s *schema.Schema, driver prompt.Driver, opts ...Option) (*Session, error) {
	if s == nil {
		return nil, errors.New("demo: schema is required")
	}
	if driver == nil {
		return nil, errors.New("demo: prompt driver is required")
	}
	sess := &Session{
		schema: s,
		driver: driver,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	sess.newElement = sess.zeroElement
	for _, opt := range opts {
		if opt != nil {
			opt(sess)
		}
	}

	engineOpts := append([]formstate.Option{
		formstate.WithValidateOnBlur(true),
		formstate.WithLogger(sess.logger),
	}, sess.engineOpts...)
	engine, err := formstate.New(defaults, s, sess.capture, engineOpts...)
	if err != nil {
		return nil, err
	}
	sess.engine = engine
	return sess, nil
}

// Engine exposes the engine backing the session.
func (s *Session) Engine() *formstate.Engine {
	return s.engine
}

// Run prompts for every field and returns the submitted values.
func (s *Session) Run(ctx context.Context) (map[string]any, error) {
	for _, field := range s.topLevel() {
		if err := s.ask(ctx, field.Path, field); err != nil {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		err := s.engine.Submit(ctx)
		if err == nil {
			return s.submitted, nil
		}
		var invalid *formstate.InvalidError
		if !errors.As(err, &invalid) {
			return nil, err
		}
		s.logger.Debug("demo: submit rejected", slog.Int("attempt", attempt), slog.Int("invalid", len(invalid.Errors)))
		if s.maxAttempts > 0 && attempt >= s.maxAttempts {
			return nil, err
		}
		if err := s.fix(ctx, invalid.Errors); err != nil {
			return nil, err
		}
	}
}

func (s *Session) capture(_ context.Context, values map[string]any) error {
	s.submitted = values
	return nil
}

func (s *Session) fix(ctx context.Context, errs schema.Errors) error {
	for _, path := range errs.Paths() {
		field, ok := s.schema.Lookup(path)
		if !ok {
			if err := s.driver.Info(ctx, fmt.Sprintf("%s: %s", path, errs[path])); err != nil {
				return err
			}
			continue
		}
		if err := s.driver.Info(ctx, fmt.Sprintf("%s: %s", label(path, field), errs[path])); err != nil {
			return err
		}
		if err := s.ask(ctx, path, field); err != nil {
			return err
		}
	}
	return nil
}

// topLevel lists the fields outside any array, in declaration order.
func (s *Session) topLevel() []schema.Field {
	var out []schema.Field
	for _, field := range s.schema.Fields {
		parsed, err := fieldpath.Parse(field.Path)
		if err != nil || parsed.HasWildcard() {
			continue
		}
		out = append(out, field)
	}
	return out
}

func (s *Session) ask(ctx context.Context, path string, field schema.Field) error {
	var err error
	switch field.Kind {
	case schema.KindArray:
		err = s.askArray(ctx, path, field)
	case schema.KindCheckbox:
		if _, isGroup := s.engine.Field(path).Value.([]any); isGroup {
			err = s.askGroup(ctx, path, field)
		} else {
			err = s.askCheckbox(ctx, path, field)
		}
	case schema.KindRadio, schema.KindSelect:
		err = s.askChoice(ctx, path, field)
	case schema.KindGroup:
		// members are asked on their own
		return nil
	default:
		return s.askText(ctx, path, field)
	}
	if err != nil {
		return err
	}
	return s.engine.HandleBlur(path)
}

// askText lets the driver re-ask until the answer leaves no visible error
// on the field.
func (s *Session) askText(ctx context.Context, path string, field schema.Field) error {
	current, _ := s.engine.Field(path).Value.(string)
	answer, err := s.driver.Input(ctx, prompt.InputConfig{
		Message: label(path, field),
		Default: current,
		Validator: func(text string) error {
			msg, err := s.enterText(path, text)
			if err != nil {
				return err
			}
			if msg != "" {
				return errors.New(msg)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	_, err = s.enterText(path, answer)
	return err
}

// enterText applies text the way typing and leaving the field would and
// returns the error the field then shows.
func (s *Session) enterText(path, text string) (string, error) {
	if err := s.engine.HandleChange(path, text); err != nil {
		return "", err
	}
	if err := s.engine.HandleBlur(path); err != nil {
		return "", err
	}
	return s.engine.Field(path).DisplayError(), nil
}

func (s *Session) askCheckbox(ctx context.Context, path string, field schema.Field) error {
	current, _ := s.engine.Field(path).Value.(bool)
	answer, err := s.driver.Confirm(ctx, prompt.ConfirmConfig{
		Message: label(path, field),
		Default: current,
	})
	if err != nil {
		return err
	}
	return s.engine.HandleChange(path, answer)
}

func (s *Session) askGroup(ctx context.Context, path string, field schema.Field) error {
	current, _ := s.engine.Field(path).Value.([]any)
	if len(field.Options) == 0 {
		answer, err := s.driver.Input(ctx, prompt.InputConfig{
			Message: label(path, field),
			Default: joinValues(current),
			Help:    "comma separated",
		})
		if err != nil {
			return err
		}
		return s.engine.SetFieldValue(path, splitValues(answer))
	}

	selected := make([]string, 0, len(current))
	for _, item := range current {
		selected = append(selected, fmt.Sprint(item))
	}
	picked, err := s.driver.MultiSelect(ctx, prompt.SelectConfig{
		Message:  label(path, field),
		Options:  field.Options,
		Defaults: prompt.IndicesOf(field.Options, selected),
	})
	if err != nil {
		return err
	}
	chosen := make(map[int]bool, len(picked))
	for _, idx := range picked {
		chosen[idx] = true
	}
	for i, option := range field.Options {
		if err := s.engine.ToggleOption(path, option, chosen[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) askChoice(ctx context.Context, path string, field schema.Field) error {
	current, _ := s.engine.Field(path).Value.(string)
	if len(field.Options) == 0 {
		return s.askText(ctx, path, field)
	}
	idx, err := s.driver.Select(ctx, prompt.SelectConfig{
		Message:      label(path, field),
		Options:      field.Options,
		DefaultIndex: prompt.IndexOf(field.Options, current),
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(field.Options) {
		return fmt.Errorf("%s: %w: choice %d", path, formstate.ErrInvalidOption, idx)
	}
	return s.engine.HandleChange(path, field.Options[idx])
}

// askArray walks the existing elements, then offers add/remove until done.
func (s *Session) askArray(ctx context.Context, path string, field schema.Field) error {
	children := s.children(path)
	for i := 0; i < s.length(path); i++ {
		if err := s.askElement(ctx, path, i, children); err != nil {
			return err
		}
	}

	for {
		n := s.length(path)
		actions := []string{actionAdd}
		if n > 0 {
			actions = append(actions, actionRemove)
		}
		actions = append(actions, actionDone)

		idx, err := s.driver.Select(ctx, prompt.SelectConfig{
			Message:      fmt.Sprintf("%s (%d)", label(path, field), n),
			Options:      actions,
			DefaultIndex: len(actions) - 1,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(actions) {
			return fmt.Errorf("%s: %w: action %d", path, formstate.ErrInvalidOption, idx)
		}

		switch actions[idx] {
		case actionAdd:
			if _, err := s.engine.PushArrayElement(path, s.newElement(path)); err != nil {
				return err
			}
			if err := s.askElement(ctx, path, n, children); err != nil {
				return err
			}
		case actionRemove:
			which, err := s.driver.Select(ctx, prompt.SelectConfig{
				Message: "remove which?",
				Options: s.summaries(path, n, children),
			})
			if err != nil {
				return err
			}
			if err := s.engine.RemoveArrayElement(path, which); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

type child struct {
	suffix fieldpath.Path
	field  schema.Field
}

// children returns the fields declared directly on the elements of the array
// at path, e.g. `pets[].name` for `pets`.
func (s *Session) children(path string) []child {
	array, err := fieldpath.Parse(path)
	if err != nil {
		return nil
	}
	elem := array.Generalize().Append(fieldpath.Segment{Kind: fieldpath.WildcardSegment})
	var out []child
	for _, field := range s.schema.Fields {
		parsed, err := fieldpath.Parse(field.Path)
		if err != nil || len(parsed) <= len(elem) || !parsed.HasPrefix(elem) {
			continue
		}
		suffix := parsed[len(elem):]
		if suffix.HasWildcard() {
			continue
		}
		out = append(out, child{suffix: suffix, field: field})
	}
	return out
}

func (s *Session) askElement(ctx context.Context, path string, index int, children []child) error {
	for _, c := range children {
		if err := s.ask(ctx, elementPath(path, index, c.suffix), c.field); err != nil {
			return err
		}
	}
	return nil
}

func elementPath(array string, index int, suffix fieldpath.Path) string {
	return fieldpath.MustParse(fieldpath.At(array, index)).Append(suffix...).String()
}

func (s *Session) length(path string) int {
	list, _ := s.engine.Field(path).Value.([]any)
	return len(list)
}

func (s *Session) summaries(path string, n int, children []child) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var parts []string
		for _, c := range children {
			value := s.engine.Field(elementPath(path, i, c.suffix)).Value
			if text := fmt.Sprint(value); value != nil && text != "" {
				parts = append(parts, text)
			}
		}
		out = append(out, fmt.Sprintf("%d: %s", i, strings.Join(parts, " / ")))
	}
	return out
}

// zeroElement builds an element holding the zero value of each child field.
func (s *Session) zeroElement(path string) map[string]any {
	out := map[string]any{}
	for _, c := range s.children(path) {
		_ = fieldpath.Set(out, c.suffix, zeroValue(c.field))
	}
	return out
}

// DefaultsFor derives initial values from s: every field outside an array
// gets the zero value of its kind and arrays start empty.
func DefaultsFor(s *schema.Schema) map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	for _, field := range s.Fields {
		parsed, err := fieldpath.Parse(field.Path)
		if err != nil || parsed.HasWildcard() {
			continue
		}
		if _, exists := fieldpath.Get(out, parsed); exists {
			continue
		}
		_ = fieldpath.Set(out, parsed, zeroValue(field))
	}
	return out
}

func zeroValue(field schema.Field) any {
	switch field.Kind {
	case schema.KindCheckbox:
		if len(field.Options) > 0 {
			return []any{}
		}
		return false
	case schema.KindArray:
		return []any{}
	case schema.KindGroup:
		return map[string]any{}
	default:
		return ""
	}
}

func label(path string, field schema.Field) string {
	if field.Label == "" {
		return path
	}
	if path != field.Path {
		return fmt.Sprintf("%s (%s)", field.Label, path)
	}
	return field.Label
}

func joinValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}

func splitValues(raw string) []any {
	out := []any{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
