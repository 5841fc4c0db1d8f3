package demo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/schema"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	infoMessages []string
	rejected     []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
}

// Input consumes scripted answers until one passes cfg.Validator, the way
// survey re-asks in place.
func (s *stubDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	for {
		if s.inputPos >= len(s.inputs) {
			return "", errors.New("no input scripted")
		}
		val := s.inputs[s.inputPos]
		s.inputPos++
		if cfg.Validator == nil {
			return val, nil
		}
		if err := cfg.Validator(val); err != nil {
			s.rejected = append(s.rejected, err.Error())
			continue
		}
		return val, nil
	}
}

func (s *stubDriver) Confirm(_ context.Context, _ prompt.ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ prompt.SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ prompt.SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func sequentialIDs() formstate.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("pet-%d", n)
	}
}

func TestDemo_Run(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Ada", "verylongname12345", "Lovelace", "jarvis", "odie"},
		confirm:   []bool{true},
		multiIdx:  [][]int{{0, 2}},
		selectIdx: []int{3, 0, 0, 1, 1, 0, 2},
	}
	sess, err := New(driver, WithEngineOptions(formstate.WithIDGenerator(sequentialIDs())))
	if err != nil {
		t.Fatalf("new demo: %v", err)
	}

	got, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"isTall":    true,
		"cookies":   []any{"chocolate chip", "strawberry"},
		"yogurt":    "peach",
		"pets": []any{
			map[string]any{"id": "pet-1", "type": "dog", "name": "odie"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"max length exceeded"}, driver.rejected); diff != "" {
		t.Fatalf("rejected answers mismatch (-want +got):\n%s", diff)
	}
	if len(driver.infoMessages) != 0 {
		t.Fatalf("inline validation should not print messages, got %v", driver.infoMessages)
	}
	if driver.inputPos != len(driver.inputs) || driver.selectPos != len(driver.selectIdx) {
		t.Fatalf("prompts not consumed as expected")
	}
	snap := sess.Engine().Snapshot()
	if snap.IsSubmitting || snap.SubmitCount != 1 {
		t.Fatalf("unexpected submit state %+v", snap)
	}
}

func TestSession_RetriesInvalidFields(t *testing.T) {
	s := schema.MustNew(
		schema.Field{Path: "nickname", Label: "nickname"},
		schema.Field{
			Path:    "cookies",
			Kind:    schema.KindCheckbox,
			Options: []string{"chocolate chip", "vanilla"},
			Rules:   []schema.Rule{schema.MinItems(1, "pick a cookie")},
		},
	)
	driver := &stubDriver{
		inputs:   []string{"ada"},
		multiIdx: [][]int{{}, {1}},
	}
	sess, err := NewSession(map[string]any{"nickname": "", "cookies": []any{}}, s, driver)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	got, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"nickname": "ada", "cookies": []any{"vanilla"}}, got); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"cookies: pick a cookie"}, driver.infoMessages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got := sess.Engine().Snapshot().SubmitCount; got != 2 {
		t.Fatalf("expected two submits, got %d", got)
	}
}

func TestSession_MaxAttempts(t *testing.T) {
	s := schema.MustNew(schema.Field{
		Path:  "agree",
		Kind:  schema.KindCheckbox,
		Check: func(context.Context, any) (string, error) { return "never valid", nil },
	})
	driver := &stubDriver{confirm: []bool{true}}
	sess, err := NewSession(map[string]any{"agree": false}, s, driver, WithMaxAttempts(1))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := sess.Run(context.Background()); !errors.Is(err, formstate.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestSession_ZeroElementFromSchema(t *testing.T) {
	s := schema.MustNew(
		schema.Field{Path: "pets", Kind: schema.KindArray},
		schema.Field{Path: "pets[].name", Rules: []schema.Rule{schema.Required()}},
		schema.Field{Path: "pets[].vaccinated", Kind: schema.KindCheckbox},
	)
	driver := &stubDriver{
		inputs:    []string{"", "rex"},
		confirm:   []bool{true},
		selectIdx: []int{0, 2},
	}
	sess, err := NewSession(map[string]any{"pets": []any{}}, s, driver,
		WithEngineOptions(formstate.WithIDGenerator(sequentialIDs())))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	got, err := sess.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := map[string]any{"pets": []any{
		map[string]any{"id": "pet-1", "name": "rex", "vaccinated": true},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"required"}, driver.rejected); diff != "" {
		t.Fatalf("rejected answers mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_Aborted(t *testing.T) {
	driver := &abortingDriver{}
	sess, err := New(driver)
	if err != nil {
		t.Fatalf("new demo: %v", err)
	}
	if _, err := sess.Run(context.Background()); !errors.Is(err, prompt.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if sess.Engine().Snapshot().SubmitCount != 0 {
		t.Fatalf("aborted session must not submit")
	}
}

type abortingDriver struct{ stubDriver }

func (abortingDriver) Input(context.Context, prompt.InputConfig) (string, error) {
	return "", prompt.ErrAborted
}

func TestDemo_Defaults(t *testing.T) {
	s, err := Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	defaults := Defaults(nil)
	if err := s.CheckShape(defaults); err != nil {
		t.Fatalf("defaults do not fit the schema: %v", err)
	}
	errs, err := s.Validate(context.Background(), defaults)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if diff := cmp.Diff(schema.Errors{"lastName": "required"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	ignoreID := cmpopts.IgnoreMapEntries(func(k string, _ any) bool { return k == "id" })
	want := []any{map[string]any{"type": "cat", "name": "jarvis"}}
	if diff := cmp.Diff(want, defaults["pets"], ignoreID); diff != "" {
		t.Fatalf("pets mismatch (-want +got):\n%s", diff)
	}
}
