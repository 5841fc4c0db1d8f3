// Package prompt asks for field input on a terminal. Driver hides the
// terminal library so form flows can be exercised with scripted answers.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted signals the user aborted input (e.g., Ctrl+C).
var ErrAborted = errors.New("prompt: aborted")

// InputConfig configures a free text prompt. When Validator is set, Input
// only returns an answer it accepted; rejected answers are re-asked with the
// validator's message shown next to the prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig configures a yes/no prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig configures a single or multi-select prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int // multi-select; indices into Options
	Help         string
}

// Driver is the set of prompts a form flow needs.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	Info(ctx context.Context, msg string) error
}

// Survey drives prompts through survey/v2.
type Survey struct {
	stdio []survey.AskOpt
	out   io.Writer
}

// NewSurvey returns a Driver bound to the process terminal.
func NewSurvey() *Survey {
	return NewSurveyIO(os.Stdin, os.Stdout, os.Stderr)
}

// NewSurveyIO returns a Driver reading answers from in and rendering prompts
// and messages on out.
func NewSurveyIO(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) *Survey {
	return &Survey{
		stdio: []survey.AskOpt{survey.WithStdio(in, out, errOut)},
		out:   out,
	}
}

func (d *Survey) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var answer string
	q := &survey.Input{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(textValidator(cfg.Validator)))
	}
	return answer, d.ask(ctx, q, &answer, opts...)
}

func (d *Survey) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	q := &survey.Confirm{Message: cfg.Message, Help: cfg.Help, Default: cfg.Default}
	return answer, d.ask(ctx, q, &answer)
}

func (d *Survey) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	var answer string
	q := &survey.Select{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		q.Default = cfg.Options[cfg.DefaultIndex]
	}
	if err := d.ask(ctx, q, &answer); err != nil {
		return 0, err
	}
	return IndexOf(cfg.Options, answer), nil
}

func (d *Survey) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	var answer []string
	q := &survey.MultiSelect{Message: cfg.Message, Options: cfg.Options, Help: cfg.Help}
	if len(cfg.Defaults) > 0 {
		q.Default = optionsAt(cfg.Options, cfg.Defaults)
	}
	if err := d.ask(ctx, q, &answer); err != nil {
		return nil, err
	}
	return IndicesOf(cfg.Options, answer), nil
}

func (d *Survey) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// ask runs one survey question unless ctx is already done.
func (d *Survey) ask(ctx context.Context, q survey.Prompt, answer any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := survey.AskOne(q, answer, append(opts, d.stdio...)...); err != nil {
		return translateSurveyErr(err)
	}
	return nil
}

// textValidator adapts a string check to survey's answer-typed validator.
func textValidator(check func(string) error) survey.Validator {
	return func(ans any) error {
		text, ok := ans.(string)
		if !ok {
			return fmt.Errorf("prompt: expected text answer, got %T", ans)
		}
		return check(text)
	}
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// IndexOf returns the position of value in options, or -1.
func IndexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}

// IndicesOf returns the positions of values in options, in option order.
func IndicesOf(options, values []string) []int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	var out []int
	for i, option := range options {
		if _, ok := seen[option]; ok {
			out = append(out, i)
		}
	}
	return out
}

func optionsAt(options []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx >= 0 && idx < len(options) {
			out = append(out, options[idx])
		}
	}
	return out
}
