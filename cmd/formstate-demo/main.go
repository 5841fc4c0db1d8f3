package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/internal/demo"
	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/schema/openapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := newSession(ctx, cfg, prompt.NewSurvey())
	if err != nil {
		log.Fatalf("Failed to build form: %v", err)
	}

	values, err := sess.Run(ctx)
	if errors.Is(err, prompt.ErrAborted) {
		log.Print("aborted")
		return
	}
	if err != nil {
		log.Fatalf("Failed to submit form: %v", err)
	}

	out, err := demo.Format(values, cfg.Output)
	if err != nil {
		log.Fatalf("Failed to encode values: %v", err)
	}
	fmt.Print(string(out))
}

func newSession(ctx context.Context, cfg config.Config, driver prompt.Driver) (*demo.Session, error) {
	engineOpts := []formstate.Option{formstate.WithValidateOnChange(cfg.ValidateOnChange)}
	if cfg.Sanitize {
		engineOpts = append(engineOpts, formstate.WithSanitizer(bluemonday.StrictPolicy()))
	}
	opts := []demo.Option{demo.WithEngineOptions(engineOpts...)}
	if cfg.Debug {
		opts = append(opts, demo.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}

	switch {
	case cfg.OpenAPI != "":
		doc, err := schema.ReadDocument(schema.SourceFromFile(cfg.OpenAPI))
		if err != nil {
			return nil, err
		}
		s, err := openapi.FromOperation(ctx, doc.Raw(), cfg.Operation)
		if err != nil {
			return nil, err
		}
		defaults, err := openapi.DefaultValues(ctx, doc.Raw(), cfg.Operation)
		if err != nil {
			return nil, err
		}
		return demo.NewSession(defaults, s, driver, opts...)
	case cfg.Schema != "":
		doc, err := schema.ReadDocument(schema.SourceFromFile(cfg.Schema))
		if err != nil {
			return nil, err
		}
		s, err := doc.Schema()
		if err != nil {
			return nil, err
		}
		return demo.NewSession(demo.DefaultsFor(s), s, driver, opts...)
	default:
		return demo.New(driver, opts...)
	}
}
