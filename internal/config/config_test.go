package config

import (
	"flag"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Output != OutputJSON {
		t.Fatalf("expected default output json, got %q", cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FORMSTATE_OPENAPI", "pets.json")
	t.Setenv("FORMSTATE_OPERATION", "createOwner")
	t.Setenv("FORMSTATE_OUTPUT", "pretty")
	t.Setenv("FORMSTATE_VALIDATE_ON_CHANGE", "true")
	t.Setenv("FORMSTATE_SANITIZE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Config{
		OpenAPI:          "pets.json",
		Operation:        "createOwner",
		Output:           OutputPretty,
		ValidateOnChange: true,
		Sanitize:         true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("FORMSTATE_SANITIZE", "not-a-bool")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FORMSTATE_OUTPUT", "pretty")
	t.Setenv("FORMSTATE_SCHEMA", "from-env.yaml")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse([]string{"-output", "json"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Output != OutputJSON {
		t.Fatalf("flag should win over env, got %q", cfg.Output)
	}
	if cfg.Schema != "from-env.yaml" {
		t.Fatalf("unset flag should keep env value, got %q", cfg.Schema)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"both sources", Config{Schema: "a.yaml", OpenAPI: "b.json", Operation: "op", Output: OutputJSON}, "mutually exclusive"},
		{"missing operation", Config{OpenAPI: "b.json", Output: OutputJSON}, "requires an operation"},
		{"bad output", Config{Output: "xml"}, `unknown output format "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
