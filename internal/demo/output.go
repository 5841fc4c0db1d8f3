package demo

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/pkg/fieldpath"
)

// Format serialises submitted values. "json" emits indented JSON, "pretty"
// one `path = value` line per leaf in path order.
func Format(values map[string]any, format string) ([]byte, error) {
	switch format {
	case "", config.OutputJSON:
		out, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("demo: encode json: %w", err)
		}
		return append(out, '\n'), nil
	case config.OutputPretty:
		var buf bytes.Buffer
		for _, path := range fieldpath.Leaves(values) {
			value, _ := fieldpath.GetString(values, path)
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("demo: encode %s: %w", path, err)
			}
			fmt.Fprintf(&buf, "%s = %s\n", path, encoded)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("demo: unknown output format %q", format)
	}
}
