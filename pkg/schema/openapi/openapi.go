// Package openapi derives a form schema from the request body of an OpenAPI 3
// operation so forms can reuse the constraints an API already publishes.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/schema"
)

// FromOperation loads an OpenAPI document and converts the JSON (or form
// encoded) request body of operationID into a compiled schema.
func FromOperation(ctx context.Context, raw []byte, operationID string) (*schema.Schema, error) {
	body, err := loadRequestBody(ctx, raw, operationID)
	if err != nil {
		return nil, err
	}
	var fields []schema.Field
	collectFields(body, nil, &fields)
	return schema.New(fields...)
}

// DefaultValues builds the zero-value tree matching the request body of
// operationID: strings and numbers become "", booleans false, arrays empty
// and objects recurse. Declared defaults win.
func DefaultValues(ctx context.Context, raw []byte, operationID string) (map[string]any, error) {
	body, err := loadRequestBody(ctx, raw, operationID)
	if err != nil {
		return nil, err
	}
	values, ok := zeroValue(body).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("openapi: operation %q request body is not an object", operationID)
	}
	return values, nil
}

func loadRequestBody(ctx context.Context, raw []byte, operationID string) (*openapi3.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	operationID = strings.TrimSpace(operationID)
	if operationID == "" {
		return nil, errors.New("openapi: operation id is required")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	op := findOperation(doc, operationID)
	if op == nil {
		return nil, fmt.Errorf("openapi: operation %q not found", operationID)
	}
	body := requestSchema(op.RequestBody)
	if body == nil {
		return nil, fmt.Errorf("openapi: operation %q has no request body schema", operationID)
	}
	return body, nil
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestSchema(ref *openapi3.RequestBodyRef) *openapi3.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	content := ref.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func collectFields(src *openapi3.Schema, prefix fieldpath.Path, out *[]schema.Field) {
	if src == nil {
		return
	}
	required := make(map[string]bool, len(src.Required))
	for _, name := range src.Required {
		required[name] = true
	}

	for _, name := range sortedKeys(src.Properties) {
		ref := src.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		path := prefix.Append(fieldpath.Key(name))

		field := schema.Field{Path: path.String(), Label: prop.Title}
		if required[name] {
			field.Rules = append(field.Rules, schema.Required())
		}

		switch schemaType(prop) {
		case "object":
			if len(field.Rules) > 0 {
				field.Kind = schema.KindGroup
				*out = append(*out, field)
			}
			collectFields(prop, path, out)
			continue
		case "array":
			field.Rules = append(field.Rules, itemBounds(prop)...)
			items := itemSchema(prop)
			if items != nil && schemaType(items) == "object" {
				field.Kind = schema.KindArray
				*out = append(*out, field)
				collectFields(items, path.Append(fieldpath.Segment{Kind: fieldpath.WildcardSegment}), out)
				continue
			}
			field.Kind = schema.KindCheckbox
			if items != nil && len(items.Enum) > 0 {
				field.Options = enumStrings(items.Enum)
				field.Rules = append(field.Rules, schema.OneOf())
			}
		case "boolean":
			field.Kind = schema.KindCheckbox
		case "integer", "number":
			field.Kind = schema.KindText
			if prop.Min != nil {
				field.Rules = append(field.Rules, schema.Min(*prop.Min))
			}
			if prop.Max != nil {
				field.Rules = append(field.Rules, schema.Max(*prop.Max))
			}
		default:
			field.Kind = schema.KindText
			if len(prop.Enum) > 0 {
				field.Kind = schema.KindSelect
				field.Options = enumStrings(prop.Enum)
				field.Rules = append(field.Rules, schema.OneOf())
			}
			if prop.MinLength > 0 {
				field.Rules = append(field.Rules, schema.MinLength(int(prop.MinLength)))
			}
			if prop.MaxLength != nil {
				field.Rules = append(field.Rules, schema.MaxLength(int(*prop.MaxLength)))
			}
			if prop.Pattern != "" {
				field.Rules = append(field.Rules, schema.Pattern(prop.Pattern))
			}
		}
		*out = append(*out, field)
	}
}

func itemBounds(prop *openapi3.Schema) []schema.Rule {
	var rules []schema.Rule
	if prop.MinItems > 0 {
		rules = append(rules, schema.MinItems(int(prop.MinItems)))
	}
	if prop.MaxItems != nil {
		rules = append(rules, schema.MaxItems(int(*prop.MaxItems)))
	}
	return rules
}

func itemSchema(prop *openapi3.Schema) *openapi3.Schema {
	if prop.Items == nil {
		return nil
	}
	return prop.Items.Value
}

func zeroValue(src *openapi3.Schema) any {
	if src == nil {
		return nil
	}
	if src.Default != nil {
		return fieldpath.Clone(src.Default)
	}
	switch schemaType(src) {
	case "object":
		out := make(map[string]any, len(src.Properties))
		for name, ref := range src.Properties {
			if ref == nil || ref.Value == nil {
				continue
			}
			out[name] = zeroValue(ref.Value)
		}
		return out
	case "array":
		return []any{}
	case "boolean":
		return false
	default:
		return ""
	}
}

func schemaType(src *openapi3.Schema) string {
	if src == nil || src.Type == nil {
		if src != nil && len(src.Properties) > 0 {
			return "object"
		}
		return ""
	}
	values := src.Type.Slice()
	for _, value := range values {
		if value != "null" {
			return value
		}
	}
	return ""
}

func enumStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		switch typed := value.(type) {
		case string:
			out = append(out, typed)
		case float64:
			out = append(out, strconv.FormatFloat(typed, 'f', -1, 64))
		default:
			out = append(out, fmt.Sprint(typed))
		}
	}
	return out
}

func sortedKeys(props openapi3.Schemas) []string {
	keys := make([]string, 0, len(props))
	for name := range props {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}
