package schema

import (
	"errors"
	"fmt"
)

// Document is a raw schema payload together with its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument wraps raw, copying it.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(raw) == 0 {
		return Document{}, fmt.Errorf("schema: %s: document is empty", src.Location())
	}
	return Document{source: src, raw: append([]byte(nil), raw...)}, nil
}

// ReadDocument reads the whole payload behind src.
func ReadDocument(src Source) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	raw, err := src.ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("schema: read %s: %w", src.Location(), err)
	}
	return NewDocument(src, raw)
}

// Source returns the origin of the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the origin identifier, e.g. the file path.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Schema parses the document as a constraint tree. Errors carry the
// document location.
func (d Document) Schema() (*Schema, error) {
	s, err := Load(d.raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Location(), err)
	}
	return s, nil
}
