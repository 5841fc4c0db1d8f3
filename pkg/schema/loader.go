package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// Load parses a YAML (or JSON) schema document:
//
//	fields:
//	  - path: lastName
//	    rules:
//	      - kind: required
//	      - kind: maxLength
//	        params: {value: "10"}
//	  - path: pets[].name
//	    rules: [{kind: required}]
//
// Unknown keys are rejected and the result is compiled before it is returned.
func Load(data []byte) (*Schema, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("schema: document is empty")
	}

	var doc struct {
		Fields []Field `yaml:"fields"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}

	return New(doc.Fields...)
}

// LoadFile reads and parses the schema stored at path.
func LoadFile(path string) (*Schema, error) {
	return loadSource(SourceFromFile(path))
}

// LoadFS reads and parses name from fsys.
func LoadFS(fsys fs.FS, name string) (*Schema, error) {
	return loadSource(SourceFromFS(fsys, name))
}

func loadSource(src Source) (*Schema, error) {
	doc, err := ReadDocument(src)
	if err != nil {
		return nil, err
	}
	return doc.Schema()
}
