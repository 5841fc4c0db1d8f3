package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Source identifies where a schema document comes from so callers can load
// files, fs.FS entries or embedded bytes the same way.
type Source interface {
	Kind() SourceKind
	Location() string
	ReadAll() ([]byte, error)
}

// SourceKind enumerates the supported origins.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindInline SourceKind = "inline"
)

type fileSource struct {
	path string
}

func (s fileSource) Kind() SourceKind { return SourceKindFile }
func (s fileSource) Location() string { return s.path }

func (s fileSource) ReadAll() ([]byte, error) {
	return os.ReadFile(s.path)
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	fsys fs.FS
	name string
}

func (s fsSource) Kind() SourceKind { return SourceKindFS }
func (s fsSource) Location() string { return s.name }

func (s fsSource) ReadAll() ([]byte, error) {
	if s.fsys == nil {
		return nil, fmt.Errorf("fs is nil")
	}
	return fs.ReadFile(s.fsys, s.name)
}

// SourceFromFS returns a Source naming a file inside fsys.
func SourceFromFS(fsys fs.FS, name string) Source {
	return fsSource{fsys: fsys, name: name}
}

type inlineSource struct {
	name string
	raw  []byte
}

func (s inlineSource) Kind() SourceKind { return SourceKindInline }
func (s inlineSource) Location() string { return s.name }

func (s inlineSource) ReadAll() ([]byte, error) {
	return append([]byte(nil), s.raw...), nil
}

// SourceInline wraps bytes that are already in memory, e.g. an embedded
// default form. name only appears in error messages.
func SourceInline(name string, raw []byte) Source {
	return inlineSource{name: name, raw: append([]byte(nil), raw...)}
}
