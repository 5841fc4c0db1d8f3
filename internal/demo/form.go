package demo

import (
	"embed"

	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/schema"
)

//go:embed form.yaml
var formFS embed.FS

// Schema returns the constraint tree of the demo form: a required last name
// of at most ten characters and a required name for every pet.
func Schema() (*schema.Schema, error) {
	return schema.LoadFS(formFS, "form.yaml")
}

// Defaults returns the initial values of the demo form with one pet already
// listed. newID defaults to uuid.NewString.
func Defaults(newID formstate.IDGenerator) map[string]any {
	if newID == nil {
		newID = uuid.NewString
	}
	return map[string]any{
		"firstName": "",
		"lastName":  "",
		"isTall":    false,
		"cookies":   []any{},
		"yogurt":    "",
		"pets": []any{
			map[string]any{"id": newID(), "type": "cat", "name": "jarvis"},
		},
	}
}

// NewPet is the element appended by "add" on the pets list. The engine
// assigns the id.
func NewPet(string) map[string]any {
	return map[string]any{"type": "frog", "name": ""}
}

// New builds a Session for the demo form.
func New(driver prompt.Driver, opts ...Option) (*Session, error) {
	s, err := Schema()
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithElementFactory(NewPet)}, opts...)
	return NewSession(Defaults(nil), s, driver, opts...)
}
