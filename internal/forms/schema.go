package forms

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of the persisted template collection: an
// array of Template objects with inline definitions.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.ReflectFromType(reflect.TypeFor[[]Template]())
	s.Title = "Form templates"
	return s
}
