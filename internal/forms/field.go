// Package forms defines form templates, their typed fields and the rules a
// field definition must satisfy before it enters a template.
package forms

import (
	"encoding/json"
	"slices"
	"time"
)

// FieldType represents the input kind of a form field.
type FieldType string

const (
	// Free-text types

	// FieldTypeText is a single line of text.
	FieldTypeText FieldType = "text"
	// FieldTypeNumber is a numeric value (integer or float).
	FieldTypeNumber FieldType = "number"
	// FieldTypeEmail is an email address.
	FieldTypeEmail FieldType = "email"
	// FieldTypePassword is masked text.
	FieldTypePassword FieldType = "password"

	// Choice types (with predefined options)

	// FieldTypeDropdown is a single selection from a list.
	FieldTypeDropdown FieldType = "dropdown"
	// FieldTypeRadio is a single selection shown as radio buttons.
	FieldTypeRadio FieldType = "radio"
	// FieldTypeCheckbox is zero or more selections from a list.
	FieldTypeCheckbox FieldType = "checkbox"
)

// FieldTypes lists every valid field type in display order.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeNumber,
	FieldTypeEmail,
	FieldTypePassword,
	FieldTypeDropdown,
	FieldTypeRadio,
	FieldTypeCheckbox,
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	return slices.Contains(FieldTypes, t)
}

// HasOptions reports whether the type takes its value from a list of options.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldTypeDropdown, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// Validation holds the optional constraints checked when a form is filled.
//
// Min and Max bound the value of number fields, the length of text fields and
// the selection count of checkbox fields.
type Validation struct {
	Min   *float64 `json:"min,omitempty" yaml:"min,omitempty" jsonschema:"description=Lower numeric or length bound"`
	Max   *float64 `json:"max,omitempty" yaml:"max,omitempty" jsonschema:"description=Upper numeric or length bound"`
	Regex string   `json:"regex,omitempty" yaml:"regex,omitempty" jsonschema:"description=Pattern the answer must match"`
}

// IsZero returns true when no constraint is set.
func (v *Validation) IsZero() bool {
	return v == nil || (v.Min == nil && v.Max == nil && v.Regex == "")
}

// Clone returns a deep copy.
func (v *Validation) Clone() *Validation {
	if v == nil {
		return nil
	}
	c := &Validation{Regex: v.Regex}
	if v.Min != nil {
		m := *v.Min
		c.Min = &m
	}
	if v.Max != nil {
		m := *v.Max
		c.Max = &m
	}
	return c
}

// Field is one input definition of a template.
type Field struct {
	ID          string      `json:"id" yaml:"id" jsonschema:"description=Unique field identifier within the template"`
	Name        string      `json:"name" yaml:"name" jsonschema:"description=Field name, unique case-insensitively within the template"`
	Value       string      `json:"value" yaml:"value,omitempty" jsonschema:"description=Default value placeholder"`
	Type        FieldType   `json:"type" yaml:"type" jsonschema:"enum=text,enum=number,enum=email,enum=password,enum=dropdown,enum=radio,enum=checkbox"`
	Required    bool        `json:"required" yaml:"required"`
	Label       string      `json:"label" yaml:"label" jsonschema:"description=Display text"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty" jsonschema:"description=Hint shown in empty text inputs"`
	Options     []string    `json:"options" yaml:"options,omitempty" jsonschema:"description=Allowed values for dropdown, radio and checkbox fields"`
	Validation  *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() Field {
	c := *f
	c.Options = slices.Clone(f.Options)
	c.Validation = f.Validation.Clone()
	return c
}

// Input returns the field definition without its ID, as an editor would
// prefill it.
func (f *Field) Input() FieldInput {
	return FieldInput{
		Name:        f.Name,
		Type:        f.Type,
		Required:    f.Required,
		Placeholder: f.Placeholder,
		Options:     slices.Clone(f.Options),
		Validation:  f.Validation.Clone(),
	}
}

// FieldInput is a field definition as submitted by an editor, before an ID
// is assigned.
type FieldInput struct {
	Name        string
	Type        FieldType
	Required    bool
	Placeholder string
	Options     []string
	Validation  *Validation
}

// Template is one form design: a titled, ordered list of fields.
type Template struct {
	ID        string    `json:"id" yaml:"id" jsonschema:"description=Unique template identifier"`
	Title     string    `json:"title" yaml:"title" jsonschema:"description=Form title"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt" jsonschema:"description=Creation timestamp (ISO-8601)"`
	Fields    []Field   `json:"fields" yaml:"fields" jsonschema:"description=Ordered field definitions"`
}

// TimeLayout is the ISO-8601 layout of CreatedAt in JSON, always with
// milliseconds and in UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON writes CreatedAt with TimeLayout so the stored text does not
// change across load and save.
func (t Template) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string  `json:"id"`
		Title     string  `json:"title"`
		CreatedAt string  `json:"createdAt"`
		Fields    []Field `json:"fields"`
	}{t.ID, t.Title, t.CreatedAt.UTC().Format(TimeLayout), t.Fields})
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() Template {
	c := *t
	c.Fields = make([]Field, len(t.Fields))
	for i := range t.Fields {
		c.Fields[i] = t.Fields[i].Clone()
	}
	return c
}

// FieldIndex returns the position of the field with the given ID, or -1.
func (t *Template) FieldIndex(id string) int {
	return slices.IndexFunc(t.Fields, func(f Field) bool { return f.ID == id })
}

// FieldByName returns the field whose name matches case-insensitively.
func (t *Template) FieldByName(name string) (Field, bool) {
	key := nameKey(name)
	for _, f := range t.Fields {
		if nameKey(f.Name) == key {
			return f.Clone(), true
		}
	}
	return Field{}, false
}
