package forms

import (
	"slices"
	"strings"
)

// NormalizeField turns editor input into a field definition without an ID.
//
// Options survive only for choice types and the placeholder only for text
// fields. The label is the name verbatim. Required and validation bounds pass
// through unchanged; they are enforced when the form is filled.
func NormalizeField(in FieldInput) Field {
	f := Field{
		Name:       in.Name,
		Label:      in.Name,
		Type:       in.Type,
		Required:   in.Required,
		Options:    []string{},
		Validation: in.Validation.Clone(),
	}
	if in.Type.HasOptions() && len(in.Options) > 0 {
		f.Options = slices.Clone(in.Options)
	}
	if in.Type == FieldTypeText {
		f.Placeholder = in.Placeholder
	}
	if f.Validation.IsZero() {
		f.Validation = nil
	}
	return f
}

// ValidateField checks the structure of a normalized field.
func ValidateField(f *Field) error {
	if strings.TrimSpace(f.Name) == "" {
		return newValidationError(ErrorCodeMissingFieldName, "")
	}
	if !f.Type.Valid() {
		return newValidationError(ErrorCodeInvalidFieldType, string(f.Type))
	}
	return nil
}

// ValidateUniqueName fails with ErrDuplicateFieldName when name matches,
// after trimming and case folding, the name of any field other than the one
// whose ID is excludeID. Pass an empty excludeID when adding a new field.
func ValidateUniqueName(name string, fields []Field, excludeID string) error {
	key := nameKey(name)
	for i := range fields {
		if excludeID != "" && fields[i].ID == excludeID {
			continue
		}
		if nameKey(fields[i].Name) == key {
			return newValidationError(ErrorCodeDuplicateFieldName, strings.TrimSpace(name))
		}
	}
	return nil
}

// ValidateTitle rejects a blank template title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return newValidationError(ErrorCodeMissingTitle, "")
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
