package forms

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ptr(v float64) *float64 {
	return &v
}

func TestNormalizeField(t *testing.T) {
	t.Parallel()

	t.Run("text drops options", func(t *testing.T) {
		t.Parallel()
		f := NormalizeField(FieldInput{Name: "Nick", Type: FieldTypeText, Options: []string{"a", "b"}, Placeholder: "your nick"})
		if len(f.Options) != 0 || f.Options == nil {
			t.Errorf("Options = %#v, want empty non-nil slice", f.Options)
		}
		if f.Placeholder != "your nick" {
			t.Errorf("Placeholder = %q, want %q", f.Placeholder, "your nick")
		}
	})

	t.Run("label copies name", func(t *testing.T) {
		t.Parallel()
		f := NormalizeField(FieldInput{Name: " Full Name ", Type: FieldTypeText})
		if f.Label != " Full Name " {
			t.Errorf("Label = %q, want name verbatim", f.Label)
		}
	})

	t.Run("choice types keep options", func(t *testing.T) {
		t.Parallel()
		for _, typ := range []FieldType{FieldTypeDropdown, FieldTypeRadio, FieldTypeCheckbox} {
			in := FieldInput{Name: "Color", Type: typ, Options: []string{"red", "blue"}, Placeholder: "pick"}
			f := NormalizeField(in)
			if diff := cmp.Diff([]string{"red", "blue"}, f.Options); diff != "" {
				t.Errorf("%s options mismatch (-want +got):\n%s", typ, diff)
			}
			if f.Placeholder != "" {
				t.Errorf("%s Placeholder = %q, want empty", typ, f.Placeholder)
			}
			in.Options[0] = "green"
			if f.Options[0] != "red" {
				t.Errorf("%s options alias the input slice", typ)
			}
		}
	})

	t.Run("placeholder only for text", func(t *testing.T) {
		t.Parallel()
		for _, typ := range []FieldType{FieldTypeNumber, FieldTypeEmail, FieldTypePassword} {
			f := NormalizeField(FieldInput{Name: "x", Type: typ, Placeholder: "hint"})
			if f.Placeholder != "" {
				t.Errorf("%s Placeholder = %q, want empty", typ, f.Placeholder)
			}
		}
	})

	t.Run("validation passes through", func(t *testing.T) {
		t.Parallel()
		v := &Validation{Min: ptr(3), Max: ptr(1), Regex: "^a"}
		f := NormalizeField(FieldInput{Name: "Code", Type: FieldTypeEmail, Required: true, Validation: v})
		if !f.Required {
			t.Error("Required lost")
		}
		if diff := cmp.Diff(v, f.Validation); diff != "" {
			t.Errorf("Validation mismatch (-want +got):\n%s", diff)
		}
		if f.Validation == v {
			t.Error("Validation aliases the input")
		}
	})

	t.Run("empty validation dropped", func(t *testing.T) {
		t.Parallel()
		f := NormalizeField(FieldInput{Name: "x", Type: FieldTypeText, Validation: &Validation{}})
		if f.Validation != nil {
			t.Errorf("Validation = %+v, want nil", f.Validation)
		}
	})
}

func TestValidateField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		field Field
		want  error
	}{
		{"valid", Field{Name: "Email", Type: FieldTypeEmail}, nil},
		{"blank name", Field{Name: "   ", Type: FieldTypeText}, ErrFieldNameRequired},
		{"unknown type", Field{Name: "x", Type: "date"}, ErrInvalidFieldType},
		{"missing type", Field{Name: "x"}, ErrInvalidFieldType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateField(&tt.field)
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("ValidateField() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateUniqueName(t *testing.T) {
	t.Parallel()
	fields := []Field{
		{ID: "f1", Name: "Email"},
		{ID: "f2", Name: "Phone Number"},
	}
	tests := []struct {
		name      string
		candidate string
		excludeID string
		wantDup   bool
	}{
		{"new name", "Address", "", false},
		{"same case", "Email", "", true},
		{"different case", "email", "", true},
		{"surrounding whitespace", "  PHONE number ", "", true},
		{"self excluded", "EMAIL", "f1", false},
		{"other field not excluded", "email", "f2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateUniqueName(tt.candidate, fields, tt.excludeID)
			if got := errors.Is(err, ErrDuplicateFieldName); got != tt.wantDup {
				t.Fatalf("ValidateUniqueName(%q, %q) = %v, want duplicate=%v", tt.candidate, tt.excludeID, err, tt.wantDup)
			}
			if tt.wantDup {
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Code() != ErrorCodeDuplicateFieldName {
					t.Errorf("error %v does not carry code %s", err, ErrorCodeDuplicateFieldName)
				}
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	t.Parallel()
	if err := ValidateTitle("Intake"); err != nil {
		t.Errorf("ValidateTitle(Intake) = %v", err)
	}
	if err := ValidateTitle(" \t"); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("ValidateTitle(blank) = %v, want %v", err, ErrTitleRequired)
	}
}

func TestTemplateClone(t *testing.T) {
	t.Parallel()
	orig := Template{
		ID:    "t1",
		Title: "Intake",
		Fields: []Field{
			{ID: "f1", Name: "Color", Type: FieldTypeRadio, Options: []string{"red"}, Validation: &Validation{Min: ptr(1)}},
		},
	}
	c := orig.Clone()
	c.Fields[0].Options[0] = "blue"
	*c.Fields[0].Validation.Min = 5
	c.Fields = append(c.Fields, Field{ID: "f2"})
	if orig.Fields[0].Options[0] != "red" || *orig.Fields[0].Validation.Min != 1 || len(orig.Fields) != 1 {
		t.Errorf("Clone shares state with the original: %+v", orig)
	}
	if got := orig.FieldIndex("f1"); got != 0 {
		t.Errorf("FieldIndex(f1) = %d, want 0", got)
	}
	if got := orig.FieldIndex("nope"); got != -1 {
		t.Errorf("FieldIndex(nope) = %d, want -1", got)
	}
	if f, ok := orig.FieldByName(" COLOR"); !ok || f.ID != "f1" {
		t.Errorf("FieldByName(COLOR) = %+v, %v", f, ok)
	}
}

func TestSchema(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatalf("Marshal schema: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"type":"array"`, `"createdAt"`, `"fields"`, `"dropdown"`, `"regex"`} {
		if !strings.Contains(s, want) {
			t.Errorf("schema missing %s: %s", want, s)
		}
	}
}

func TestTemplateJSONTimestamp(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		`[{"id":"t1","title":"Intake","createdAt":"2024-01-02T03:04:05.000Z","fields":[]}]`,
		`[{"id":"t1","title":"Intake","createdAt":"2024-01-02T03:04:05.120Z","fields":[]}]`,
	} {
		var got []Template
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatal(err)
		}
		out, err := json.Marshal(got)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != raw {
			t.Errorf("re-encoded\n%s\nwant\n%s", out, raw)
		}
	}

	// Non-UTC times are written in UTC.
	tmpl := Template{ID: "t2", CreatedAt: time.Date(2024, 1, 2, 5, 4, 5, 0, time.FixedZone("CET", 2*3600)), Fields: []Field{}}
	out, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"createdAt":"2024-01-02T03:04:05.000Z"`) {
		t.Errorf("Marshal() = %s", out)
	}
}
