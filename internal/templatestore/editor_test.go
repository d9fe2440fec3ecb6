package templatestore

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/formdb/internal/forms"
	"github.com/maruel/formdb/internal/storage"
)

func TestFieldEditor(t *testing.T) {
	t.Parallel()

	t.Run("idle submit", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, storage.NewMemoryBackend())
		s.CreateTemplate("Intake")
		e := NewFieldEditor(s)
		if e.State() != EditorIdle {
			t.Fatalf("State() = %s, want idle", e.State())
		}
		if _, err := e.Submit(forms.FieldInput{Name: "A", Type: forms.FieldTypeText}); !errors.Is(err, ErrEditorIdle) {
			t.Errorf("Submit() = %v, want %v", err, ErrEditorIdle)
		}
	})

	t.Run("create then edit", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, storage.NewMemoryBackend())
		s.CreateTemplate("Intake")
		e := NewFieldEditor(s)

		e.BeginCreate()
		if e.State() != EditorCreating {
			t.Fatalf("State() = %s, want creating", e.State())
		}
		f, err := e.Submit(forms.FieldInput{Name: "Color", Type: forms.FieldTypeRadio, Options: []string{"red", "blue"}, Required: true})
		if err != nil || f == nil {
			t.Fatalf("Submit(create) = %v, %v", f, err)
		}
		if e.State() != EditorIdle {
			t.Errorf("State() after submit = %s, want idle", e.State())
		}

		in, ok := e.BeginEdit(f.ID)
		if !ok {
			t.Fatal("BeginEdit failed")
		}
		want := forms.FieldInput{Name: "Color", Type: forms.FieldTypeRadio, Required: true, Options: []string{"red", "blue"}}
		if diff := cmp.Diff(want, in); diff != "" {
			t.Errorf("prefill mismatch (-want +got):\n%s", diff)
		}
		if e.State() != EditorEditing || e.FieldID() != f.ID {
			t.Errorf("State() = %s, FieldID() = %q", e.State(), e.FieldID())
		}
		in.Options = append(in.Options, "green")
		got, err := e.Submit(in)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != f.ID || len(got.Options) != 3 {
			t.Errorf("updated field = %+v", got)
		}
		if n := len(mustCurrent(t, s).Fields); n != 1 {
			t.Errorf("edit added a field: %d fields", n)
		}
	})

	t.Run("validation error keeps form open", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, storage.NewMemoryBackend())
		s.CreateTemplate("Intake")
		e := NewFieldEditor(s)
		e.BeginCreate()
		if _, err := e.Submit(forms.FieldInput{Name: "Email", Type: forms.FieldTypeEmail}); err != nil {
			t.Fatal(err)
		}
		e.BeginCreate()
		if _, err := e.Submit(forms.FieldInput{Name: "EMAIL", Type: forms.FieldTypeText}); !errors.Is(err, forms.ErrDuplicateFieldName) {
			t.Fatalf("Submit(dup) = %v", err)
		}
		if e.State() != EditorCreating {
			t.Errorf("State() = %s, want creating", e.State())
		}
		e.Cancel()
		if e.State() != EditorIdle {
			t.Errorf("State() after cancel = %s", e.State())
		}
	})

	t.Run("edit unknown field", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t, storage.NewMemoryBackend())
		e := NewFieldEditor(s)
		e.BeginCreate()
		if _, ok := e.BeginEdit("nope"); ok {
			t.Error("BeginEdit without current succeeded")
		}
		if e.State() != EditorIdle {
			t.Errorf("State() = %s, want idle", e.State())
		}
		s.CreateTemplate("Intake")
		if _, ok := e.BeginEdit("nope"); ok {
			t.Error("BeginEdit(unknown) succeeded")
		}
	})
}
