package templatestore

import (
	"errors"

	"github.com/maruel/formdb/internal/forms"
)

// EditorState is the state of a FieldEditor.
type EditorState int

const (
	// EditorIdle means no field form is open.
	EditorIdle EditorState = iota
	// EditorCreating means a blank form for a new field is open.
	EditorCreating
	// EditorEditing means a form prefilled from an existing field is open.
	EditorEditing
)

func (s EditorState) String() string {
	switch s {
	case EditorIdle:
		return "idle"
	case EditorCreating:
		return "creating"
	case EditorEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// ErrEditorIdle is returned by Submit when no field form is open.
var ErrEditorIdle = errors.New("no field is being created or edited")

// FieldEditor drives the create/edit interaction for fields of the current
// template of a Store.
type FieldEditor struct {
	store   *Store
	state   EditorState
	fieldID string
}

// NewFieldEditor returns an idle editor bound to s.
func NewFieldEditor(s *Store) *FieldEditor {
	return &FieldEditor{store: s}
}

// State returns the editor state.
func (e *FieldEditor) State() EditorState {
	return e.state
}

// FieldID returns the ID of the field being edited, empty unless editing.
func (e *FieldEditor) FieldID() string {
	return e.fieldID
}

// BeginCreate opens a blank form, discarding any form already open.
func (e *FieldEditor) BeginCreate() {
	e.state = EditorCreating
	e.fieldID = ""
}

// BeginEdit opens a form prefilled from the field with the given id of the
// current template. An unknown id leaves the editor idle.
func (e *FieldEditor) BeginEdit(id string) (forms.FieldInput, bool) {
	e.Cancel()
	cur, ok := e.store.Current()
	if !ok {
		return forms.FieldInput{}, false
	}
	i := cur.FieldIndex(id)
	if i < 0 {
		return forms.FieldInput{}, false
	}
	e.state = EditorEditing
	e.fieldID = id
	return cur.Fields[i].Input(), true
}

// Cancel closes the form without changing the store.
func (e *FieldEditor) Cancel() {
	e.state = EditorIdle
	e.fieldID = ""
}

// Submit adds or updates the field depending on the state. On a validation
// error the form stays open; otherwise the editor returns to idle. The
// returned field is nil when the store had nothing to apply it to.
func (e *FieldEditor) Submit(in forms.FieldInput) (*forms.Field, error) {
	var f *forms.Field
	var err error
	switch e.state {
	case EditorCreating:
		f, err = e.store.AddField(in)
	case EditorEditing:
		f, err = e.store.UpdateField(e.fieldID, in)
	default:
		return nil, ErrEditorIdle
	}
	if err != nil {
		return nil, err
	}
	e.Cancel()
	return f, nil
}
