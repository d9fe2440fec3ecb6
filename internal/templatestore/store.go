// Package templatestore holds the authoritative in-memory state of form
// templates and the one template being edited.
//
// # Edit buffer
//
// The store keeps a committed collection of templates and an optional working
// copy, the current template. Field operations apply to the working copy and
// are then committed: the matching collection entry is replaced wholesale and
// the whole collection is written to the backend as one JSON array. Both steps
// run under the store lock, so no caller observes one without the other.
//
// # Persistence
//
// Writes are best effort. A failed write is logged and reported to listeners
// through [Event.PersistErr], but the in-memory mutation stands.
package templatestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/maruel/formdb/internal/forms"
	"github.com/maruel/formdb/internal/ids"
	"github.com/maruel/formdb/internal/storage"
)

// DefaultKey is the storage key of the template collection.
const DefaultKey = "formTemplates_v1"

// ErrIndexOutOfRange is returned by ReorderFields for a position outside the
// current field list.
var ErrIndexOutOfRange = errors.New("field index out of range")

// errNoop aborts an edit without committing.
var errNoop = errors.New("no-op")

// Options configures a Store. Zero values select defaults.
type Options struct {
	// Key defaults to DefaultKey.
	Key string
	// NewID defaults to ids.KSID.
	NewID ids.Generator
	// Now defaults to time.Now.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store is the template state container. It starts empty; call LoadAll to
// hydrate it from the backend.
type Store struct {
	backend storage.Backend
	key     string
	newID   ids.Generator
	now     func() time.Time
	log     *slog.Logger

	mu        sync.Mutex
	templates []forms.Template
	current   *forms.Template

	lmu          sync.Mutex
	listeners    []listener
	nextListener int
}

// New returns an empty Store persisting to backend.
func New(backend storage.Backend, opts Options) *Store {
	s := &Store{
		backend:   backend,
		key:       opts.Key,
		newID:     opts.NewID,
		now:       opts.Now,
		log:       opts.Logger,
		templates: []forms.Template{},
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.newID == nil {
		s.newID = ids.KSID
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// LoadAll replaces the template collection with the persisted one. Missing,
// unreadable or malformed data yields an empty collection. The current
// template is left alone.
func (s *Store) LoadAll() {
	templates := s.read()
	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()
	s.notify(Event{Kind: EventLoaded})
}

func (s *Store) read() []forms.Template {
	raw, ok, err := s.backend.Get(s.key)
	if err != nil {
		s.log.Warn("Failed to read templates", "key", s.key, "err", err)
		return []forms.Template{}
	}
	if !ok {
		return []forms.Template{}
	}
	var templates []forms.Template
	if err := json.Unmarshal([]byte(raw), &templates); err != nil {
		s.log.Warn("Discarding malformed templates", "key", s.key, "err", err)
		return []forms.Template{}
	}
	if templates == nil {
		return []forms.Template{}
	}
	for i := range templates {
		if templates[i].Fields == nil {
			templates[i].Fields = []forms.Field{}
		}
		for j := range templates[i].Fields {
			if templates[i].Fields[j].Options == nil {
				templates[i].Fields[j].Options = []string{}
			}
		}
	}
	return templates
}

// CreateTemplate appends a new empty template, makes a copy of it current and
// persists the collection. Titles are not checked for emptiness or
// uniqueness here.
func (s *Store) CreateTemplate(title string) forms.Template {
	t := forms.Template{
		ID:        s.newID(),
		Title:     title,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Fields:    []forms.Field{},
	}
	s.mu.Lock()
	cur := t.Clone()
	s.current = &cur
	s.templates = append(s.templates, t.Clone())
	perr := s.persist()
	s.mu.Unlock()
	s.notify(Event{Kind: EventTemplateCreated, TemplateID: t.ID, PersistErr: perr})
	return t
}

// SelectTemplate makes a copy of the template with the given id current.
// An empty or unknown id clears the selection. It reports whether a template
// was selected.
func (s *Store) SelectTemplate(id string) bool {
	s.mu.Lock()
	s.current = nil
	if i := s.indexOf(id); id != "" && i >= 0 {
		cur := s.templates[i].Clone()
		s.current = &cur
	}
	found := s.current != nil
	s.mu.Unlock()
	if found {
		s.notify(Event{Kind: EventTemplateSelected, TemplateID: id})
	} else {
		s.notify(Event{Kind: EventTemplateSelected})
	}
	return found
}

// SetCurrent makes a copy of t current without looking it up in the
// collection; nil clears the selection. When t is not part of the collection,
// later field operations change only the current template.
func (s *Store) SetCurrent(t *forms.Template) {
	ev := Event{Kind: EventTemplateSelected}
	s.mu.Lock()
	s.current = nil
	if t != nil {
		cur := t.Clone()
		s.current = &cur
		ev.TemplateID = cur.ID
	}
	s.mu.Unlock()
	s.notify(ev)
}

// AddField normalizes in, assigns it a fresh ID and appends it to the current
// template. It returns nil without error when no template is current, before
// any validation, and a *forms.ValidationError when the name is blank or
// already used or the type is unknown.
func (s *Store) AddField(in forms.FieldInput) (*forms.Field, error) {
	f := forms.NormalizeField(in)
	ok, err := s.edit(EventFieldAdded, func(cur *forms.Template) (string, error) {
		if err := forms.ValidateField(&f); err != nil {
			return "", err
		}
		if err := forms.ValidateUniqueName(f.Name, cur.Fields, ""); err != nil {
			return "", err
		}
		f.ID = s.newID()
		cur.Fields = append(cur.Fields, f.Clone())
		return f.ID, nil
	})
	if !ok {
		return nil, err
	}
	return &f, nil
}

// UpdateField replaces the field with the given id in place, keeping its ID
// and position. The new name must be unique among the other fields. It
// returns nil without error when no template is current or id is unknown;
// the input is validated only after both checks pass.
func (s *Store) UpdateField(id string, in forms.FieldInput) (*forms.Field, error) {
	f := forms.NormalizeField(in)
	f.ID = id
	ok, err := s.edit(EventFieldUpdated, func(cur *forms.Template) (string, error) {
		i := cur.FieldIndex(id)
		if i < 0 {
			return "", errNoop
		}
		if err := forms.ValidateField(&f); err != nil {
			return "", err
		}
		if err := forms.ValidateUniqueName(f.Name, cur.Fields, id); err != nil {
			return "", err
		}
		cur.Fields[i] = f.Clone()
		return id, nil
	})
	if !ok {
		return nil, err
	}
	return &f, nil
}

// RemoveField deletes the field with the given id from the current template.
// It reports whether a field was removed.
func (s *Store) RemoveField(id string) bool {
	ok, _ := s.edit(EventFieldRemoved, func(cur *forms.Template) (string, error) {
		i := cur.FieldIndex(id)
		if i < 0 {
			return "", errNoop
		}
		cur.Fields = slices.Delete(cur.Fields, i, i+1)
		return id, nil
	})
	return ok
}

// ReorderFields moves the field at position from to position to, shifting
// the fields in between. Both positions must index the current field list.
// It does nothing when no template is current.
func (s *Store) ReorderFields(from, to int) error {
	_, err := s.edit(EventFieldsReordered, func(cur *forms.Template) (string, error) {
		n := len(cur.Fields)
		if from < 0 || from >= n || to < 0 || to >= n {
			return "", fmt.Errorf("%w: move %d to %d with %d fields", ErrIndexOutOfRange, from, to, n)
		}
		f := cur.Fields[from]
		cur.Fields = slices.Delete(cur.Fields, from, from+1)
		cur.Fields = slices.Insert(cur.Fields, to, f)
		return f.ID, nil
	})
	return err
}

// DeleteTemplate removes the template with the given id from the collection,
// clears the current template if it has that id and persists. It reports
// whether a template was removed from the collection.
func (s *Store) DeleteTemplate(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i >= 0 {
		s.templates = slices.Delete(s.templates, i, i+1)
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	perr := s.persist()
	s.mu.Unlock()
	s.notify(Event{Kind: EventTemplateDeleted, TemplateID: id, PersistErr: perr})
	return i >= 0
}

// Templates returns a copy of the collection in display order.
func (s *Store) Templates() []forms.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]forms.Template, len(s.templates))
	for i := range s.templates {
		out[i] = s.templates[i].Clone()
	}
	return out
}

// Template returns a copy of the committed template with the given id.
func (s *Store) Template(id string) (forms.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.templates[i].Clone(), true
	}
	return forms.Template{}, false
}

// Current returns a copy of the current template.
func (s *Store) Current() (forms.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return forms.Template{}, false
	}
	return s.current.Clone(), true
}

// edit runs fn on the current template and commits the result. fn must
// validate before mutating. It returns false when there is no current
// template, fn failed or fn reported a no-op.
func (s *Store) edit(kind EventKind, fn func(cur *forms.Template) (fieldID string, err error)) (bool, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return false, nil
	}
	fieldID, err := fn(s.current)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoop) {
			return false, nil
		}
		return false, err
	}
	ev := Event{Kind: kind, TemplateID: s.current.ID, FieldID: fieldID}
	ev.PersistErr = s.commit()
	s.mu.Unlock()
	s.notify(ev)
	return true, nil
}

// commit mirrors the current template into the collection and persists.
// Must be called with s.mu held.
func (s *Store) commit() error {
	if i := s.indexOf(s.current.ID); i >= 0 {
		s.templates[i] = s.current.Clone()
	} else {
		s.log.Warn("Current template is not in the collection, change kept in the edit buffer only", "template", s.current.ID)
	}
	return s.persist()
}

// persist writes the whole collection. Must be called with s.mu held.
func (s *Store) persist() error {
	data, err := json.Marshal(s.templates)
	if err != nil {
		s.log.Warn("Failed to encode templates", "key", s.key, "err", err)
		return err
	}
	if err := s.backend.Set(s.key, string(data)); err != nil {
		s.log.Warn("Failed to persist templates", "key", s.key, "err", err)
		return err
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.templates, func(t forms.Template) bool { return t.ID == id })
}
