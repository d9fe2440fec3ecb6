package templatestore

// EventKind identifies the operation that produced an Event.
type EventKind string

const (
	// EventLoaded follows LoadAll.
	EventLoaded EventKind = "loaded"
	// EventTemplateCreated follows CreateTemplate.
	EventTemplateCreated EventKind = "template_created"
	// EventTemplateSelected follows SelectTemplate and SetCurrent.
	EventTemplateSelected EventKind = "template_selected"
	// EventTemplateDeleted follows DeleteTemplate.
	EventTemplateDeleted EventKind = "template_deleted"
	// EventFieldAdded follows a successful AddField.
	EventFieldAdded EventKind = "field_added"
	// EventFieldUpdated follows a successful UpdateField.
	EventFieldUpdated EventKind = "field_updated"
	// EventFieldRemoved follows a successful RemoveField.
	EventFieldRemoved EventKind = "field_removed"
	// EventFieldsReordered follows a successful ReorderFields.
	EventFieldsReordered EventKind = "fields_reordered"
)

// Event describes a state change of a Store.
type Event struct {
	Kind EventKind
	// TemplateID is the template affected, empty when selection was cleared.
	TemplateID string
	// FieldID is set for field events.
	FieldID string
	// PersistErr is the write failure of a mutation, if any. The in-memory
	// change was applied regardless.
	PersistErr error
}

type listener struct {
	id int
	fn func(Event)
}

// Subscribe registers fn to be called after every state change, in
// registration order. Listeners run after the store lock is released and may
// call back into the store. The returned function unregisters fn.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(ev Event) {
	s.lmu.Lock()
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.lmu.Unlock()
	for _, l := range ls {
		l.fn(ev)
	}
}
