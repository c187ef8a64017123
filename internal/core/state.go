package core

import (
	"fmt"
	"maps"
	"slices"
)

// State is the whole persisted application state: four maps keyed by event
// name. An event exists exactly when it has an entry in Lists.
type State struct {
	Lists    map[string][]ShoppingItem      `json:"eventShoppingLists"`
	Metadata map[string]EventMetadata       `json:"eventMetadata"`
	Execute  map[string]map[string][]string `json:"executeModeItems"`
	DayModes map[string]map[string]ViewMode `json:"dayModes"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Lists:    make(map[string][]ShoppingItem),
		Metadata: make(map[string]EventMetadata),
		Execute:  make(map[string]map[string][]string),
		DayModes: make(map[string]map[string]ViewMode),
	}
}

// normalize replaces nil maps, as produced by decoding a partial blob.
func (s *State) normalize() {
	if s.Lists == nil {
		s.Lists = make(map[string][]ShoppingItem)
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]EventMetadata)
	}
	if s.Execute == nil {
		s.Execute = make(map[string]map[string][]string)
	}
	if s.DayModes == nil {
		s.DayModes = make(map[string]map[string]ViewMode)
	}
}

// Normalize fills in nil maps and drops Execute ids that no longer resolve
// to an item of the right day.
func (s *State) Normalize() {
	s.normalize()
	for name, days := range s.Execute {
		dates := make(map[string]string, len(s.Lists[name]))
		for _, it := range s.Lists[name] {
			dates[it.ID] = it.EventDate
		}
		for date, ids := range days {
			seen := make(map[string]struct{}, len(ids))
			days[date] = slices.DeleteFunc(ids, func(id string) bool {
				if _, dup := seen[id]; dup || dates[id] != date {
					return true
				}
				seen[id] = struct{}{}
				return false
			})
		}
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := NewState()
	for _, name := range s.EventNames() {
		ev, _ := s.Event(name)
		out.PutEvent(ev)
	}
	return out
}

// EventNames returns every event name in sorted order.
func (s *State) EventNames() []string {
	return slices.Sorted(maps.Keys(s.Lists))
}

// HasEvent reports whether name exists.
func (s *State) HasEvent(name string) bool {
	_, ok := s.Lists[name]
	return ok
}

// Event returns a deep copy of one event.
func (s *State) Event(name string) (Event, bool) {
	items, ok := s.Lists[name]
	if !ok {
		return Event{}, false
	}
	ev := Event{
		Name:     name,
		Items:    items,
		Execute:  s.Execute[name],
		DayModes: s.DayModes[name],
	}
	if md, ok := s.Metadata[name]; ok {
		ev.Metadata = &md
	}
	return ev.Clone(), true
}

// PutEvent stores a copy of ev under ev.Name, replacing any previous entry.
func (s *State) PutEvent(ev Event) {
	ev = ev.Clone()
	s.Lists[ev.Name] = ev.Items
	s.Execute[ev.Name] = ev.Execute
	s.DayModes[ev.Name] = ev.DayModes
	if ev.Metadata != nil {
		s.Metadata[ev.Name] = *ev.Metadata
	} else {
		delete(s.Metadata, ev.Name)
	}
}

// DeleteEvent removes an event from all four maps.
func (s *State) DeleteEvent(name string) bool {
	if !s.HasEvent(name) {
		return false
	}
	delete(s.Lists, name)
	delete(s.Metadata, name)
	delete(s.Execute, name)
	delete(s.DayModes, name)
	return true
}

// RenameEvent moves an event to a new name in all four maps.
func (s *State) RenameEvent(oldName, newName string) error {
	ev, ok := s.Event(oldName)
	if !ok {
		return fmt.Errorf("rename %q: %w", oldName, ErrEventNotFound)
	}
	if oldName == newName {
		return nil
	}
	if s.HasEvent(newName) {
		return fmt.Errorf("rename %q to %q: %w", oldName, newName, ErrEventExists)
	}
	s.DeleteEvent(oldName)
	ev.Name = newName
	s.PutEvent(ev)
	return nil
}
