package core

import (
	"fmt"
	"io"
)

// EventSummary describes one event in a listing.
type EventSummary struct {
	Name      string         `json:"name"`
	ItemCount int            `json:"itemCount"`
	Dates     []string       `json:"dates"`
	Metadata  *EventMetadata `json:"metadata,omitempty"`
	Summary   Summary        `json:"summary"`
}

// ListEvents returns every event, sorted by name.
func (s *Service) ListEvents() []EventSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := s.state.EventNames()
	out := make([]EventSummary, 0, len(names))
	for _, name := range names {
		ev, _ := s.state.Event(name)
		out = append(out, EventSummary{
			Name:      name,
			ItemCount: len(ev.Items),
			Dates:     EventDates(ev.Items),
			Metadata:  ev.Metadata,
			Summary:   Summarize(ev.Items),
		})
	}
	return out
}

// GetEvent returns a copy of one event.
func (s *Service) GetEvent(name string) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.state.Event(name)
	if !ok {
		return Event{}, fmt.Errorf("event %q: %w", name, ErrEventNotFound)
	}
	return ev, nil
}

// DayView renders one day of an event.
func (s *Service) DayView(name, date string, blockFilter []string, statusFilter []PurchaseStatus) (DayView, error) {
	ev, err := s.GetEvent(name)
	if err != nil {
		return DayView{}, err
	}
	return BuildDayView(ev, date, blockFilter, statusFilter), nil
}

// Summary totals one day of an event, or the whole event when date is
// empty.
func (s *Service) Summary(name, date string) (Summary, error) {
	ev, err := s.GetEvent(name)
	if err != nil {
		return Summary{}, err
	}
	if date == "" {
		return Summarize(ev.Items), nil
	}
	return Summarize(DayItems(ev.Items, date)), nil
}

// Export writes an event as CSV.
func (s *Service) Export(name string, w io.Writer) error {
	ev, err := s.GetEvent(name)
	if err != nil {
		return err
	}
	return WriteCSV(w, ev)
}
