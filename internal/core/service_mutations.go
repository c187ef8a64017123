package core

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ImportReport summarises a finished import.
type ImportReport struct {
	Event   string `json:"event"`
	Created bool   `json:"created"`
	Added   int    `json:"added"`
	Skipped int    `json:"skipped"`
	Layout  bool   `json:"layout"`
}

// Import parses src and adds its rows to the named event, creating the event
// if needed. Only a new event imported from an exported CSV is laid out by
// its manifest; everything else is appended as candidates.
func (s *Service) Import(ctx context.Context, name string, src ImportSource) (report ImportReport, err error) {
	ctx, span := s.tracer.Start(ctx, "core.import",
		trace.WithAttributes(attribute.String("event.name", name)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	name, err = ValidateEventName(name)
	if err != nil {
		return ImportReport{}, err
	}

	var (
		res  ImportResult
		opts BulkAddOptions
	)
	switch src := src.(type) {
	case SpreadsheetSource:
		sheet := strings.TrimSpace(src.Sheet)
		if sheet == "" {
			sheet = s.defaultSheet
		}
		text, err := s.fetch(ctx, src.URL, sheet)
		if err != nil {
			return ImportReport{}, err
		}
		res = ParseImportCSV(text)
		opts = BulkAddOptions{SpreadsheetURL: strings.TrimSpace(src.URL), SheetName: sheet}
	case CSVFileSource:
		if src.Data == nil {
			return ImportReport{}, fmt.Errorf("import %q: %w", name, ErrNoFile)
		}
		text, err := ReadCSV(src.Data, s.maxCSVBytes)
		if err != nil {
			return ImportReport{}, fmt.Errorf("import %q: %w", name, err)
		}
		if strings.TrimSpace(text) == "" {
			return ImportReport{}, fmt.Errorf("import %q: %w", name, ErrEmptyFile)
		}
		res = ParseImportCSV(text)
		opts = BulkAddOptions{Manifest: res.Manifest}
		if res.SpreadsheetURL != "" {
			opts.SpreadsheetURL = res.SpreadsheetURL
			opts.SheetName = s.defaultSheet
		}
	case ManualPasteSource:
		res, err = ParseManual(src.Columns)
		if err != nil {
			return ImportReport{}, err
		}
	default:
		return ImportReport{}, NewValidationError("source", fmt.Sprintf("%T", src), "unsupported import source")
	}

	if len(res.Rows) == 0 {
		return ImportReport{}, NewValidationError("circles", "", "no valid rows to import")
	}

	created, layout, err := s.bulkAdd(ctx, name, res.Rows, opts)
	if err != nil {
		return ImportReport{}, err
	}

	report = ImportReport{
		Event:   name,
		Created: created,
		Added:   len(res.Rows),
		Skipped: res.Skipped,
		Layout:  layout,
	}
	span.SetAttributes(
		attribute.Int("import.added", report.Added),
		attribute.Int("import.skipped", report.Skipped),
		attribute.Bool("import.created", report.Created),
	)
	s.logger(ctx).Info("import completed",
		"event", name,
		"created", created,
		"added", report.Added,
		"skipped", report.Skipped,
		"layout", layout,
	)
	return report, nil
}

// BulkAdd adds already parsed rows to an event, creating it if needed.
func (s *Service) BulkAdd(ctx context.Context, name string, rows []RawRow, opts BulkAddOptions) (Event, error) {
	name, err := ValidateEventName(name)
	if err != nil {
		return Event{}, err
	}
	if _, _, err := s.bulkAdd(ctx, name, rows, opts); err != nil {
		return Event{}, err
	}
	return s.GetEvent(name)
}

func (s *Service) bulkAdd(ctx context.Context, name string, rows []RawRow, opts BulkAddOptions) (created, layout bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *Event
	if ev, ok := s.state.Event(name); ok {
		existing = &ev
	}
	next, err := BulkAdd(existing, name, rows, opts, s.newID, s.clock.Now())
	if err != nil {
		return false, false, err
	}
	s.state.PutEvent(next)
	_ = s.persistLocked(ctx)
	return existing == nil, existing == nil && len(opts.Manifest) > 0, nil
}

// RenameEvent moves an event, with its metadata, Execute lists and day
// modes, to a new name. Any pending sync for the old name is discarded.
func (s *Service) RenameEvent(ctx context.Context, oldName, newName string) error {
	newName, err := ValidateEventName(newName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.RenameEvent(oldName, newName); err != nil {
		return err
	}
	delete(s.pending, oldName)
	_ = s.persistLocked(ctx)
	s.logger(ctx).Info("event renamed", "from", oldName, "to", newName)
	return nil
}

// DeleteEvent removes an event from every state map.
func (s *Service) DeleteEvent(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.DeleteEvent(name) {
		return fmt.Errorf("delete %q: %w", name, ErrEventNotFound)
	}
	delete(s.pending, name)
	_ = s.persistLocked(ctx)
	s.logger(ctx).Info("event deleted", "event", name)
	return nil
}

// AddItem appends a manually entered item.
func (s *Service) AddItem(ctx context.Context, name string, row RawRow) (ShoppingItem, error) {
	var added ShoppingItem
	_, err := s.updateEvent(ctx, name, func(ev Event) (Event, error) {
		next, item, err := AddItem(ev, row, s.newID)
		added = item
		return next, err
	})
	return added, err
}

// UpdateItem replaces the editable fields of an item.
func (s *Service) UpdateItem(ctx context.Context, name, id string, row RawRow) (ShoppingItem, error) {
	var updated ShoppingItem
	_, err := s.updateEvent(ctx, name, func(ev Event) (Event, error) {
		next, item, err := UpdateItem(ev, id, row)
		updated = item
		return next, err
	})
	return updated, err
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, name, id string) error {
	_, err := s.updateEvent(ctx, name, func(ev Event) (Event, error) {
		return DeleteItem(ev, id)
	})
	return err
}

// SetPurchaseStatus records the purchase outcome of one item.
func (s *Service) SetPurchaseStatus(ctx context.Context, name, id string, status PurchaseStatus) error {
	_, err := s.updateEvent(ctx, name, func(ev Event) (Event, error) {
		return SetPurchaseStatus(ev, id, status)
	})
	return err
}

// MoveRequest describes a drag within one column.
type MoveRequest struct {
	Selection []string `json:"selection"`
	DragID    string   `json:"dragId"`
	HoverID   string   `json:"hoverId"`
	Column    Column   `json:"column"`
}

// Move reorders one column of a day. In execute mode only the Execute
// column is shown, so every move targets it.
func (s *Service) Move(ctx context.Context, name, date string, req MoveRequest) (DayView, error) {
	sel := NewSelection(req.Selection...)
	ev, err := s.updateEvent(ctx, name, func(ev Event) (Event, error) {
		if err := requireDate(ev, date); err != nil {
			return Event{}, err
		}
		column := req.Column
		if ev.Mode(date) == ModeExecute {
			column = ColumnExecute
		}
		return ev.WithBoard(Move(ev.Board(date), sel, req.DragID, req.HoverID, column)), nil
	})
	if err != nil {
		return DayView{}, err
	}
	return BuildDayView(ev, date, nil, nil), nil
}

// MoveToExecute appends items to the day's Execute list.
func (s *Service) MoveToExecute(ctx context.Context, name, date string, ids []string) (DayView, error) {
	return s.updateDay(ctx, name, date, func(b DayBoard) DayBoard {
		return MoveToExecute(b, ids)
	})
}

// RemoveFromExecute returns items to the day's Candidate column.
func (s *Service) RemoveFromExecute(ctx context.Context, name, date string, ids []string) (DayView, error) {
	return s.updateDay(ctx, name, date, func(b DayBoard) DayBoard {
		return RemoveFromExecute(b, ids)
	})
}

// BlockSort sorts a column of a day by block.
func (s *Service) BlockSort(ctx context.Context, name, date string, column Column, dir Direction) (DayView, error) {
	return s.updateDay(ctx, name, date, func(b DayBoard) DayBoard {
		return BlockSort(b, column, dir)
	})
}

// NumberSort sorts a column of a day by number, optionally only within the
// listed blocks.
func (s *Service) NumberSort(ctx context.Context, name, date string, column Column, dir Direction, blockFilter []string) (DayView, error) {
	return s.updateDay(ctx, name, date, func(b DayBoard) DayBoard {
		return NumberSort(b, column, dir, blockFilter)
	})
}

// BulkSort sorts the selected items of one column by number.
func (s *Service) BulkSort(ctx context.Context, name, date string, ids []string, dir Direction) (DayView, error) {
	sel := NewSelection(ids...)
	return s.updateDay(ctx, name, date, func(b DayBoard) DayBoard {
		return BulkSort(b, sel, dir)
	})
}

// ToggleMode flips a day between edit and execute mode.
func (s *Service) ToggleMode(ctx context.Context, name, date string) (ViewMode, error) {
	ev, err := s.updateEvent(ctx, name, func(ev Event) (Event, error) {
		if err := requireDate(ev, date); err != nil {
			return Event{}, err
		}
		ev.DayModes = ToggleMode(ev.DayModes, date)
		return ev, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Mode(date), nil
}
