package core

import (
	"fmt"
	"slices"
	"time"
)

// BulkAddOptions carries the optional parts of a bulk import.
type BulkAddOptions struct {
	SpreadsheetURL string
	SheetName      string
	Manifest       []LayoutEntry
}

// BulkAdd adds rows to an event, creating it when existing is nil.
//
// A new event imported with a manifest is laid out by PlaceLayout, which
// also seeds its Execute lists. Otherwise rows are appended as candidates.
// Days seen for the first time start in edit mode. When a spreadsheet URL is
// given the event metadata is replaced and stamped with now.
func BulkAdd(existing *Event, name string, rows []RawRow, opts BulkAddOptions, newID func() string, now time.Time) (Event, error) {
	if len(rows) == 0 {
		return Event{}, NewValidationError("circles", "", "no rows to import")
	}

	var ev Event
	if existing == nil {
		ev = Event{Name: name}.Clone()
	} else {
		ev = existing.Clone()
	}

	if existing == nil && len(opts.Manifest) > 0 {
		placed := PlaceLayout(rows, opts.Manifest, newID)
		ev.Items = placed.Items
		ev.Execute = placed.Execute
	} else {
		ev.Items = append(ev.Items, NewItems(rows, newID)...)
	}

	for _, date := range EventDates(ev.Items) {
		if _, ok := ev.DayModes[date]; !ok {
			ev.DayModes[date] = ModeEdit
		}
		if _, ok := ev.Execute[date]; !ok {
			ev.Execute[date] = []string{}
		}
	}

	if opts.SpreadsheetURL != "" {
		ev.Metadata = &EventMetadata{
			SpreadsheetURL:       opts.SpreadsheetURL,
			SpreadsheetSheetName: opts.SheetName,
			LastImportDate:       now.UTC().Format(time.RFC3339),
		}
	}
	return ev, nil
}

// EventDates returns the distinct dates of items in display order.
func EventDates(items []ShoppingItem) []string {
	seen := make(map[string]struct{})
	var dates []string
	for _, it := range items {
		if _, ok := seen[it.EventDate]; ok || it.EventDate == "" {
			continue
		}
		seen[it.EventDate] = struct{}{}
		dates = append(dates, it.EventDate)
	}
	SortEventDates(dates)
	return dates
}

// AddItem appends a manually entered item as a candidate of its day.
func AddItem(ev Event, row RawRow, newID func() string) (Event, ShoppingItem, error) {
	row = trimRow(row)
	row.Status = ""
	if err := ValidateRow(row); err != nil {
		return ev, ShoppingItem{}, err
	}
	out := ev.Clone()
	item := row.Item(newID())
	out.Items = append(out.Items, item)
	if _, ok := out.DayModes[item.EventDate]; !ok {
		out.DayModes[item.EventDate] = ModeEdit
	}
	if _, ok := out.Execute[item.EventDate]; !ok {
		out.Execute[item.EventDate] = []string{}
	}
	return out, item, nil
}

// UpdateItem replaces the editable fields of an item, keeping its id and
// position. An item moved to another day leaves its old Execute list.
func UpdateItem(ev Event, id string, row RawRow) (Event, ShoppingItem, error) {
	row = trimRow(row)
	if err := ValidateRow(row); err != nil {
		return ev, ShoppingItem{}, err
	}
	idx := slices.IndexFunc(ev.Items, func(it ShoppingItem) bool { return it.ID == id })
	if idx < 0 {
		return ev, ShoppingItem{}, fmt.Errorf("update item %q: %w", id, ErrItemNotFound)
	}

	out := ev.Clone()
	prev := out.Items[idx]
	status := prev.PurchaseStatus
	if row.Status.Valid() {
		status = row.Status
	}
	updated := row.Item(id)
	updated.PurchaseStatus = status
	out.Items[idx] = updated

	if prev.EventDate != updated.EventDate {
		out.Execute[prev.EventDate] = slices.DeleteFunc(out.Execute[prev.EventDate], func(x string) bool { return x == id })
		if _, ok := out.DayModes[updated.EventDate]; !ok {
			out.DayModes[updated.EventDate] = ModeEdit
		}
		if _, ok := out.Execute[updated.EventDate]; !ok {
			out.Execute[updated.EventDate] = []string{}
		}
	}
	return out, updated, nil
}

// DeleteItem removes an item and purges it from every Execute list.
func DeleteItem(ev Event, id string) (Event, error) {
	if !slices.ContainsFunc(ev.Items, func(it ShoppingItem) bool { return it.ID == id }) {
		return ev, fmt.Errorf("delete item %q: %w", id, ErrItemNotFound)
	}
	out := ev.Clone()
	out.Items = slices.DeleteFunc(out.Items, func(it ShoppingItem) bool { return it.ID == id })
	for date, ids := range out.Execute {
		out.Execute[date] = slices.DeleteFunc(ids, func(x string) bool { return x == id })
	}
	return out, nil
}

// SetPurchaseStatus records the purchase outcome of one item.
func SetPurchaseStatus(ev Event, id string, status PurchaseStatus) (Event, error) {
	if !status.Valid() {
		return ev, NewValidationError("purchaseStatus", string(status), "unknown purchase status")
	}
	idx := slices.IndexFunc(ev.Items, func(it ShoppingItem) bool { return it.ID == id })
	if idx < 0 {
		return ev, fmt.Errorf("set status of %q: %w", id, ErrItemNotFound)
	}
	out := ev.Clone()
	out.Items[idx].PurchaseStatus = status
	return out, nil
}
