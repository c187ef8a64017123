package core

import "slices"

// Placement is the result of laying out a freshly imported batch.
type Placement struct {
	Items   []ShoppingItem
	Execute map[string][]string
}

// PlaceLayout assigns ids to rows and arranges them according to an import
// manifest.
//
// Days are visited in EventDates order. For each day the item array gets the
// manifest's Execute entries (by Order), then its Candidate entries, then any
// same-day rows the manifest does not mention. Rows on days the manifest does
// not cover follow at the end in parse order.
//
// Manifest entries resolve against rows by FullKey and EventDate; an entry
// that matches nothing, or whose row was already placed, is ignored. Every
// row is emitted exactly once, so duplicate rows in the batch are kept.
func PlaceLayout(rows []RawRow, manifest []LayoutEntry, newID func() string) Placement {
	items := NewItems(rows, newID)

	byKey := make(map[string][]int, len(items))
	for i, it := range items {
		k := FullKey(it)
		byKey[k] = append(byKey[k], i)
	}

	type dayEntries struct {
		execute   []LayoutEntry
		candidate []LayoutEntry
	}
	days := make(map[string]*dayEntries)
	var dates []string
	for _, e := range manifest {
		d, ok := days[e.EventDate]
		if !ok {
			d = &dayEntries{}
			days[e.EventDate] = d
			dates = append(dates, e.EventDate)
		}
		switch e.ColumnType {
		case ColumnExecute:
			d.execute = append(d.execute, e)
		case ColumnCandidate:
			d.candidate = append(d.candidate, e)
		}
	}
	SortEventDates(dates)

	placed := make([]bool, len(items))
	out := make([]ShoppingItem, 0, len(items))
	execute := make(map[string][]string)

	resolve := func(e LayoutEntry) (int, bool) {
		for _, idx := range byKey[e.ItemKey] {
			if !placed[idx] && items[idx].EventDate == e.EventDate {
				return idx, true
			}
		}
		return -1, false
	}
	byOrder := func(a, b LayoutEntry) int { return a.Order - b.Order }

	for _, date := range dates {
		d := days[date]
		slices.SortStableFunc(d.execute, byOrder)
		slices.SortStableFunc(d.candidate, byOrder)

		ids := []string{}
		for _, e := range d.execute {
			if idx, ok := resolve(e); ok {
				placed[idx] = true
				out = append(out, items[idx])
				ids = append(ids, items[idx].ID)
			}
		}
		for _, e := range d.candidate {
			if idx, ok := resolve(e); ok {
				placed[idx] = true
				out = append(out, items[idx])
			}
		}
		for i, it := range items {
			if !placed[i] && it.EventDate == date {
				placed[i] = true
				out = append(out, it)
			}
		}
		execute[date] = ids
	}

	for i, it := range items {
		if !placed[i] {
			out = append(out, it)
		}
		if _, ok := execute[it.EventDate]; !ok {
			execute[it.EventDate] = []string{}
		}
	}

	return Placement{Items: out, Execute: execute}
}
