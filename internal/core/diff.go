package core

import "slices"

// SheetDiff describes how to bring an event's items in line with a fresh
// copy of its spreadsheet.
type SheetDiff struct {
	ToDelete []ShoppingItem `json:"toDelete"`
	ToUpdate []ShoppingItem `json:"toUpdate"`
	ToAdd    []RawRow       `json:"toAdd"`
}

// Empty reports whether applying the diff would change nothing.
func (d SheetDiff) Empty() bool {
	return len(d.ToDelete) == 0 && len(d.ToUpdate) == 0 && len(d.ToAdd) == 0
}

// DiffSheet compares current items with freshly parsed rows.
//
// Fresh rows are matched to items in two passes: first on FullKey, then,
// among items still unclaimed, on StableKey (a rename). Each item is claimed
// by at most one row. An exact match with a different price or remarks, and
// every rename, produces an update carrying the item's id and status; rows
// left unmatched are additions and items left unclaimed are deletions.
// Every item and every row lands in exactly one outcome. Deletions follow
// item order; updates and additions follow fresh-row order.
func DiffSheet(current []ShoppingItem, fresh []RawRow) SheetDiff {
	diff := SheetDiff{
		ToDelete: []ShoppingItem{},
		ToUpdate: []ShoppingItem{},
		ToAdd:    []RawRow{},
	}
	byFull := make(map[string][]int)
	byStable := make(map[string][]int)
	for i, it := range current {
		byFull[FullKey(it)] = append(byFull[FullKey(it)], i)
		byStable[StableKey(it)] = append(byStable[StableKey(it)], i)
	}

	claimed := make([]bool, len(current))
	match := make([]int, len(fresh))
	exact := make([]bool, len(fresh))
	claim := func(candidates []int) int {
		for _, idx := range candidates {
			if !claimed[idx] {
				claimed[idx] = true
				return idx
			}
		}
		return -1
	}
	for r, row := range fresh {
		match[r] = claim(byFull[FullKey(row)])
		exact[r] = match[r] >= 0
	}
	for r, row := range fresh {
		if match[r] < 0 {
			match[r] = claim(byStable[StableKey(row)])
		}
	}

	for i, it := range current {
		if !claimed[i] {
			diff.ToDelete = append(diff.ToDelete, it)
		}
	}
	for r, row := range fresh {
		if match[r] < 0 {
			diff.ToAdd = append(diff.ToAdd, row)
			continue
		}
		existing := current[match[r]]
		if exact[r] && equalPrice(existing.Price, row.Price) && existing.Remarks == row.Remarks {
			continue
		}
		updated := existing
		updated.Title = row.Title
		updated.Price = row.Price
		updated.Remarks = row.Remarks
		diff.ToUpdate = append(diff.ToUpdate, updated)
	}
	return diff
}

// ApplyDiff commits a diff to an event and returns the new event.
//
// Deleted items are removed from the item array and from every day's
// Execute list. Updates overwrite title, price and remarks in place. Additions become new
// candidates, each placed among its day's items by InsertSorted.
func ApplyDiff(ev Event, d SheetDiff, newID func() string) Event {
	out := ev.Clone()

	deleted := make(map[string]struct{}, len(d.ToDelete))
	for _, it := range d.ToDelete {
		deleted[it.ID] = struct{}{}
	}
	updates := make(map[string]ShoppingItem, len(d.ToUpdate))
	for _, it := range d.ToUpdate {
		updates[it.ID] = it
	}

	items := make([]ShoppingItem, 0, len(out.Items)+len(d.ToAdd))
	for _, it := range out.Items {
		if _, ok := deleted[it.ID]; ok {
			continue
		}
		if u, ok := updates[it.ID]; ok {
			it.Title, it.Price, it.Remarks = u.Title, u.Price, u.Remarks
		}
		items = append(items, it)
	}

	c := acquireComparer()
	defer c.release()
	for _, row := range d.ToAdd {
		row.Status = ""
		items = insertSorted(c, items, row.Item(newID()))
		if _, ok := out.DayModes[row.EventDate]; !ok {
			out.DayModes[row.EventDate] = ModeEdit
		}
	}
	out.Items = items

	for date, ids := range out.Execute {
		out.Execute[date] = slices.DeleteFunc(ids, func(id string) bool {
			_, ok := deleted[id]
			return ok
		})
	}
	return out
}
