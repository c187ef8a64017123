package core

import (
	"maps"
	"slices"
)

// DayBoard is the snapshot every column operation works on: the event's
// whole item array plus the Execute list of one day.
//
// The Candidate column is derived, never stored: it is the day's items that
// are not in Execute, in item-array order. Reordering candidates therefore
// means rewriting the item array at the positions those items occupy.
//
// Operations return a new board and never mutate their input. When an
// operation does not apply (unknown ids, drag onto itself, an empty or mixed
// selection) the input board is returned unchanged.
type DayBoard struct {
	Date    string
	Items   []ShoppingItem
	Execute []string
}

// SelectionKind classifies which columns a selection touches.
type SelectionKind string

const (
	SelectionEmpty     SelectionKind = "none"
	SelectionExecute   SelectionKind = "execute"
	SelectionCandidate SelectionKind = "candidate"
	SelectionMixed     SelectionKind = "mixed"
)

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// candidatePositions returns the item-array indices of the day's candidates.
func (b DayBoard) candidatePositions() []int {
	exec := idSet(b.Execute)
	var pos []int
	for i, it := range b.Items {
		if it.EventDate != b.Date {
			continue
		}
		if _, ok := exec[it.ID]; !ok {
			pos = append(pos, i)
		}
	}
	return pos
}

// Candidates returns the day's Candidate column in display order.
func (b DayBoard) Candidates() []ShoppingItem {
	pos := b.candidatePositions()
	out := make([]ShoppingItem, len(pos))
	for i, p := range pos {
		out[i] = b.Items[p]
	}
	return out
}

// ExecuteItems returns the day's Execute column in display order. Ids that no
// longer resolve to an item are skipped.
func (b DayBoard) ExecuteItems() []ShoppingItem {
	byID := make(map[string]ShoppingItem, len(b.Items))
	for _, it := range b.Items {
		byID[it.ID] = it
	}
	out := make([]ShoppingItem, 0, len(b.Execute))
	for _, id := range b.Execute {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// withCandidates writes ordered back into the candidate slots.
func (b DayBoard) withCandidates(pos []int, ordered []ShoppingItem) DayBoard {
	items := slices.Clone(b.Items)
	for i, p := range pos {
		items[p] = ordered[i]
	}
	return DayBoard{Date: b.Date, Items: items, Execute: slices.Clone(b.Execute)}
}

func (b DayBoard) withExecute(ids []string) DayBoard {
	return DayBoard{Date: b.Date, Items: slices.Clone(b.Items), Execute: ids}
}

// Move drags dragID (and, if it is selected, every other selected member of
// target) so that the moved block sits immediately before hoverID. Both ids
// must belong to target.
func Move(b DayBoard, sel Selection, dragID, hoverID string, target Column) DayBoard {
	if dragID == hoverID {
		return b
	}
	switch target {
	case ColumnExecute:
		ids, ok := moveBlock(b.Execute, sel, dragID, hoverID)
		if !ok {
			return b
		}
		return b.withExecute(ids)
	case ColumnCandidate:
		pos := b.candidatePositions()
		cands := make([]string, len(pos))
		byID := make(map[string]ShoppingItem, len(pos))
		for i, p := range pos {
			cands[i] = b.Items[p].ID
			byID[cands[i]] = b.Items[p]
		}
		ids, ok := moveBlock(cands, sel, dragID, hoverID)
		if !ok {
			return b
		}
		ordered := make([]ShoppingItem, len(ids))
		for i, id := range ids {
			ordered[i] = byID[id]
		}
		return b.withCandidates(pos, ordered)
	}
	return b
}

// moveBlock lifts the dragged block out of list and reinserts it before
// hoverID. A drag of a selected id carries every selected id in list, in list
// order; otherwise the block is the dragged id alone.
func moveBlock(list []string, sel Selection, dragID, hoverID string) ([]string, bool) {
	if !slices.Contains(list, dragID) {
		return nil, false
	}
	inBlock := func(id string) bool { return id == dragID }
	if sel.Has(dragID) {
		inBlock = sel.Has
	}
	if inBlock(hoverID) {
		return nil, false
	}

	var block, rest []string
	for _, id := range list {
		if inBlock(id) {
			block = append(block, id)
		} else {
			rest = append(rest, id)
		}
	}
	at := slices.Index(rest, hoverID)
	if at < 0 {
		return nil, false
	}
	out := make([]string, 0, len(list))
	out = append(out, rest[:at]...)
	out = append(out, block...)
	return append(out, rest[at:]...), true
}

// MoveToExecute appends ids to the day's Execute list. Ids already present
// or not belonging to the day are ignored.
func MoveToExecute(b DayBoard, ids []string) DayBoard {
	day := make(map[string]struct{})
	for _, it := range b.Items {
		if it.EventDate == b.Date {
			day[it.ID] = struct{}{}
		}
	}
	exec := idSet(b.Execute)
	next := slices.Clone(b.Execute)
	if next == nil {
		next = []string{}
	}
	for _, id := range ids {
		if _, ok := day[id]; !ok {
			continue
		}
		if _, ok := exec[id]; ok {
			continue
		}
		exec[id] = struct{}{}
		next = append(next, id)
	}
	return b.withExecute(next)
}

// RemoveFromExecute drops ids from the day's Execute list. The items return
// to the Candidate column at their item-array positions.
func RemoveFromExecute(b DayBoard, ids []string) DayBoard {
	drop := idSet(ids)
	next := make([]string, 0, len(b.Execute))
	for _, id := range b.Execute {
		if _, ok := drop[id]; !ok {
			next = append(next, id)
		}
	}
	return b.withExecute(next)
}

// BlockSort stably sorts column by block.
func BlockSort(b DayBoard, column Column, dir Direction) DayBoard {
	c := acquireComparer()
	defer c.release()
	return sortColumn(b, column, nil, func(x, y ShoppingItem) int {
		return c.compareKey(x.Block, y.Block, dir)
	})
}

// NumberSort stably sorts column by number. With a non-empty blockFilter only
// the members whose block is listed are sorted, among themselves; every other
// member keeps its slot.
func NumberSort(b DayBoard, column Column, dir Direction, blockFilter []string) DayBoard {
	var include func(ShoppingItem) bool
	if len(blockFilter) > 0 {
		blocks := idSet(blockFilter)
		include = func(it ShoppingItem) bool {
			_, ok := blocks[it.Block]
			return ok
		}
	}
	c := acquireComparer()
	defer c.release()
	return sortColumn(b, column, include, func(x, y ShoppingItem) int {
		return c.compareKey(x.Number, y.Number, dir)
	})
}

// BulkSort sorts the selected items by number within the single column they
// all belong to, keeping them contiguous starting at the slot of the first
// selected member. Empty and mixed selections are no-ops.
func BulkSort(b DayBoard, sel Selection, dir Direction) DayBoard {
	var column Column
	switch ClassifySelection(b, sel) {
	case SelectionExecute:
		column = ColumnExecute
	case SelectionCandidate:
		column = ColumnCandidate
	default:
		return b
	}

	c := acquireComparer()
	defer c.release()
	return rearrangeColumn(b, column, func(members []ShoppingItem) []ShoppingItem {
		first := -1
		var picked, rest []ShoppingItem
		for _, it := range members {
			if sel.Has(it.ID) {
				if first < 0 {
					first = len(rest)
				}
				picked = append(picked, it)
			} else {
				rest = append(rest, it)
			}
		}
		slices.SortStableFunc(picked, func(x, y ShoppingItem) int {
			return c.compareKey(x.Number, y.Number, dir)
		})
		out := make([]ShoppingItem, 0, len(members))
		out = append(out, rest[:first]...)
		out = append(out, picked...)
		return append(out, rest[first:]...)
	})
}

// ClassifySelection reports which of the day's columns the selection touches.
// Ids that are not items of the day are ignored.
func ClassifySelection(b DayBoard, sel Selection) SelectionKind {
	exec := idSet(b.Execute)
	var inExec, inCand bool
	for _, it := range b.Items {
		if it.EventDate != b.Date || !sel.Has(it.ID) {
			continue
		}
		if _, ok := exec[it.ID]; ok {
			inExec = true
		} else {
			inCand = true
		}
	}
	switch {
	case inExec && inCand:
		return SelectionMixed
	case inExec:
		return SelectionExecute
	case inCand:
		return SelectionCandidate
	}
	return SelectionEmpty
}

// ToggleMode flips the day's view mode, returning a new map.
func ToggleMode(modes map[string]ViewMode, date string) map[string]ViewMode {
	next := maps.Clone(modes)
	if next == nil {
		next = make(map[string]ViewMode)
	}
	if next[date] == ModeExecute {
		next[date] = ModeEdit
	} else {
		next[date] = ModeExecute
	}
	return next
}

// sortColumn stably sorts the members of column accepted by include (all of
// them when include is nil) and writes them back into the slots they held.
func sortColumn(b DayBoard, column Column, include func(ShoppingItem) bool, cmp func(x, y ShoppingItem) int) DayBoard {
	return rearrangeColumn(b, column, func(members []ShoppingItem) []ShoppingItem {
		var slots []int
		var subset []ShoppingItem
		for i, it := range members {
			if include == nil || include(it) {
				slots = append(slots, i)
				subset = append(subset, it)
			}
		}
		slices.SortStableFunc(subset, cmp)
		out := slices.Clone(members)
		for i, s := range slots {
			out[s] = subset[i]
		}
		return out
	})
}

// rearrangeColumn hands the column's members to fn and stores the permutation
// it returns. Execute ids that no longer resolve stay at the end untouched.
func rearrangeColumn(b DayBoard, column Column, fn func([]ShoppingItem) []ShoppingItem) DayBoard {
	switch column {
	case ColumnExecute:
		members := b.ExecuteItems()
		ordered := fn(members)
		ids := make([]string, 0, len(b.Execute))
		for _, it := range ordered {
			ids = append(ids, it.ID)
		}
		known := idSet(ids)
		for _, id := range b.Execute {
			if _, ok := known[id]; !ok {
				ids = append(ids, id)
			}
		}
		return b.withExecute(ids)
	case ColumnCandidate:
		pos := b.candidatePositions()
		members := make([]ShoppingItem, len(pos))
		for i, p := range pos {
			members[i] = b.Items[p]
		}
		return b.withCandidates(pos, fn(members))
	}
	return b
}
