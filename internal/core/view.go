package core

import (
	"slices"
	"strconv"
	"strings"
)

// Remarks markers that flag a block as needing attention.
var priorityMarkers = []string{"優先", "委託無"}

// DayView is what a client needs to render one day.
type DayView struct {
	Date            string         `json:"date"`
	Mode            ViewMode       `json:"mode"`
	Execute         []ShoppingItem `json:"execute"`
	Candidates      []ShoppingItem `json:"candidates"`
	AvailableBlocks []string       `json:"availableBlocks"`
	PriorityBlocks  []string       `json:"priorityBlocks"`
}

// BuildDayView renders one day of ev. A non-empty blockFilter narrows the
// candidate list; a non-empty statusFilter narrows the Execute list.
func BuildDayView(ev Event, date string, blockFilter []string, statusFilter []PurchaseStatus) DayView {
	b := ev.Board(date)
	cands := b.Candidates()
	return DayView{
		Date:            date,
		Mode:            ev.Mode(date),
		Execute:         FilterByStatus(b.ExecuteItems(), statusFilter),
		Candidates:      FilterByBlocks(cands, blockFilter),
		AvailableBlocks: AvailableBlocks(cands),
		PriorityBlocks:  PriorityBlocks(cands),
	}
}

// FilterByBlocks keeps items whose block is listed. An empty filter keeps
// everything.
func FilterByBlocks(items []ShoppingItem, blocks []string) []ShoppingItem {
	if len(blocks) == 0 {
		return items
	}
	keep := idSet(blocks)
	out := make([]ShoppingItem, 0, len(items))
	for _, it := range items {
		if _, ok := keep[it.Block]; ok {
			out = append(out, it)
		}
	}
	return out
}

// FilterByStatus keeps items whose status is listed. An empty filter keeps
// everything.
func FilterByStatus(items []ShoppingItem, statuses []PurchaseStatus) []ShoppingItem {
	if len(statuses) == 0 {
		return items
	}
	out := make([]ShoppingItem, 0, len(items))
	for _, it := range items {
		if slices.Contains(statuses, it.PurchaseStatus) {
			out = append(out, it)
		}
	}
	return out
}

// AvailableBlocks returns the distinct non-empty blocks of items. Two
// numeric blocks compare by value, anything else by collation.
func AvailableBlocks(items []ShoppingItem) []string {
	blocks := distinctBlocks(items, func(ShoppingItem) bool { return true })
	c := acquireComparer()
	defer c.release()
	slices.SortFunc(blocks, func(a, b string) int {
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		if errA == nil && errB == nil && na != nb {
			return na - nb
		}
		return c.compare(a, b)
	})
	return blocks
}

// PriorityBlocks returns the blocks of items whose remarks carry a priority
// marker, in AvailableBlocks order.
func PriorityBlocks(items []ShoppingItem) []string {
	flagged := distinctBlocks(items, func(it ShoppingItem) bool {
		for _, m := range priorityMarkers {
			if strings.Contains(it.Remarks, m) {
				return true
			}
		}
		return false
	})
	set := idSet(flagged)
	out := []string{}
	for _, b := range AvailableBlocks(items) {
		if _, ok := set[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

func distinctBlocks(items []ShoppingItem, include func(ShoppingItem) bool) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, it := range items {
		if it.Block == "" || !include(it) {
			continue
		}
		if _, ok := seen[it.Block]; !ok {
			seen[it.Block] = struct{}{}
			out = append(out, it.Block)
		}
	}
	return out
}

// Summary totals an item list.
type Summary struct {
	TotalItems     int `json:"totalItems"`
	PurchasedItems int `json:"purchasedItems"`
	RemainingCost  int `json:"remainingCost"`
}

// Summarize counts purchased items and sums the price of every item that
// may still be bought (None, Postpone, Late). Items without a price add 0.
func Summarize(items []ShoppingItem) Summary {
	s := Summary{TotalItems: len(items)}
	for _, it := range items {
		switch it.PurchaseStatus {
		case StatusPurchased:
			s.PurchasedItems++
		case StatusNone, StatusPostpone, StatusLate:
			if it.Price != nil {
				s.RemainingCost += *it.Price
			}
		}
	}
	return s
}

// DayItems returns the items of one day in item-array order.
func DayItems(items []ShoppingItem, date string) []ShoppingItem {
	out := []ShoppingItem{}
	for _, it := range items {
		if it.EventDate == date {
			out = append(out, it)
		}
	}
	return out
}
