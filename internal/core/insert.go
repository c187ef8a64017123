package core

// InsertSorted returns a new slice with item placed among the items of its
// own day by (block, number).
//
// The item goes immediately before the first same-day item that sorts after
// it. If none does it goes after the last same-day item, and if the day has
// no items yet it is appended. Existing items never change relative order.
func InsertSorted(items []ShoppingItem, item ShoppingItem) []ShoppingItem {
	c := acquireComparer()
	defer c.release()
	return insertSorted(c, items, item)
}

func insertSorted(c *comparer, items []ShoppingItem, item ShoppingItem) []ShoppingItem {
	at, lastSameDay := -1, -1
	for i, it := range items {
		if it.EventDate != item.EventDate {
			continue
		}
		lastSameDay = i
		if at < 0 && c.compareBooth(it, item) > 0 {
			at = i
		}
	}
	switch {
	case at >= 0:
	case lastSameDay >= 0:
		at = lastSameDay + 1
	default:
		at = len(items)
	}

	out := make([]ShoppingItem, 0, len(items)+1)
	out = append(out, items[:at]...)
	out = append(out, item)
	return append(out, items[at:]...)
}
