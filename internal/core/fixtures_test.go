package core

import (
	"fmt"
	"slices"
)

// seqIDs returns an id generator yielding prefix-1, prefix-2, ...
func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func item(id, date, block, number string) ShoppingItem {
	return ShoppingItem{
		ID:             id,
		Circle:         "circle-" + id,
		EventDate:      date,
		Block:          block,
		Number:         number,
		PurchaseStatus: StatusNone,
	}
}

func row(circle, date, block, number, title string) RawRow {
	return RawRow{Circle: circle, EventDate: date, Block: block, Number: number, Title: title}
}

func ids(items []ShoppingItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func blocks(items []ShoppingItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Block
	}
	return out
}

func sortedCopy(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}
