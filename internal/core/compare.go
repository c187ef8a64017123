package core

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Booth codes are compared with Japanese collation and numeric digit runs
// ("A2" < "A10"). Collators are not safe for concurrent use, so each caller
// takes one from the pool for the duration of an operation.
var collatorPool = sync.Pool{
	New: func() any {
		return collate.New(language.Japanese, collate.Numeric, collate.Loose)
	},
}

type comparer struct {
	c *collate.Collator
}

func acquireComparer() *comparer {
	return &comparer{c: collatorPool.Get().(*collate.Collator)}
}

func (c *comparer) release() {
	collatorPool.Put(c.c)
	c.c = nil
}

// compare is a total order: strings the collator treats as equal fall back
// to byte order.
func (c *comparer) compare(a, b string) int {
	if r := c.c.CompareString(a, b); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// compareKey orders a and b in dir, with empty keys always last.
func (c *comparer) compareKey(a, b string, dir Direction) int {
	ae, be := strings.TrimSpace(a) == "", strings.TrimSpace(b) == ""
	switch {
	case ae && be:
		return 0
	case ae:
		return 1
	case be:
		return -1
	}
	r := c.compare(a, b)
	if dir == Desc {
		return -r
	}
	return r
}

// compareBooth orders items by block then number, ascending.
func (c *comparer) compareBooth(a, b ShoppingItem) int {
	if r := c.compareKey(a.Block, b.Block, Asc); r != 0 {
		return r
	}
	return c.compareKey(a.Number, b.Number, Asc)
}

// CompareNatural compares two booth codes the way every sort in this package
// does.
func CompareNatural(a, b string) int {
	c := acquireComparer()
	defer c.release()
	return c.compare(a, b)
}

// SortEventDates orders dates by their first integer (so "第1日" < "第2日"
// < "第10日"), falling back to collation order.
func SortEventDates(dates []string) {
	c := acquireComparer()
	defer c.release()
	slices.SortStableFunc(dates, func(a, b string) int {
		na, oka := firstInt(a)
		nb, okb := firstInt(b)
		if oka && okb && na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
		return c.compare(a, b)
	})
}

func firstInt(s string) (int, bool) {
	n, found := 0, false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			found = true
			continue
		}
		if found {
			break
		}
	}
	return n, found
}
