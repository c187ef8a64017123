package core

import (
	"strconv"
	"strings"
)

// Identity is the set of fields that identify an item across imports.
type Identity struct {
	Circle    string
	EventDate string
	Block     string
	Number    string
	Title     string
}

// Keyer is implemented by anything that carries an item identity.
type Keyer interface {
	Identity() Identity
}

func (id Identity) Identity() Identity { return id }

func (it ShoppingItem) Identity() Identity {
	return Identity{Circle: it.Circle, EventDate: it.EventDate, Block: it.Block, Number: it.Number, Title: it.Title}
}

func (r RawRow) Identity() Identity {
	return Identity{Circle: r.Circle, EventDate: r.EventDate, Block: r.Block, Number: r.Number, Title: r.Title}
}

// FullKey identifies an item by circle, date, block, number and title.
//
// Each field is length-prefixed, so the encoding is injective no matter
// which characters the fields contain.
func FullKey(k Keyer) string {
	id := k.Identity()
	return encodeKey(id.Circle, id.EventDate, id.Block, id.Number, id.Title)
}

// StableKey is FullKey without the title. Two rows that differ only in title
// share a stable key, which is what lets a sync recognise a rename.
func StableKey(k Keyer) string {
	id := k.Identity()
	return encodeKey(id.Circle, id.EventDate, id.Block, id.Number)
}

func encodeKey(fields ...string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}
