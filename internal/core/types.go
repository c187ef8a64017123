package core

import (
	"maps"
	"slices"
)

// PurchaseStatus is the purchase outcome recorded for one item.
type PurchaseStatus string

const (
	StatusNone      PurchaseStatus = "None"
	StatusPurchased PurchaseStatus = "Purchased"
	StatusSoldOut   PurchaseStatus = "SoldOut"
	StatusAbsent    PurchaseStatus = "Absent"
	StatusPostpone  PurchaseStatus = "Postpone"
	StatusLate      PurchaseStatus = "Late"
)

// PurchaseStatuses lists every status in display order.
var PurchaseStatuses = []PurchaseStatus{
	StatusNone,
	StatusPurchased,
	StatusSoldOut,
	StatusAbsent,
	StatusPostpone,
	StatusLate,
}

var statusLabels = map[PurchaseStatus]string{
	StatusNone:      "未購入",
	StatusPurchased: "購入済",
	StatusSoldOut:   "売切",
	StatusAbsent:    "欠席",
	StatusPostpone:  "後回し",
	StatusLate:      "遅参",
}

// Valid reports whether s is one of the known statuses.
func (s PurchaseStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the Japanese display label used in exports.
func (s PurchaseStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return statusLabels[StatusNone]
}

// ParseStatus accepts either a status code ("Purchased") or its display
// label ("購入済").
func ParseStatus(s string) (PurchaseStatus, bool) {
	if st := PurchaseStatus(s); st.Valid() {
		return st, true
	}
	for st, label := range statusLabels {
		if label == s {
			return st, true
		}
	}
	return "", false
}

// ViewMode is the per-day layout mode.
type ViewMode string

const (
	ModeEdit    ViewMode = "edit"
	ModeExecute ViewMode = "execute"
)

// Column identifies one of the two per-day columns.
type Column string

const (
	ColumnExecute   Column = "execute"
	ColumnCandidate Column = "candidate"
)

// Label returns the column name written to exported CSV files.
func (c Column) Label() string {
	if c == ColumnExecute {
		return "実行列"
	}
	return "候補リスト"
}

// ParseColumn accepts "execute"/"candidate" or the exported labels.
func ParseColumn(s string) (Column, bool) {
	switch s {
	case string(ColumnExecute), "実行列":
		return ColumnExecute, true
	case string(ColumnCandidate), "候補リスト":
		return ColumnCandidate, true
	}
	return "", false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection defaults to Asc for anything other than "desc".
func ParseDirection(s string) Direction {
	if s == string(Desc) {
		return Desc
	}
	return Asc
}

// ShoppingItem is one planned purchase.
//
// Price pointees are never mutated after construction, so copies of an item
// may share the pointer.
type ShoppingItem struct {
	ID             string         `json:"id"`
	Circle         string         `json:"circle"`
	EventDate      string         `json:"eventDate"`
	Block          string         `json:"block"`
	Number         string         `json:"number"`
	Title          string         `json:"title"`
	Price          *int           `json:"price"`
	PurchaseStatus PurchaseStatus `json:"purchaseStatus"`
	Remarks        string         `json:"remarks"`
}

// Row returns the item's external-row fields.
func (it ShoppingItem) Row() RawRow {
	return RawRow{
		Circle:    it.Circle,
		EventDate: it.EventDate,
		Block:     it.Block,
		Number:    it.Number,
		Title:     it.Title,
		Price:     it.Price,
		Remarks:   it.Remarks,
	}
}

// RawRow is a parsed external row, before an id is assigned.
//
// Status is only populated when re-importing an exported file; every other
// source leaves it empty and the resulting item starts as StatusNone.
type RawRow struct {
	Circle    string         `json:"circle"`
	EventDate string         `json:"eventDate"`
	Block     string         `json:"block"`
	Number    string         `json:"number"`
	Title     string         `json:"title"`
	Price     *int           `json:"price"`
	Remarks   string         `json:"remarks"`
	Status    PurchaseStatus `json:"purchaseStatus,omitempty"`
}

// Item builds a ShoppingItem with the given id.
func (r RawRow) Item(id string) ShoppingItem {
	status := r.Status
	if !status.Valid() {
		status = StatusNone
	}
	return ShoppingItem{
		ID:             id,
		Circle:         r.Circle,
		EventDate:      r.EventDate,
		Block:          r.Block,
		Number:         r.Number,
		Title:          r.Title,
		Price:          r.Price,
		PurchaseStatus: status,
		Remarks:        r.Remarks,
	}
}

// NewItems assigns fresh ids to rows, preserving order.
func NewItems(rows []RawRow, newID func() string) []ShoppingItem {
	items := make([]ShoppingItem, len(rows))
	for i, r := range rows {
		items[i] = r.Item(newID())
	}
	return items
}

// EventMetadata records where an event was imported from.
type EventMetadata struct {
	SpreadsheetURL       string `json:"spreadsheetUrl"`
	SpreadsheetSheetName string `json:"spreadsheetSheetName"`
	LastImportDate       string `json:"lastImportDate"`
}

// Event is the full per-event view over the four state maps.
type Event struct {
	Name     string              `json:"name"`
	Items    []ShoppingItem      `json:"items"`
	Metadata *EventMetadata      `json:"metadata,omitempty"`
	Execute  map[string][]string `json:"executeModeItems"`
	DayModes map[string]ViewMode `json:"dayModes"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	out := Event{
		Name:     e.Name,
		Items:    slices.Clone(e.Items),
		Execute:  make(map[string][]string, len(e.Execute)),
		DayModes: maps.Clone(e.DayModes),
	}
	if out.Items == nil {
		out.Items = []ShoppingItem{}
	}
	if out.DayModes == nil {
		out.DayModes = map[string]ViewMode{}
	}
	for date, ids := range e.Execute {
		out.Execute[date] = slices.Clone(ids)
	}
	if e.Metadata != nil {
		md := *e.Metadata
		out.Metadata = &md
	}
	return out
}

// Mode returns the view mode for date, defaulting to edit.
func (e Event) Mode(date string) ViewMode {
	if m, ok := e.DayModes[date]; ok {
		return m
	}
	return ModeEdit
}

// Board returns the reconciler snapshot for one day.
func (e Event) Board(date string) DayBoard {
	return DayBoard{Date: date, Items: e.Items, Execute: e.Execute[date]}
}

// WithBoard writes a day snapshot back into a copy of the event.
func (e Event) WithBoard(b DayBoard) Event {
	out := e.Clone()
	out.Items = slices.Clone(b.Items)
	out.Execute[b.Date] = slices.Clone(b.Execute)
	if out.Execute[b.Date] == nil {
		out.Execute[b.Date] = []string{}
	}
	return out
}

// LayoutEntry is one row of an import manifest describing which column an
// item belongs to and where.
type LayoutEntry struct {
	ItemKey    string `json:"itemKey"`
	EventDate  string `json:"eventDate"`
	ColumnType Column `json:"columnType"`
	Order      int    `json:"order"`
}

// Selection is a set of item ids.
type Selection map[string]struct{}

// NewSelection builds a selection from ids.
func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

func equalPrice(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
