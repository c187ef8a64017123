package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportHeader is the header row of an exported item CSV.
var ExportHeader = []string{"サークル名", "参加日", "ブロック", "ナンバー", "タイトル", "頒布価格", "購入状態", "備考", "列の種類", "列内順番"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportRow is one item with its column placement.
type ExportRow struct {
	Item   ShoppingItem
	Column Column
	Order  int // 1-based position within the column
}

// ExportRows lists ev's items day by day: each day's Execute column in
// order, then its Candidate column in order.
func ExportRows(ev Event) []ExportRow {
	var rows []ExportRow
	for _, date := range EventDates(ev.Items) {
		b := ev.Board(date)
		for i, it := range b.ExecuteItems() {
			rows = append(rows, ExportRow{Item: it, Column: ColumnExecute, Order: i + 1})
		}
		for i, it := range b.Candidates() {
			rows = append(rows, ExportRow{Item: it, Column: ColumnCandidate, Order: i + 1})
		}
	}
	return rows
}

// WriteCSV writes ev as a UTF-8 CSV with BOM. When the event has a
// spreadsheet URL a trailing metadata line records it. The output
// round-trips through ParseImportCSV.
func WriteCSV(w io.Writer, ev Event) error {
	if len(ev.Items) == 0 {
		return NewValidationError("items", ev.Name, "no items to export")
	}
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range ExportRows(ev) {
		it := r.Item
		record := []string{
			it.Circle,
			it.EventDate,
			it.Block,
			it.Number,
			it.Title,
			FormatPrice(it.Price),
			it.PurchaseStatus.Label(),
			it.Remarks,
			r.Column.Label(),
			strconv.Itoa(r.Order),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if ev.Metadata != nil && ev.Metadata.SpreadsheetURL != "" {
		if err := cw.Write([]string{metadataMarker, "spreadsheetUrl", ev.Metadata.SpreadsheetURL}); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
