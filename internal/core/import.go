package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// Column positions in the raw event spreadsheet.
const (
	sheetColCircle    = 12
	sheetColEventDate = 13
	sheetColBlock     = 14
	sheetColNumber    = 15
	sheetColTitle     = 16
	sheetColPrice     = 17
	sheetColRemarks   = 22
)

// Column positions in an exported item CSV.
const (
	exportColCircle = iota
	exportColEventDate
	exportColBlock
	exportColNumber
	exportColTitle
	exportColPrice
	exportColStatus
	exportColRemarks
	exportColColumn
	exportColOrder
)

const metadataMarker = "#METADATA"

// ImportSource is one of SpreadsheetSource, CSVFileSource or
// ManualPasteSource.
type ImportSource interface {
	importSource()
}

// SpreadsheetSource imports a published Google spreadsheet.
type SpreadsheetSource struct {
	URL   string `json:"url"`
	Sheet string `json:"sheet"`
}

// CSVFileSource imports an uploaded CSV file, either a previous export or a
// download of the raw spreadsheet.
type CSVFileSource struct {
	Name string
	Data io.Reader
}

// ManualPasteSource imports one pasted text block per column.
type ManualPasteSource struct {
	Columns ManualColumns
}

func (SpreadsheetSource) importSource() {}
func (CSVFileSource) importSource()     {}
func (ManualPasteSource) importSource() {}

// ManualColumns holds newline-separated values for each field.
type ManualColumns struct {
	Circles    string `json:"circles"`
	EventDates string `json:"eventDates"`
	Blocks     string `json:"blocks"`
	Numbers    string `json:"numbers"`
	Titles     string `json:"titles"`
	Prices     string `json:"prices"`
	Remarks    string `json:"remarks"`
}

// ImportResult is the outcome of parsing an import source.
type ImportResult struct {
	Rows           []RawRow      `json:"rows"`
	Manifest       []LayoutEntry `json:"manifest,omitempty"`
	SpreadsheetURL string        `json:"spreadsheetUrl,omitempty"`
	Skipped        int           `json:"skipped"`
}

// isHeaderLine recognises the header row of either CSV format.
func isHeaderLine(line string) bool {
	return strings.Contains(line, "サークル名") &&
		strings.Contains(line, "参加日") &&
		strings.Contains(line, "ブロック")
}

// isExportHeader recognises the header written by WriteCSV.
func isExportHeader(line string) bool {
	return strings.Contains(line, "購入状態") || strings.Contains(line, "列の種類")
}

// ParseImportCSV parses an uploaded CSV.
//
// A file headed by the export header is read entirely in the exported item
// format, where a row needs a date plus a circle or title. Without that
// header, rows whose first four cells are all present are read as the
// exported format and any other row as the raw spreadsheet format, which
// needs circle, date, block and number. Rows with the column and order cells
// also contribute a manifest entry. Header and metadata lines are skipped;
// the last metadata line supplies the spreadsheet URL. Rejected rows are
// counted in Skipped.
func ParseImportCSV(text string) ImportResult {
	var (
		res    ImportResult
		export bool
	)
	for i, line := range SplitLogicalLines(text) {
		if strings.HasPrefix(strings.TrimSpace(line), metadataMarker) {
			cells := SplitCSVLine(line)
			if len(cells) >= 3 && cell(cells, 1) == "spreadsheetUrl" {
				res.SpreadsheetURL = cell(cells, 2)
			}
			continue
		}
		if (i == 0 && strings.Contains(line, "サークル名")) || isHeaderLine(line) {
			export = export || isExportHeader(line)
			continue
		}

		cells := SplitCSVLine(line)
		row, entry, ok := parseExportRow(cells, !export)
		if !ok && !export {
			row, ok = parseSheetRow(cells)
		}
		if !ok {
			res.Skipped++
			continue
		}
		res.Rows = append(res.Rows, row)
		if entry != nil {
			res.Manifest = append(res.Manifest, *entry)
		}
	}
	return res
}

// parseExportRow reads one row of the exported format. A strict parse needs
// circle, date, block and number; otherwise a date plus circle or title.
func parseExportRow(cells []string, strict bool) (RawRow, *LayoutEntry, bool) {
	row := RawRow{
		Circle:    cell(cells, exportColCircle),
		EventDate: cell(cells, exportColEventDate),
		Block:     cell(cells, exportColBlock),
		Number:    cell(cells, exportColNumber),
		Title:     cell(cells, exportColTitle),
		Price:     ParsePrice(cell(cells, exportColPrice)),
		Remarks:   cell(cells, exportColRemarks),
	}
	if strict && !row.complete() {
		return RawRow{}, nil, false
	}
	if !strict && (row.EventDate == "" || (row.Circle == "" && row.Title == "")) {
		return RawRow{}, nil, false
	}
	if st, ok := ParseStatus(cell(cells, exportColStatus)); ok {
		row.Status = st
	}
	if len(cells) <= exportColOrder {
		return row, nil, true
	}
	column, ok := ParseColumn(cell(cells, exportColColumn))
	if !ok {
		return row, nil, true
	}
	order, err := strconv.Atoi(cell(cells, exportColOrder))
	if err != nil || order <= 0 {
		return row, nil, true
	}
	return row, &LayoutEntry{
		ItemKey:    FullKey(row),
		EventDate:  row.EventDate,
		ColumnType: column,
		Order:      order,
	}, true
}

func parseSheetRow(cells []string) (RawRow, bool) {
	row := RawRow{
		Circle:    cell(cells, sheetColCircle),
		EventDate: cell(cells, sheetColEventDate),
		Block:     cell(cells, sheetColBlock),
		Number:    cell(cells, sheetColNumber),
		Title:     cell(cells, sheetColTitle),
		Price:     ParsePrice(cell(cells, sheetColPrice)),
		Remarks:   cell(cells, sheetColRemarks),
	}
	return row, row.complete()
}

func (r RawRow) complete() bool {
	return r.Circle != "" && r.EventDate != "" && r.Block != "" && r.Number != ""
}

// ParseSheetRows parses a fetched spreadsheet in the raw format. The first
// line is always the header and incomplete rows are dropped.
func ParseSheetRows(text string) []RawRow {
	lines := SplitLogicalLines(text)
	rows := make([]RawRow, 0, len(lines))
	for i, line := range lines {
		if i == 0 {
			continue
		}
		if row, ok := parseSheetRow(SplitCSVLine(line)); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// ParseManual zips pasted columns into rows. The row count is the longest
// column; short columns read as empty. Rows missing circle, date, block or
// number are skipped.
func ParseManual(cols ManualColumns) (ImportResult, error) {
	split := func(s string) []string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return strings.Split(s, "\n")
	}
	circles := split(cols.Circles)
	dates := split(cols.EventDates)
	blocks := split(cols.Blocks)
	numbers := split(cols.Numbers)
	titles := split(cols.Titles)
	prices := split(cols.Prices)
	remarks := split(cols.Remarks)

	n := max(len(circles), len(dates), len(blocks), len(numbers), len(titles), len(prices), len(remarks))
	if n == 0 {
		return ImportResult{}, NewValidationError("circles", "", "no data to import")
	}

	var res ImportResult
	for i := range n {
		row := RawRow{
			Circle:    cell(circles, i),
			EventDate: cell(dates, i),
			Block:     cell(blocks, i),
			Number:    cell(numbers, i),
			Title:     cell(titles, i),
			Price:     ParsePrice(cell(prices, i)),
			Remarks:   cell(remarks, i),
		}
		if !row.complete() {
			res.Skipped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	if len(res.Rows) == 0 {
		return res, NewValidationError("circles", "", "no valid rows to import")
	}
	return res, nil
}

// ColumnsFromTSV splits a block copied from a spreadsheet (tab-separated, in
// circle, date, block, number, title, price, remarks order) into pasted
// columns.
func ColumnsFromTSV(text string) ManualColumns {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	cols := make([][]string, 7)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		for i := range cols {
			cols[i] = append(cols[i], cell(cells, i))
		}
	}
	join := func(i int) string { return strings.Join(cols[i], "\n") }
	return ManualColumns{
		Circles:    join(0),
		EventDates: join(1),
		Blocks:     join(2),
		Numbers:    join(3),
		Titles:     join(4),
		Prices:     join(5),
		Remarks:    join(6),
	}
}

// ReadCSV reads an uploaded file and drops a UTF-8 BOM. Input that is not
// valid UTF-8 is decoded as Shift_JIS, the encoding Excel uses for Japanese
// CSV; if that also fails the error wraps ErrInvalidEncoding.
func ReadCSV(r io.Reader, maxBytes int64) (string, error) {
	raw, err := io.ReadAll(NewSizeLimitedReader(r, maxBytes))
	if err != nil {
		return "", fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", fmt.Errorf("read csv: %w", ErrInvalidEncoding)
	}
	return string(decoded), nil
}
