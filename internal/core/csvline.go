package core

import "strings"

// The splitters below are more forgiving than encoding/csv: spreadsheet
// exports contain stray quotes inside unquoted cells and ragged rows, and a
// malformed row must not abort the whole import.

// SplitCSVLine splits one logical CSV record into cells.
//
// A double quote opens quoted mode only as the first character of a cell;
// anywhere else it is a literal character. Inside quoted mode a doubled
// quote is a literal quote, a single quote closes the mode, and commas are
// literal. An unterminated quote runs to the end of the line.
func SplitCSVLine(line string) []string {
	var (
		cells     []string
		cur       strings.Builder
		inQuotes  bool
		cellStart = true
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inQuotes {
			switch {
			case r == '"' && i+1 < len(runes) && runes[i+1] == '"':
				cur.WriteRune('"')
				i++
			case r == '"':
				inQuotes = false
			default:
				cur.WriteRune(r)
			}
			continue
		}
		switch {
		case r == '"' && cellStart:
			inQuotes = true
		case r == ',':
			cells = append(cells, cur.String())
			cur.Reset()
			cellStart = true
			continue
		default:
			cur.WriteRune(r)
		}
		cellStart = false
	}
	return append(cells, cur.String())
}

// SplitLogicalLines splits text into CSV records, keeping newlines that sit
// inside quoted cells. Quoting follows SplitCSVLine. A CRLF record
// terminator becomes a plain break while CRLF inside a quoted cell is kept.
// Blank records are dropped.
//
// A quoted cell still open at the end of the text is treated as
// unterminated: its record and everything after it are split on plain
// newlines, so one bad cell cannot swallow the rest of the file.
func SplitLogicalLines(text string) []string {
	var (
		lines     []string
		start     int
		inQuotes  bool
		cellStart = true
	)
	flush := func(end int) {
		line := strings.TrimSuffix(text[start:end], "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					i++
				} else {
					inQuotes = false
				}
			}
			continue
		}
		switch c {
		case '"':
			inQuotes = cellStart
		case ',':
			cellStart = true
			continue
		case '\n':
			flush(i)
			start = i + 1
			cellStart = true
			continue
		}
		cellStart = false
	}
	if inQuotes {
		for i := start; i < len(text); i++ {
			if text[i] == '\n' {
				flush(i)
				start = i + 1
			}
		}
	}
	if start < len(text) {
		flush(len(text))
	}
	return lines
}
