package core

// convert.go turns raw CSV cells into item fields.
//
// Cells come from spreadsheets people edit by hand, so conversion is lenient:
//   - Whitespace is trimmed
//   - Excel formula prefixes (="value") are stripped
//   - Prices keep only their ASCII digits ("¥1,000" is 1000)
//   - Prices that overflow an int are dropped
//
// A price cell that is empty after trimming has no price (nil), which is
// different from a price of zero.

import (
	"strconv"
	"strings"
)

// ParsePrice converts a price cell. Empty cells yield nil; anything else
// yields the integer formed by its digits, or 0 if it has none. A digit run
// too large for an int is not a usable price and also yields nil.
func ParsePrice(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return IntPtr(0)
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return nil
	}
	return IntPtr(n)
}

// FormatPrice is the inverse of ParsePrice for export.
func FormatPrice(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}

// cell returns the cleaned cell at i, or "" when the row is too short.
func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return CleanCell(cells[i])
}
