// Package sheets downloads published spreadsheet sheets as CSV text.
package sheets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/JonMunkholm/junkai/internal/core"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID extracts the document id from a spreadsheet link such as
// https://docs.google.com/spreadsheets/d/<id>/edit#gid=0.
func SpreadsheetID(link string) (string, error) {
	m := spreadsheetIDPattern.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidSpreadsheetURL, link)
	}
	return m[1], nil
}

// CSVExportURL returns the address that serves one sheet of a document as
// CSV. An empty sheet name selects the first sheet.
func CSVExportURL(baseURL, id, sheet string) string {
	q := url.Values{}
	q.Set("tqx", "out:csv")
	if sheet != "" {
		q.Set("sheet", sheet)
	}
	return strings.TrimRight(baseURL, "/") + "/spreadsheets/d/" + id + "/gviz/tq?" + q.Encode()
}
