package web

// handlers_common.go holds request decoding helpers shared by handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/junkai/internal/core"
)

// pathParam returns a URL parameter with percent-escapes decoded. chi
// matches on RawPath when the request has one, otherwise on the already
// decoded Path, so only the first case needs unescaping.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body: %w", core.ErrFileTooLarge)
		}
		return core.NewValidationError("body", "", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// splitList parses a comma-separated query value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseStatuses parses a comma-separated status filter.
func parseStatuses(v string) ([]core.PurchaseStatus, error) {
	var out []core.PurchaseStatus
	for _, s := range splitList(v) {
		st, err := core.ValidateStatus(s)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// parseColumn validates a column name, defaulting to the candidate column.
func parseColumn(v string) (core.Column, error) {
	if v == "" {
		return core.ColumnCandidate, nil
	}
	return core.ValidateColumn(v)
}

// attachmentName builds a Content-Disposition value that survives non-ASCII
// file names.
func attachmentName(name string) string {
	return fmt.Sprintf(`attachment; filename="export.csv"; filename*=UTF-8''%s`, url.PathEscape(name))
}
