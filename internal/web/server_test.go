package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/junkai/internal/config"
	"github.com/JonMunkholm/junkai/internal/core"
)

const event = "コミケ104"

type stubFetcher struct {
	mu   sync.Mutex
	text string
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, link, sheet string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.err
}

func (f *stubFetcher) set(text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text, f.err = text, err
}

func sheetLine(circle, date, block, number, title string) string {
	cells := make([]string, 23)
	cells[12], cells[13], cells[14], cells[15], cells[16] = circle, date, block, number, title
	return strings.Join(cells, ",")
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	base := map[string]string{"STORAGE_DRIVER": "memory", "RATE_LIMIT_ENABLED": "false"}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.LoadFrom(func(k string) string { return base[k] })
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, env map[string]string) (*Server, *stubFetcher) {
	t.Helper()
	f := &stubFetcher{}
	n := 0
	svc, err := core.NewService(context.Background(), nil,
		core.WithFetcher(f),
		core.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	require.NoError(t, err)
	return NewServer(svc, testConfig(t, env)), f
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func eventPath(parts ...string) string {
	p := "/api/events/" + url.PathEscape(event)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func importManual(t *testing.T, s *Server) {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/events/import", map[string]any{
		"event":  event,
		"source": "manual",
		"columns": core.ManualColumns{
			Circles:    "Alpha\nBeta\nGamma",
			EventDates: "1日目\n1日目\n2日目",
			Blocks:     "A\nB\nC",
			Numbers:    "01\n02\n03",
			Prices:     "500\n\n300",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestImportAndList(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]core.EventSummary](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, event, events[0].Name)
	assert.Equal(t, 3, events[0].ItemCount)
	assert.Equal(t, []string{"1日目", "2日目"}, events[0].Dates)

	rec = do(t, s, http.MethodGet, eventPath(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestImportTSVAppends(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodPost, "/api/events/import", map[string]any{
		"event":  event,
		"source": "manual",
		"tsv":    "Delta\t1日目\tD\t04",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[core.ImportReport](t, rec)
	assert.False(t, report.Created)
	assert.Equal(t, 1, report.Added)
}

func TestImportMultipartCSV(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("event", event))
	fw, err := mw.CreateFormFile("file", "list.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\ufeffサークル名,参加日,ブロック,ナンバー,タイトル\nAlpha,1日目,A,01,Book\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/events/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	report := decode[core.ImportReport](t, rec)
	assert.Equal(t, 1, report.Added)
}

func TestImportBadSource(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/events/import", map[string]any{"event": event, "source": "fax"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.NotEmpty(t, body.Code)
}

func TestEventNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, eventPath("days", "1日目"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "EVT001", body.Code)
}

func TestDayOperations(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodPost, eventPath("days", "1日目", "execute", "add"), map[string]any{"ids": []string{"id-2"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[core.DayView](t, rec)
	require.Len(t, view.Execute, 1)
	assert.Equal(t, "Beta", view.Execute[0].Circle)
	require.Len(t, view.Candidates, 1)
	assert.Equal(t, "Alpha", view.Candidates[0].Circle)

	rec = do(t, s, http.MethodPost, eventPath("days", "1日目", "mode", "toggle"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "execute", decode[map[string]string](t, rec)["mode"])

	rec = do(t, s, http.MethodPost, eventPath("days", "1日目", "execute", "remove"), map[string]any{"ids": []string{"id-2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[core.DayView](t, rec)
	assert.Empty(t, view.Execute)
	assert.Len(t, view.Candidates, 2)

	rec = do(t, s, http.MethodPost, eventPath("days", "1日目", "sort", "block"), map[string]any{"column": "candidate", "dir": "desc"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[core.DayView](t, rec)
	require.Len(t, view.Candidates, 2)
	assert.Equal(t, "B", view.Candidates[0].Block)

	rec = do(t, s, http.MethodGet, eventPath("days", "1日目")+"?blocks=A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[core.DayView](t, rec)
	require.Len(t, view.Candidates, 1)
	assert.Equal(t, "A", view.Candidates[0].Block)
}

func TestDayOperationsUnknownDate(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodPost, eventPath("days", "9日目", "mode", "toggle"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL007", decode[ErrorResponse](t, rec).Code)
}

func TestEventNamesArePathDecodedOnce(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
	}{
		{"100%41", "/api/events/" + url.PathEscape("100%41")},
		{"夏 冬%20", "/api/events/" + url.PathEscape("夏 冬%20")},
		{"ABC", "/api/events/%41BC"},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodPost, "/api/events/import", map[string]any{
			"event":   tt.name,
			"source":  "manual",
			"columns": core.ManualColumns{Circles: "A", EventDates: "1日目", Blocks: "A", Numbers: "01"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = do(t, s, http.MethodGet, tt.path, nil)
		require.Equal(t, http.StatusOK, rec.Code, "path %s: %s", tt.path, rec.Body.String())
		body := decode[struct {
			Event core.Event `json:"event"`
		}](t, rec)
		assert.Equal(t, tt.name, body.Event.Name)
	}
}

func TestMoveRejectsUnknownColumn(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodPost, eventPath("days", "1日目", "move"), map[string]any{
		"selection": []string{"id-1"}, "dragId": "id-1", "hoverId": "id-2", "column": "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL004", decode[ErrorResponse](t, rec).Code)
}

func TestItemEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodPost, eventPath("items"), core.RawRow{Circle: "Delta", EventDate: "1日目", Title: "New"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[core.ShoppingItem](t, rec)
	assert.Equal(t, "Delta", item.Circle)

	rec = do(t, s, http.MethodPost, eventPath("items", item.ID, "status"), map[string]string{"status": "購入済"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Purchased", decode[map[string]string](t, rec)["status"])

	rec = do(t, s, http.MethodPost, eventPath("items", item.ID, "status"), map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, eventPath("items", item.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, eventPath("items", item.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummary(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodGet, eventPath("summary"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[core.Summary](t, rec)
	assert.Equal(t, 3, sum.TotalItems)
	assert.Equal(t, 800, sum.RemainingCost)
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodGet, eventPath("export"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "UTF-8''")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, rec.Body.String(), "Alpha")
}

func TestRenameAndDelete(t *testing.T) {
	s, _ := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodPost, eventPath("rename"), map[string]string{"newName": "  C105 "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "C105", decode[map[string]string](t, rec)["to"])

	rec = do(t, s, http.MethodGet, eventPath(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/events/C105", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSyncFlow(t *testing.T) {
	s, f := newTestServer(t, nil)
	importManual(t, s)

	rec := do(t, s, http.MethodPost, eventPath("sync"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no spreadsheet url stored yet")
	assert.Equal(t, "SYN002", decode[ErrorResponse](t, rec).Code)

	f.set(strings.Join([]string{
		"header",
		sheetLine("Alpha", "1日目", "A", "01", "Renamed"),
		sheetLine("Epsilon", "2日目", "E", "05", "New"),
	}, "\n"), nil)

	opts := core.SyncOptions{SpreadsheetURL: "https://docs.google.com/spreadsheets/d/abc/edit"}
	rec = do(t, s, http.MethodPost, eventPath("sync"), opts)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[core.SyncPreview](t, rec)

	rec = do(t, s, http.MethodPost, eventPath("sync"), opts)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[core.SyncPreview](t, rec)
	require.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Summary.UpdateRows)
	assert.Equal(t, 1, second.Summary.AddRows)
	assert.Equal(t, 2, second.Summary.DeleteRows)

	rec = do(t, s, http.MethodGet, eventPath("sync"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second.ID, decode[core.SyncPreview](t, rec).ID)

	rec = do(t, s, http.MethodPost, eventPath("sync", first.ID, "confirm"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SYN006", decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, http.MethodPost, eventPath("sync", second.ID, "confirm"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[core.SyncResult](t, rec)
	assert.Equal(t, 1, result.Added)

	rec = do(t, s, http.MethodDelete, eventPath("sync"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncFetchFailure(t *testing.T) {
	s, f := newTestServer(t, nil)
	importManual(t, s)
	f.set("", fmt.Errorf("%w: status 404", core.ErrFetch))

	rec := do(t, s, http.MethodPost, eventPath("sync"), core.SyncOptions{
		SpreadsheetURL: "https://docs.google.com/spreadsheets/d/abc/edit",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "SYN004", decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, http.MethodGet, eventPath("sync"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "failed fetch leaves nothing pending")
}

func TestAPIKeyRequired(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"REQUIRE_API_KEY": "true", "API_KEYS": "secret"})

	rec := do(t, s, http.MethodGet, "/api/events", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health is public")
}

func TestRateLimited(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"RATE_LIMIT_ENABLED":             "true",
		"RATE_LIMIT_REQUESTS_PER_MINUTE": "1",
		"RATE_LIMIT_BURST":               "1",
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/events", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/api/events", nil).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.NewValidationError("name", "", "required"), http.StatusBadRequest},
		{fmt.Errorf("x: %w", core.ErrEventNotFound), http.StatusNotFound},
		{core.ErrEventExists, http.StatusConflict},
		{fmt.Errorf("%w: read body: %w", core.ErrFetch, core.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{core.ErrTooManyFetches, http.StatusServiceUnavailable},
		{core.ErrFetch, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
