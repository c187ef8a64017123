package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/junkai/internal/clock"
)

type memPersister struct {
	mu    sync.Mutex
	saved *State
	saves int
	fail  error
}

func (p *memPersister) Load(context.Context) (*State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil {
		return nil, nil
	}
	return p.saved.Clone(), nil
}

func (p *memPersister) Save(_ context.Context, st *State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.saved = st.Clone()
	p.saves++
	return nil
}

func (p *memPersister) setFail(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

type stubFetcher struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	last  [2]string
}

func (f *stubFetcher) Fetch(_ context.Context, url, sheet string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = [2]string{url, sheet}
	return f.text, f.err
}

func (f *stubFetcher) set(text string, err error) {
	f.mu.Lock()
	f.text, f.err = text, err
	f.mu.Unlock()
}

const testSheetURL = "https://docs.google.com/spreadsheets/d/abc/edit"

var serviceTime = time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

func sheetText(lines ...string) string {
	return strings.Join(append([]string{"header"}, lines...), "\n")
}

func newTestService(t *testing.T, p *memPersister, f *stubFetcher) (*Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(serviceTime)
	opts := []Option{WithClock(clk), WithIDGenerator(seqIDs("id"))}
	if f != nil {
		opts = append(opts, WithFetcher(f))
	}
	var persister Persister
	if p != nil {
		persister = p
	}
	s, err := NewService(context.Background(), persister, opts...)
	require.NoError(t, err)
	return s, clk
}

func manualSource(lines ...[4]string) ManualPasteSource {
	var c, d, b, n []string
	for _, l := range lines {
		c, d, b, n = append(c, l[0]), append(d, l[1]), append(b, l[2]), append(n, l[3])
	}
	return ManualPasteSource{Columns: ManualColumns{
		Circles:    strings.Join(c, "\n"),
		EventDates: strings.Join(d, "\n"),
		Blocks:     strings.Join(b, "\n"),
		Numbers:    strings.Join(n, "\n"),
	}}
}

func TestNewServiceLoadsAndNormalizes(t *testing.T) {
	st := NewState()
	st.PutEvent(Event{
		Name:    "夏",
		Items:   []ShoppingItem{item("1", "1日目", "A", "01")},
		Execute: map[string][]string{"1日目": {"1", "ghost"}},
	})
	p := &memPersister{saved: st}

	s, _ := newTestService(t, p, nil)

	ev, err := s.GetEvent("夏")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ev.Execute["1日目"])
}

func TestNewServiceLoadError(t *testing.T) {
	_, err := NewService(context.Background(), failingLoader{})
	assert.Error(t, err)
}

type failingLoader struct{}

func (failingLoader) Load(context.Context) (*State, error) { return nil, errors.New("disk gone") }
func (failingLoader) Save(context.Context, *State) error   { return nil }

func TestServiceImportManual(t *testing.T) {
	p := &memPersister{}
	s, _ := newTestService(t, p, nil)
	ctx := context.Background()

	report, err := s.Import(ctx, "  夏 ", manualSource(
		[4]string{"A", "1日目", "東1", "01"},
		[4]string{"B", "1日目", "", "02"},
	))

	require.NoError(t, err)
	assert.Equal(t, ImportReport{Event: "夏", Created: true, Added: 1, Skipped: 1}, report)
	assert.Equal(t, 1, p.saves)
	assert.True(t, p.saved.HasEvent("夏"))

	report, err = s.Import(ctx, "夏", manualSource([4]string{"C", "2日目", "東2", "03"}))
	require.NoError(t, err)
	assert.False(t, report.Created)

	events := s.ListEvents()
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].ItemCount)
	assert.Equal(t, []string{"1日目", "2日目"}, events[0].Dates)
}

func TestServiceImportErrors(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		ev   string
		src  ImportSource
		want error
	}{
		{"bad name", "a/b", manualSource([4]string{"A", "1", "1", "1"}), ErrValidation},
		{"empty name", " ", manualSource([4]string{"A", "1", "1", "1"}), ErrValidation},
		{"no rows", "夏", ManualPasteSource{}, ErrValidation},
		{"no fetcher", "夏", SpreadsheetSource{URL: testSheetURL}, ErrFetch},
		{"no url", "夏", SpreadsheetSource{}, ErrNoSpreadsheetURL},
		{"file too large", "夏", CSVFileSource{Data: strings.NewReader(strings.Repeat("x", 64))}, ErrFileTooLarge},
		{"no file", "夏", CSVFileSource{Name: "夏.csv"}, ErrNoFile},
		{"blank file", "夏", CSVFileSource{Data: strings.NewReader("\ufeff \n")}, ErrEmptyFile},
		{"binary file", "夏", CSVFileSource{Data: strings.NewReader("\x89PNG\xff\x80")}, ErrInvalidEncoding},
	}

	s.maxCSVBytes = 32
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Import(ctx, tt.ev, tt.src)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, s.ListEvents())
}

func TestServiceImportSpreadsheet(t *testing.T) {
	f := &stubFetcher{text: sheetText(sheetLine("A", "1日目", "東1", "01", "本", "500", ""))}
	s, _ := newTestService(t, nil, f)

	_, err := s.Import(context.Background(), "夏", SpreadsheetSource{URL: testSheetURL})
	require.NoError(t, err)

	assert.Equal(t, [2]string{testSheetURL, DefaultSheetName}, f.last)
	ev, err := s.GetEvent("夏")
	require.NoError(t, err)
	require.NotNil(t, ev.Metadata)
	assert.Equal(t, testSheetURL, ev.Metadata.SpreadsheetURL)
	assert.Equal(t, DefaultSheetName, ev.Metadata.SpreadsheetSheetName)
	assert.Equal(t, "2026-08-10T00:00:00Z", ev.Metadata.LastImportDate)
}

func TestServiceExportImportRoundTrip(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := s.BulkAdd(ctx, "夏", []RawRow{
		row("A", "1日目", "東1", "01", "x"),
		row("B", "1日目", "東2", "02", "y"),
		row("C", "1日目", "東3", "03", "z"),
	}, BulkAddOptions{})
	require.NoError(t, err)
	_, err = s.MoveToExecute(ctx, "夏", "1日目", []string{"id-3", "id-1"})
	require.NoError(t, err)
	require.NoError(t, s.SetPurchaseStatus(ctx, "夏", "id-3", StatusPurchased))

	var buf bytes.Buffer
	require.NoError(t, s.Export("夏", &buf))

	report, err := s.Import(ctx, "夏コピー", CSVFileSource{Name: "夏.csv", Data: &buf})
	require.NoError(t, err)
	assert.True(t, report.Layout)

	v, err := s.DayView("夏コピー", "1日目", nil, nil)
	require.NoError(t, err)
	require.Len(t, v.Execute, 2)
	assert.Equal(t, "C", v.Execute[0].Circle)
	assert.Equal(t, StatusPurchased, v.Execute[0].PurchaseStatus)
	assert.Equal(t, "A", v.Execute[1].Circle)
	require.Len(t, v.Candidates, 1)
	assert.Equal(t, "B", v.Candidates[0].Circle)
}

func TestServiceSync(t *testing.T) {
	f := &stubFetcher{text: sheetText(
		sheetLine("A", "1日目", "東1", "01", "X", "500", ""),
		sheetLine("B", "1日目", "東2", "02", "", "", ""),
	)}
	p := &memPersister{}
	s, clk := newTestService(t, p, f)
	ctx := context.Background()

	_, err := s.Import(ctx, "夏", SpreadsheetSource{URL: testSheetURL, Sheet: "シート1"})
	require.NoError(t, err)
	_, err = s.MoveToExecute(ctx, "夏", "1日目", []string{"id-2"})
	require.NoError(t, err)

	f.set(sheetText(
		sheetLine("A", "1日目", "東1", "01", "Y", "500", ""),
		sheetLine("C", "1日目", "東1", "00", "", "", ""),
	), nil)
	clk.Advance(time.Hour)

	first, err := s.PrepareSync(ctx, "夏", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, [2]string{testSheetURL, "シート1"}, f.last, "stored sheet name is reused")
	assert.Equal(t, PreviewSummary{FetchedRows: 2, DeleteRows: 1, UpdateRows: 1, AddRows: 1}, first.Summary)
	require.Len(t, first.UpdateDiffs, 1)
	assert.Equal(t, []string{"title"}, first.UpdateDiffs[0].Changed)

	before, _ := s.GetEvent("夏")
	assert.Len(t, before.Items, 2, "preparing does not change items")

	second, err := s.PrepareSync(ctx, "夏", SyncOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = s.ConfirmSync(ctx, "夏", first.ID)
	assert.ErrorIs(t, err, ErrStalePreview)

	pending, err := s.PendingSync("夏")
	require.NoError(t, err)
	assert.Equal(t, second.ID, pending.ID)

	result, err := s.ConfirmSync(ctx, "夏", second.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Event: "夏", Deleted: 1, Updated: 1, Added: 1}, result)

	ev, err := s.GetEvent("夏")
	require.NoError(t, err)
	require.Len(t, ev.Items, 2)
	assert.Equal(t, "C", ev.Items[0].Circle, "additions are inserted in booth order")
	assert.Equal(t, "id-1", ev.Items[1].ID)
	assert.Equal(t, "Y", ev.Items[1].Title)
	assert.Equal(t, []string{}, ev.Execute["1日目"], "deleted items leave the execute list")
	assert.Equal(t, "2026-08-10T01:00:00Z", ev.Metadata.LastImportDate)
	assert.Equal(t, "シート1", ev.Metadata.SpreadsheetSheetName)

	_, err = s.PendingSync("夏")
	assert.ErrorIs(t, err, ErrNoPendingSync)
	_, err = s.ConfirmSync(ctx, "夏", second.ID)
	assert.ErrorIs(t, err, ErrNoPendingSync)

	saved, ok := p.saved.Event("夏")
	require.True(t, ok)
	assert.Equal(t, ev, saved)
}

func TestServiceSyncFailures(t *testing.T) {
	f := &stubFetcher{text: sheetText(sheetLine("A", "1日目", "東1", "01", "X", "", ""))}
	s, _ := newTestService(t, nil, f)
	ctx := context.Background()

	_, err := s.Import(ctx, "夏", SpreadsheetSource{URL: testSheetURL})
	require.NoError(t, err)
	_, err = s.Import(ctx, "手動", manualSource([4]string{"A", "1日目", "1", "1"}))
	require.NoError(t, err)
	before, _ := s.GetEvent("夏")

	f.set("", errors.New("connection reset"))
	_, err = s.PrepareSync(ctx, "夏", SyncOptions{})
	assert.ErrorIs(t, err, ErrFetch)
	_, err = s.PendingSync("夏")
	assert.ErrorIs(t, err, ErrNoPendingSync)
	after, _ := s.GetEvent("夏")
	assert.Equal(t, before, after)

	_, err = s.PrepareSync(ctx, "手動", SyncOptions{})
	assert.ErrorIs(t, err, ErrNoSpreadsheetURL)

	_, err = s.PrepareSync(ctx, "missing", SyncOptions{})
	assert.ErrorIs(t, err, ErrEventNotFound)

	f.set(sheetText(), nil)
	_, err = s.PrepareSync(ctx, "夏", SyncOptions{})
	require.NoError(t, err)
	require.NoError(t, s.CancelSync(ctx, "夏"))
	assert.ErrorIs(t, s.CancelSync(ctx, "夏"), ErrNoPendingSync)
}

func TestServicePendingSyncClearedOnRename(t *testing.T) {
	f := &stubFetcher{text: sheetText(sheetLine("A", "1日目", "東1", "01", "X", "", ""))}
	s, _ := newTestService(t, nil, f)
	ctx := context.Background()

	_, err := s.Import(ctx, "夏", SpreadsheetSource{URL: testSheetURL})
	require.NoError(t, err)
	_, err = s.PrepareSync(ctx, "夏", SyncOptions{})
	require.NoError(t, err)

	require.NoError(t, s.RenameEvent(ctx, "夏", "秋"))
	_, err = s.PendingSync("夏")
	assert.ErrorIs(t, err, ErrNoPendingSync)
	_, err = s.PendingSync("秋")
	assert.ErrorIs(t, err, ErrNoPendingSync)

	ev, err := s.GetEvent("秋")
	require.NoError(t, err)
	assert.Equal(t, testSheetURL, ev.Metadata.SpreadsheetURL)
}

func TestServicePersistFailureKeepsChange(t *testing.T) {
	p := &memPersister{}
	s, _ := newTestService(t, p, nil)
	ctx := context.Background()

	p.setFail(errors.New("database is locked"))
	_, err := s.Import(ctx, "夏", manualSource([4]string{"A", "1日目", "1", "1"}))
	require.NoError(t, err, "a failed save does not fail the mutation")
	assert.True(t, s.Dirty())
	_, err = s.GetEvent("夏")
	require.NoError(t, err)

	err = s.Flush(ctx)
	assert.ErrorIs(t, err, ErrPersist)

	p.setFail(nil)
	require.NoError(t, s.Flush(ctx))
	assert.False(t, s.Dirty())
	assert.True(t, p.saved.HasEvent("夏"))
}

func TestServiceMoveInExecuteMode(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := s.Import(ctx, "夏", manualSource(
		[4]string{"A", "1日目", "1", "1"},
		[4]string{"B", "1日目", "1", "2"},
		[4]string{"C", "1日目", "1", "3"},
	))
	require.NoError(t, err)
	_, err = s.MoveToExecute(ctx, "夏", "1日目", []string{"id-1", "id-2"})
	require.NoError(t, err)

	mode, err := s.ToggleMode(ctx, "夏", "1日目")
	require.NoError(t, err)
	assert.Equal(t, ModeExecute, mode)

	v, err := s.Move(ctx, "夏", "1日目", MoveRequest{DragID: "id-2", HoverID: "id-1", Column: ColumnCandidate})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-2", "id-1"}, ids(v.Execute))
	assert.Equal(t, ModeExecute, v.Mode)
}

func TestServiceDayOperations(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := s.Import(ctx, "夏", manualSource(
		[4]string{"A", "1日目", "3", "1"},
		[4]string{"B", "1日目", "1", "2"},
		[4]string{"C", "1日目", "2", "3"},
	))
	require.NoError(t, err)

	v, err := s.BlockSort(ctx, "夏", "1日目", ColumnCandidate, Asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, blocks(v.Candidates))

	v, err = s.NumberSort(ctx, "夏", "1日目", ColumnCandidate, Desc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-3", "id-2", "id-1"}, ids(v.Candidates))

	v, err = s.BulkSort(ctx, "夏", "1日目", []string{"id-1", "id-3"}, Asc)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "id-3", "id-2"}, ids(v.Candidates))

	v, err = s.RemoveFromExecute(ctx, "夏", "1日目", []string{"id-1"})
	require.NoError(t, err)
	assert.Empty(t, v.Execute)

	sum, err := s.Summary("夏", "1日目")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalItems)

	_, err = s.BlockSort(ctx, "missing", "1日目", ColumnCandidate, Asc)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestServiceDayOperationsRejectUnknownDate(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := s.Import(ctx, "夏", manualSource([4]string{"A", "1日目", "1", "1"}))
	require.NoError(t, err)

	_, err = s.MoveToExecute(ctx, "夏", "3日目", []string{"id-1"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.BlockSort(ctx, "夏", "3日目", ColumnCandidate, Asc)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.Move(ctx, "夏", "3日目", MoveRequest{DragID: "id-1", HoverID: "id-1"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.ToggleMode(ctx, "夏", "3日目")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "VAL007", MapError(err).Code)

	ev, err := s.GetEvent("夏")
	require.NoError(t, err)
	assert.NotContains(t, ev.Execute, "3日目")
	assert.NotContains(t, ev.DayModes, "3日目")
}

func TestServiceItemCRUD(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "missing", RawRow{Circle: "A", EventDate: "1日目"})
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = s.Import(ctx, "夏", manualSource([4]string{"A", "1日目", "1", "1"}))
	require.NoError(t, err)

	added, err := s.AddItem(ctx, "夏", RawRow{Title: "新刊", EventDate: "2日目", Price: IntPtr(800)})
	require.NoError(t, err)
	assert.Equal(t, "id-2", added.ID)

	updated, err := s.UpdateItem(ctx, "夏", added.ID, RawRow{Title: "新刊セット", EventDate: "2日目", Price: IntPtr(1500)})
	require.NoError(t, err)
	assert.Equal(t, 1500, *updated.Price)

	require.NoError(t, s.SetPurchaseStatus(ctx, "夏", added.ID, StatusPurchased))
	sum, err := s.Summary("夏", "")
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalItems: 2, PurchasedItems: 1}, sum)

	require.NoError(t, s.DeleteItem(ctx, "夏", added.ID))
	assert.ErrorIs(t, s.DeleteItem(ctx, "夏", added.ID), ErrItemNotFound)

	require.NoError(t, s.DeleteEvent(ctx, "夏"))
	assert.ErrorIs(t, s.DeleteEvent(ctx, "夏"), ErrEventNotFound)
}

func TestServiceConcurrentMutations(t *testing.T) {
	var n atomic.Int64
	s, err := NewService(context.Background(), &memPersister{},
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", n.Add(1)) }),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Import(ctx, "夏", manualSource([4]string{"A", "1日目", "1", "1"}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddItem(ctx, "夏", RawRow{Circle: fmt.Sprintf("C%d", i), EventDate: "1日目"})
			assert.NoError(t, err)
			_, _ = s.DayView("夏", "1日目", nil, nil)
		}()
	}
	wg.Wait()

	ev, err := s.GetEvent("夏")
	require.NoError(t, err)
	assert.Len(t, ev.Items, 21)
}

func TestPersistScheduler(t *testing.T) {
	p := &memPersister{}
	s, _ := newTestService(t, p, nil)
	ctx, cancel := context.WithCancel(context.Background())

	p.setFail(errors.New("down"))
	_, err := s.Import(ctx, "夏", manualSource([4]string{"A", "1日目", "1", "1"}))
	require.NoError(t, err)
	require.True(t, s.Dirty())
	p.setFail(nil)

	done := make(chan struct{})
	go func() {
		s.StartPersistScheduler(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return !s.Dirty() }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.True(t, p.saved.HasEvent("夏"))
}

// blockingFetcher holds every download until release is closed.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int64
	results chan error
}

func (f *blockingFetcher) Fetch(ctx context.Context, url, sheet string) (string, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
	}
	select {
	case <-f.release:
		f.results <- nil
		return sheetText(sheetLine("A", "1日目", "東1", "01", "X", "", "")), nil
	case <-ctx.Done():
		f.results <- ctx.Err()
		return "", ctx.Err()
	}
}

func TestServiceSharedFetchSurvivesCancelledCaller(t *testing.T) {
	f := &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		results: make(chan error, 2),
	}
	s, err := NewService(context.Background(), nil, WithFetcher(f), WithIDGenerator(seqIDs("id")))
	require.NoError(t, err)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.fetch(first, testSheetURL, DefaultSheetName)
		firstErr <- err
	}()
	<-f.started

	secondText := make(chan string, 1)
	go func() {
		text, err := s.fetch(context.Background(), testSheetURL, DefaultSheetName)
		assert.NoError(t, err)
		secondText <- text
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(f.release)

	assert.Contains(t, <-secondText, "東1")
	assert.NoError(t, <-f.results, "download was cancelled with its first caller")
}

func TestServiceFetchTimeout(t *testing.T) {
	f := &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		results: make(chan error, 1),
	}
	s, err := NewService(context.Background(), nil, WithFetcher(f), WithFetchTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = s.fetch(context.Background(), testSheetURL, DefaultSheetName)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
