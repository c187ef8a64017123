package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/junkai/internal/clock"
)

// DefaultSheetName is the sheet read when an import or sync names none.
const DefaultSheetName = "品目表"

// Persister loads and saves the whole application state.
type Persister interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
}

// Fetcher downloads one sheet of a published spreadsheet as CSV text.
type Fetcher interface {
	Fetch(ctx context.Context, spreadsheetURL, sheetName string) (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher sets the spreadsheet downloader used by imports and syncs.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithClock sets the time source for import timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator sets the item and preview id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithDefaultSheetName overrides DefaultSheetName.
func WithDefaultSheetName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultSheet = name
		}
	}
}

// DefaultFetchTimeout bounds one shared spreadsheet download.
const DefaultFetchTimeout = time.Minute

// WithFetchTimeout bounds each spreadsheet download. Non-positive values
// keep DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMaxCSVBytes bounds uploaded files.
func WithMaxCSVBytes(n int64) Option {
	return func(s *Service) { s.maxCSVBytes = n }
}

// Service owns the application state and serialises every change to it.
//
// Each mutation runs against a copy of the affected event, replaces the
// event on success and then saves the whole state. A failed save is logged
// and leaves the state dirty; the change stays in memory and is retried by
// the persist scheduler or the next mutation.
type Service struct {
	persister    Persister
	fetcher      Fetcher
	clock        clock.Clock
	newID        func() string
	defaultSheet string
	maxCSVBytes  int64
	fetchTimeout time.Duration
	tracer       trace.Tracer

	mu      sync.RWMutex
	state   *State
	dirty   bool
	pending map[string]*SyncPreview

	fetches singleflight.Group
}

// NewService loads the persisted state and returns a ready Service. A nil
// persister keeps state in memory only.
func NewService(ctx context.Context, persister Persister, opts ...Option) (*Service, error) {
	s := &Service{
		persister:    persister,
		clock:        clock.RealClock{},
		newID:        uuid.NewString,
		defaultSheet: DefaultSheetName,
		maxCSVBytes:  DefaultMaxCSVBytes,
		fetchTimeout: DefaultFetchTimeout,
		tracer:       otel.Tracer("github.com/JonMunkholm/junkai/internal/core"),
		state:        NewState(),
		pending:      make(map[string]*SyncPreview),
	}
	for _, opt := range opts {
		opt(s)
	}

	if persister != nil {
		st, err := persister.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if st != nil {
			st.Normalize()
			s.state = st
		}
	}

	slog.Info("state loaded", "events", len(s.state.Lists))
	return s, nil
}

// logger returns the default logger enriched with request details from ctx.
func (s *Service) logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if info, ok := RequestInfoFromContext(ctx); ok {
		l = l.With(info.logAttrs()...)
	}
	return l
}

// persistLocked saves the state. The caller must hold s.mu.
func (s *Service) persistLocked(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(context.WithoutCancel(ctx), s.state); err != nil {
		s.dirty = true
		s.logger(ctx).Error("persist state failed", "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.dirty = false
	return nil
}

// Flush saves the state if an earlier save failed.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.persistLocked(ctx)
}

// Dirty reports whether the in-memory state has unsaved changes.
func (s *Service) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// updateEvent applies fn to a copy of the named event and stores the result.
// Persistence failures do not fail the update.
func (s *Service) updateEvent(ctx context.Context, name string, fn func(Event) (Event, error)) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.state.Event(name)
	if !ok {
		return Event{}, fmt.Errorf("event %q: %w", name, ErrEventNotFound)
	}
	next, err := fn(ev)
	if err != nil {
		return Event{}, err
	}
	next.Name = name
	s.state.PutEvent(next)
	_ = s.persistLocked(ctx)
	return next, nil
}

// requireDate rejects days on which ev has no items, so day state is only
// stored for real days.
func requireDate(ev Event, date string) error {
	if slices.Contains(EventDates(ev.Items), date) {
		return nil
	}
	return NewValidationError("date", date, "event has no items on this date")
}

// updateDay applies a column operation to one day of an event.
func (s *Service) updateDay(ctx context.Context, name, date string, fn func(DayBoard) DayBoard) (DayView, error) {
	ev, err := s.updateEvent(ctx, name, func(ev Event) (Event, error) {
		if err := requireDate(ev, date); err != nil {
			return Event{}, err
		}
		return ev.WithBoard(fn(ev.Board(date))), nil
	})
	if err != nil {
		return DayView{}, err
	}
	return BuildDayView(ev, date, nil, nil), nil
}
