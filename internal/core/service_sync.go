package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// fetch downloads one sheet. Concurrent requests for the same sheet share a
// single download. The download is detached from the first caller's
// cancellation and bounded by the fetch timeout instead; a cancelled caller
// stops waiting without failing the others.
func (s *Service) fetch(ctx context.Context, url, sheet string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", ErrNoSpreadsheetURL
	}
	if s.fetcher == nil {
		return "", fmt.Errorf("%w: no spreadsheet fetcher configured", ErrFetch)
	}

	ch := s.fetches.DoChan(url+"|"+sheet, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetcher.Fetch(fctx, url, sheet)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		if isKnownFetchError(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if shared {
		s.logger(ctx).Debug("spreadsheet fetch shared", "sheet", sheet)
	}
	return v.(string), nil
}

func isKnownFetchError(err error) bool {
	for _, target := range []error{ErrFetch, ErrInvalidSpreadsheetURL, ErrTooManyFetches, ErrFileTooLarge} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// SyncOptions overrides the spreadsheet a sync reads. Empty fields fall back
// to the event's stored metadata.
type SyncOptions struct {
	SpreadsheetURL string `json:"spreadsheetUrl"`
	SheetName      string `json:"sheetName"`
}

// PrepareSync fetches the event's spreadsheet and computes the diff against
// the current items without changing them. The preview replaces any earlier
// pending preview for the event. A failed fetch leaves state untouched.
func (s *Service) PrepareSync(ctx context.Context, name string, opts SyncOptions) (preview *SyncPreview, err error) {
	ctx, span := s.tracer.Start(ctx, "core.prepare_sync",
		trace.WithAttributes(attribute.String("event.name", name)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.mu.RLock()
	ev, ok := s.state.Event(name)
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sync %q: %w", name, ErrEventNotFound)
	}

	url := strings.TrimSpace(opts.SpreadsheetURL)
	sheet := strings.TrimSpace(opts.SheetName)
	if ev.Metadata != nil {
		if url == "" {
			url = ev.Metadata.SpreadsheetURL
		}
		if sheet == "" {
			sheet = ev.Metadata.SpreadsheetSheetName
		}
	}
	if url == "" {
		return nil, fmt.Errorf("sync %q: %w", name, ErrNoSpreadsheetURL)
	}
	if sheet == "" {
		sheet = s.defaultSheet
	}

	text, err := s.fetch(ctx, url, sheet)
	if err != nil {
		return nil, err
	}
	fresh := ParseSheetRows(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Items may have changed while the fetch was in flight.
	ev, ok = s.state.Event(name)
	if !ok {
		return nil, fmt.Errorf("sync %q: %w", name, ErrEventNotFound)
	}
	diff := DiffSheet(ev.Items, fresh)
	preview = newSyncPreview(s.newID(), name, url, sheet, s.clock.Now(), ev.Items, len(fresh), diff)
	if old, ok := s.pending[name]; ok {
		s.logger(ctx).Info("sync preview replaced", "event", name, "previous", old.ID)
	}
	s.pending[name] = preview

	span.SetAttributes(
		attribute.Int("sync.fetched", len(fresh)),
		attribute.Int("sync.delete", len(diff.ToDelete)),
		attribute.Int("sync.update", len(diff.ToUpdate)),
		attribute.Int("sync.add", len(diff.ToAdd)),
	)
	s.logger(ctx).Info("sync prepared",
		"event", name,
		"preview", preview.ID,
		"fetched", len(fresh),
		"delete", len(diff.ToDelete),
		"update", len(diff.ToUpdate),
		"add", len(diff.ToAdd),
	)
	return preview, nil
}

// PendingSync returns the preview waiting for confirmation, if any.
func (s *Service) PendingSync(name string) (*SyncPreview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pending[name]
	if !ok {
		return nil, fmt.Errorf("sync %q: %w", name, ErrNoPendingSync)
	}
	return p, nil
}

// CancelSync discards the pending preview.
func (s *Service) CancelSync(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[name]; !ok {
		return fmt.Errorf("sync %q: %w", name, ErrNoPendingSync)
	}
	delete(s.pending, name)
	s.logger(ctx).Info("sync cancelled", "event", name)
	return nil
}

// ConfirmSync applies the pending preview with the given id. Confirming a
// preview that has since been replaced fails with ErrStalePreview.
func (s *Service) ConfirmSync(ctx context.Context, name, previewID string) (result SyncResult, err error) {
	ctx, span := s.tracer.Start(ctx, "core.confirm_sync",
		trace.WithAttributes(
			attribute.String("event.name", name),
			attribute.String("sync.preview", previewID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[name]
	if !ok {
		return SyncResult{}, fmt.Errorf("sync %q: %w", name, ErrNoPendingSync)
	}
	if previewID != "" && p.ID != previewID {
		return SyncResult{}, fmt.Errorf("sync %q: preview %s: %w", name, previewID, ErrStalePreview)
	}
	ev, ok := s.state.Event(name)
	if !ok {
		delete(s.pending, name)
		return SyncResult{}, fmt.Errorf("sync %q: %w", name, ErrEventNotFound)
	}

	next := ApplyDiff(ev, p.Diff, s.newID)
	next.Metadata = &EventMetadata{
		SpreadsheetURL:       p.SpreadsheetURL,
		SpreadsheetSheetName: p.SheetName,
		LastImportDate:       s.clock.Now().UTC().Format(time.RFC3339),
	}
	s.state.PutEvent(next)
	delete(s.pending, name)
	_ = s.persistLocked(ctx)

	result = SyncResult{
		Event:   name,
		Deleted: len(p.Diff.ToDelete),
		Updated: len(p.Diff.ToUpdate),
		Added:   len(p.Diff.ToAdd),
	}
	s.logger(ctx).Info("sync confirmed",
		"event", name,
		"preview", p.ID,
		"deleted", result.Deleted,
		"updated", result.Updated,
		"added", result.Added,
	)
	return result, nil
}
