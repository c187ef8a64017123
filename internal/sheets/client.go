package sheets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/junkai/internal/config"
	"github.com/JonMunkholm/junkai/internal/core"
)

// Client fetches sheets over HTTP. It implements core.Fetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxBytes   int64
	limiter    *Limiter
	tracer     trace.Tracer
}

var _ core.Fetcher = (*Client)(nil)

// NewClient builds a Client from cfg.
func NewClient(cfg config.SheetsConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.FetchTimeout})
}

// NewClientWithHTTP is NewClient with a caller supplied http.Client.
func NewClientWithHTTP(cfg config.SheetsConfig, hc *http.Client) *Client {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = core.DefaultMaxCSVBytes
	}
	return &Client{
		httpClient: hc,
		baseURL:    cfg.BaseURL,
		maxBytes:   maxBytes,
		limiter:    NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		tracer:     otel.Tracer("github.com/JonMunkholm/junkai/internal/sheets"),
	}
}

// Limiter exposes the download limiter.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// Fetch downloads one sheet of the spreadsheet behind link.
func (c *Client) Fetch(ctx context.Context, link, sheet string) (text string, err error) {
	ctx, span := c.tracer.Start(ctx, "sheets.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sheets.sheet", sheet)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	id, err := SpreadsheetID(link)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("sheets.id", id))

	if err := c.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	defer c.limiter.Release()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CSVExportURL(c.baseURL, id, sheet), nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", core.ErrFetch, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrFetch, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", core.ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(core.WrapForStreaming(resp.Body, c.maxBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", core.ErrFetch, err)
	}

	slog.Debug("sheet fetched",
		"id", id,
		"sheet", sheet,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return string(body), nil
}
