package siteinfo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/fetcher"
	"github.com/JakeFAU/contentplan/internal/metrics"
)

const defaultFetchTimeout = 20 * time.Second

// Limiter spaces out requests to the same host.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config tunes the Extractor.
type Config struct {
	Timeout time.Duration
	// Limiter is optional.
	Limiter Limiter
}

// Extractor fetches a landing page and turns it into Signals. Pages that look
// like JavaScript shells are re-fetched through the renderer when one is
// configured.
type Extractor struct {
	http     fetcher.Fetcher
	renderer fetcher.Fetcher
	detector fetcher.Detector
	cfg      Config
	logger   *zap.Logger
}

// NewExtractor builds an Extractor. renderer and detector may be nil.
func NewExtractor(
	httpFetcher fetcher.Fetcher,
	renderer fetcher.Fetcher,
	detector fetcher.Detector,
	cfg Config,
	logger *zap.Logger,
) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		http:     httpFetcher,
		renderer: renderer,
		detector: detector,
		cfg:      cfg,
		logger:   logger.Named("siteinfo"),
	}
}

// FetchSignals retrieves rawURL and extracts its signals. language picks the
// stop-word list.
func (e *Extractor) FetchSignals(ctx context.Context, rawURL, language string) (Signals, error) {
	page, err := e.fetch(ctx, rawURL)
	if err != nil {
		return Signals{URL: rawURL}, err
	}
	sig, err := Parse(page.Body, language)
	if err != nil {
		return Signals{URL: rawURL}, err
	}
	sig.URL = page.URL
	sig.Rendered = page.Rendered
	return sig, nil
}

// HTMLLang returns the normalized lang attribute of the page. The plain HTTP
// fetch is enough here; the attribute is server-rendered.
func (e *Extractor) HTMLLang(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	if err := e.wait(ctx, rawURL); err != nil {
		return "", err
	}
	page, err := e.http.Fetch(ctx, fetcher.Request{URL: rawURL})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	sig, err := Parse(page.Body, "")
	if err != nil {
		return "", err
	}
	return sig.HTMLLang, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (fetcher.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	if err := e.wait(ctx, rawURL); err != nil {
		return fetcher.Page{}, err
	}

	page, err := e.http.Fetch(ctx, fetcher.Request{URL: rawURL})
	if err != nil {
		metrics.ObserveSiteFetch(rawURL, "http", "error")
		return fetcher.Page{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if page.StatusCode != http.StatusOK {
		metrics.ObserveSiteFetch(rawURL, "http", "bad_status")
		return fetcher.Page{}, fmt.Errorf("fetch %s: unexpected status %d", rawURL, page.StatusCode)
	}
	metrics.ObserveSiteFetch(rawURL, "http", "ok")
	if e.renderer == nil || e.detector == nil || !e.detector.ShouldPromote(page) {
		return page, nil
	}

	e.logger.Debug("promoting to headless render", zap.String("url", rawURL))
	rendered, err := e.renderer.Fetch(ctx, fetcher.Request{URL: rawURL})
	if err != nil {
		metrics.ObserveSiteFetch(rawURL, "headless", "error")
		e.logger.Warn("headless render failed, using plain response", zap.String("url", rawURL), zap.Error(err))
		return page, nil
	}
	metrics.ObserveSiteFetch(rawURL, "headless", "ok")
	return rendered, nil
}

func (e *Extractor) wait(ctx context.Context, rawURL string) error {
	if e.cfg.Limiter == nil {
		return nil
	}
	return e.cfg.Limiter.Wait(ctx, rawURL)
}
