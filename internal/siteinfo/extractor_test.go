package siteinfo

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contentplan/internal/fetcher"
)

type fakeFetcher struct {
	page  fetcher.Page
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetcher.Request) (fetcher.Page, error) {
	f.calls++
	if f.err != nil {
		return fetcher.Page{}, f.err
	}
	p := f.page
	p.URL = req.URL
	return p, nil
}

type fixedDetector bool

func (d fixedDetector) ShouldPromote(fetcher.Page) bool { return bool(d) }

func TestExtractorFetchSignals(t *testing.T) {
	t.Parallel()

	httpF := &fakeFetcher{page: fetcher.Page{StatusCode: http.StatusOK, Body: []byte(shopHTML)}}
	e := NewExtractor(httpF, nil, nil, Config{}, nil)

	sig, err := e.FetchSignals(context.Background(), "https://bonenbar.nl", "nl")
	require.NoError(t, err)
	require.Equal(t, "https://bonenbar.nl", sig.URL)
	require.Equal(t, "Bonenbar", sig.OGTitle)
	require.False(t, sig.Rendered)
}

func TestExtractorPromotesToRenderer(t *testing.T) {
	t.Parallel()

	httpF := &fakeFetcher{page: fetcher.Page{StatusCode: http.StatusOK, Body: []byte(`<div id="__next"></div>`)}}
	renderer := &fakeFetcher{page: fetcher.Page{StatusCode: http.StatusOK, Body: []byte(shopHTML), Rendered: true}}
	e := NewExtractor(httpF, renderer, fixedDetector(true), Config{}, nil)

	sig, err := e.FetchSignals(context.Background(), "https://bonenbar.nl", "nl")
	require.NoError(t, err)
	require.True(t, sig.Rendered)
	require.Equal(t, 1, renderer.calls)
	require.NotEmpty(t, sig.ProductNames)
}

func TestExtractorFallsBackWhenRenderFails(t *testing.T) {
	t.Parallel()

	httpF := &fakeFetcher{page: fetcher.Page{StatusCode: http.StatusOK, Body: []byte(shopHTML)}}
	renderer := &fakeFetcher{err: errors.New("no chrome")}
	e := NewExtractor(httpF, renderer, fixedDetector(true), Config{}, nil)

	sig, err := e.FetchSignals(context.Background(), "https://bonenbar.nl", "nl")
	require.NoError(t, err)
	require.False(t, sig.Rendered)
	require.Equal(t, "Bonenbar", sig.OGTitle)
}

func TestExtractorErrors(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&fakeFetcher{err: errors.New("dns")}, nil, nil, Config{}, nil)
	sig, err := e.FetchSignals(context.Background(), "https://nowhere.nl", "nl")
	require.Error(t, err)
	require.True(t, sig.Empty())

	e = NewExtractor(&fakeFetcher{page: fetcher.Page{StatusCode: http.StatusForbidden}}, nil, nil, Config{}, nil)
	_, err = e.FetchSignals(context.Background(), "https://blocked.nl", "nl")
	require.ErrorContains(t, err, "unexpected status 403")
}

func TestExtractorHTMLLang(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&fakeFetcher{page: fetcher.Page{StatusCode: http.StatusOK, Body: []byte(shopHTML)}}, nil, nil, Config{}, nil)
	lang, err := e.HTMLLang(context.Background(), "https://bonenbar.nl")
	require.NoError(t, err)
	require.Equal(t, "nl", lang)
}

type recordingLimiter struct {
	urls []string
	err  error
}

func (l *recordingLimiter) Wait(_ context.Context, rawURL string) error {
	l.urls = append(l.urls, rawURL)
	return l.err
}

func TestExtractorWaitsOnLimiter(t *testing.T) {
	t.Parallel()

	limiter := &recordingLimiter{}
	httpF := &fakeFetcher{page: fetcher.Page{StatusCode: http.StatusOK, Body: []byte(shopHTML)}}
	e := NewExtractor(httpF, nil, nil, Config{Limiter: limiter}, nil)

	_, err := e.FetchSignals(context.Background(), "https://bonenbar.nl", "nl")
	require.NoError(t, err)
	_, err = e.HTMLLang(context.Background(), "https://bonenbar.nl")
	require.NoError(t, err)
	require.Equal(t, []string{"https://bonenbar.nl", "https://bonenbar.nl"}, limiter.urls)

	limiter.err = errors.New("rate limit wait: context deadline exceeded")
	_, err = e.FetchSignals(context.Background(), "https://bonenbar.nl", "nl")
	require.Error(t, err)
	require.Equal(t, 2, httpF.calls)
}
