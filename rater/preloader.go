package rater

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Preloader returns once the image bytes of a photo are fully fetched and
// decoded, or an error if loading fails.
type Preloader interface {
	Preload(ctx context.Context, ref PhotoRef) error
}

// HTTPPreloader fetches image bytes over HTTP and verifies they decode.
// Relative photo URLs are resolved against the service base URL.
type HTTPPreloader struct {
	base  *url.URL
	httpc *http.Client
}

type PreloaderOption func(*HTTPPreloader)

// WithPreloadHTTPClient replaces the default instrumented HTTP client.
func WithPreloadHTTPClient(httpc *http.Client) PreloaderOption {
	return func(p *HTTPPreloader) {
		p.httpc = httpc
	}
}

func NewHTTPPreloader(baseURL string, opts ...PreloaderOption) (*HTTPPreloader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	p := &HTTPPreloader{
		base: base,
		httpc: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *HTTPPreloader) Preload(ctx context.Context, ref PhotoRef) error {
	target, err := url.Parse(ref.URL)
	if err != nil {
		return &Error{Kind: KindFetchFailure, Err: fmt.Errorf("invalid URL for %s: %w", ref.Name, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base.ResolveReference(target).String(), nil)
	if err != nil {
		return &Error{Kind: KindFetchFailure, Err: err}
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return classify(KindFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: KindFetchFailure, Err: fmt.Errorf("unexpected status %s for %s", resp.Status, ref.Name)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(KindFetchFailure, err)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return &Error{Kind: KindFetchFailure, Err: fmt.Errorf("failed to decode %s: %w", ref.Name, err)}
	}
	return nil
}

// preloadPair loads both images of a pair concurrently and waits for both
// to settle, so the displayed pair is never a mix of an old and a new
// image. The first error wins.
func preloadPair(ctx context.Context, pre Preloader, pair Pair) error {
	errs := make(chan error, 2)
	for _, ref := range []PhotoRef{pair.ImageA, pair.ImageB} {
		go func() {
			errs <- pre.Preload(ctx, ref)
		}()
	}

	var first error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}
