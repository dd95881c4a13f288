package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
	"github.com/nodecurio/curator/internal/urlvalidate"
)

// Fetcher performs the HTTP GET stage of C2/C3, bounded by a per-host
// semaphore and a global concurrency cap the way the teacher bounds
// concurrent work with buffered channels (internal/world/fs.go,
// internal/retrieval/sparse.go: "sem := make(chan struct{}, N)").
type Fetcher struct {
	client      *http.Client
	maxBodyBytes int64

	mu        sync.Mutex
	perHost   map[string]chan struct{}
	hostLimit int
	global    chan struct{}
	userAgent string
}

// NewFetcher constructs a Fetcher (spec §4.2: default 30s timeout, 10MiB
// max body, per-host and global concurrency caps).
func NewFetcher(timeout time.Duration, maxBodyBytes int64, perHostConcurrency, globalConcurrency int) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout:       timeout,
			CheckRedirect: checkRedirectSSRF,
		},
		maxBodyBytes: maxBodyBytes,
		perHost:      make(map[string]chan struct{}),
		hostLimit:    perHostConcurrency,
		global:       make(chan struct{}, globalConcurrency),
		userAgent:    "Mozilla/5.0 (compatible; curator/1.0; +https://github.com/nodecurio)",
	}
}

// checkRedirectSSRF re-validates every redirect hop's host/scheme/port
// against the same blocklist checkSSRF applies to the original URL — the
// default Go redirect policy follows up to 10 hops without ever looking at
// the target again, which would let a public URL that 302s to
// 169.254.169.254 or http://localhost reach past validation.
func checkRedirectSSRF(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return urlvalidate.ValidateRedirect(req.URL)
}

func (f *Fetcher) hostSemaphore(host string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	sem, ok := f.perHost[host]
	if !ok {
		sem = make(chan struct{}, f.hostLimit)
		f.perHost[host] = sem
	}
	return sem
}

// Fetch retrieves canonicalURL, enforcing the global and per-host
// concurrency caps and the max body size, mapping transport failures into
// the typed failure modes from spec §4.2.
func (f *Fetcher) Fetch(ctx context.Context, canonicalURL string) (*FetchResult, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return nil, &PermanentFetchError{Cause: err}
	}

	hostSem := f.hostSemaphore(u.Host)

	select {
	case f.global <- struct{}{}:
	case <-ctx.Done():
		return nil, &TransientFetchError{Cause: ctx.Err()}
	}
	defer func() { <-f.global }()

	select {
	case hostSem <- struct{}{}:
	case <-ctx.Done():
		return nil, &TransientFetchError{Cause: ctx.Err()}
	}
	defer func() { <-hostSem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canonicalURL, nil)
	if err != nil {
		return nil, &PermanentFetchError{Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	logging.ExtractDebug("fetching %s", canonicalURL)
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TransientFetchError{Cause: ctx.Err()}
		}
		// A CheckRedirect rejection (e.g. an SSRF-blocked redirect target)
		// comes back wrapped in a *url.Error; unwrap it so the caller sees
		// the classified, non-retryable curatorerrors.Error rather than a
		// generic transient-looking transport failure.
		var classified *curatorerrors.Error
		if errors.As(err, &classified) {
			return nil, &PermanentFetchError{Cause: classified}
		}
		return nil, &TransientFetchError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &UpstreamRateLimited{RetryAfterSeconds: 60}
	}
	if resp.StatusCode >= 500 {
		return nil, &TransientFetchError{Cause: &httpStatusError{resp.StatusCode}}
	}
	if resp.StatusCode >= 400 {
		return nil, &PermanentFetchError{Cause: &httpStatusError{resp.StatusCode}}
	}

	limited := io.LimitReader(resp.Body, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &TransientFetchError{Cause: err}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &SizeExceeded{Limit: f.maxBodyBytes}
	}

	return &FetchResult{Body: body, ContentType: resp.Header.Get("Content-Type"), StatusCode: resp.StatusCode}, nil
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string {
	return http.StatusText(e.status)
}
